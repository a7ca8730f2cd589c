package sync

import (
	base "sync"
)

const (
	pointsPerStripe = 200
)

// StripedLock consistently maps a key space onto a fixed set of locks, so
// that work on the same key is serialized without a lock per key.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(stripes, pointsPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.shard(key)]
}

// Stripes is the number of distinct locks.
func (l *StripedLock) Stripes() int {
	return len(l.locks)
}
