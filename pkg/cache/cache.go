package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrKeyExists      = errors.New("key already exists in cache")
	ErrWeightTooLarge = errors.New("item weight exceeds cache budget")
)

// Cache is a weighted LRU cache. Inserting past the weight budget evicts the
// least recently used entries.
type Cache[V any] interface {
	SetVerbose(verbose bool)

	// Weight is the total weight of the cached entries
	Weight() int

	// Budget is the maximum total weight
	Budget() int

	Len() int

	Insert(key string, value V, weight int) error
	Retrieve(key string) (V, bool)
	Remove(key string) bool
	Clear()
}

type entry[V any] struct {
	next   *entry[V]
	prev   *entry[V]
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu      sync.Mutex
	head    *entry[V]
	tail    *entry[V]
	lookup  map[string]*entry[V]
	weight  int
	budget  int
	verbose bool
}

// New returns an empty cache holding at most budget weight.
func New[V any](budget int) Cache[V] {
	return &cache[V]{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		lookup: make(map[string]*entry[V]),
		budget: budget,
	}
}

// SetVerbose enables eviction logging.
func (c *cache[V]) SetVerbose(verbose bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verbose = verbose
}

func (c *cache[V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache[V]) Budget() int {
	return c.budget
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lookup)
}

// Insert adds a new entry at the front of the LRU list, then evicts from the
// back until the cache is within budget.
func (c *cache[V]) Insert(key string, value V, weight int) error {
	if weight > c.budget {
		return ErrWeightTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup[key]; ok {
		return ErrKeyExists
	}

	e := &entry[V]{
		key:    key,
		value:  value,
		weight: weight,
	}
	c.pushFront(e)
	c.lookup[key] = e
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight

		if c.verbose {
			c.log.WithFields(logrus.Fields{
				"key":          evicted.key,
				"weight":       evicted.weight,
				"spare_weight": c.budget - c.weight,
			}).Debug("evicted cache entry")
		}
	}

	return nil
}

// Retrieve returns the entry for key and marks it as most recently used.
func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup[key]
	if !ok {
		var zero V
		return zero, false
	}

	if e != c.head {
		c.unlink(e)
		c.pushFront(e)
	}
	return e.value, true
}

// Remove drops the entry for key, reporting whether it was present.
func (c *cache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup[key]
	if !ok {
		return false
	}

	c.unlink(e)
	delete(c.lookup, key)
	c.weight -= e.weight
	return true
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*entry[V])
	c.weight = 0
}

func (c *cache[V]) pushFront(e *entry[V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *cache[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.next = nil
	e.prev = nil
}
