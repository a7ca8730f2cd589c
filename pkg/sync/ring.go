package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over stripe indexes. Each stripe is placed
// at replicationFactor points on the ring.
type ring struct {
	points *treemap.Map

	// first is the stripe at the lowest point, where keys hashing past the
	// last point wrap around to. treemap.Map.Min() is O(log n).
	first int
}

func newRing(stripes, replicationFactor uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)
	for stripe := 0; stripe < int(stripes); stripe++ {
		nameHash, _ := murmur3.Sum128([]byte(fmt.Sprintf("lock%d", stripe)))

		var seed [12]byte
		binary.LittleEndian.PutUint64(seed[:8], nameHash)
		for i := 0; i < int(replicationFactor); i++ {
			binary.LittleEndian.PutUint32(seed[8:], uint32(i))
			point, _ := murmur3.Sum128(seed[:])
			points.Put(int64(point), stripe)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// shard consistently maps key to a stripe index.
func (r *ring) shard(key []byte) int {
	hash, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(hash)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}
