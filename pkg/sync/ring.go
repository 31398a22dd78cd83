package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently maps keys onto a fixed number of slots. Each slot is
// placed on the ring replicas times to even out the distribution.
type ring struct {
	points *treemap.Map

	// Slot owning the lowest point, where keys past the highest point wrap to
	first int
}

func newRing(slots, replicas int) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	var buf [12]byte
	for slot := 0; slot < slots; slot++ {
		binary.LittleEndian.PutUint64(buf[:8], uint64(slot))
		for replica := 0; replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(buf[8:], uint32(replica))
			points.Put(hash(buf[:]), slot)
		}
	}

	r := &ring{points: points}
	if _, slot := points.Min(); slot != nil {
		r.first = slot.(int)
	}
	return r
}

func (r *ring) slot(key []byte) int {
	if _, slot := r.points.Ceiling(hash(key)); slot != nil {
		return slot.(int)
	}
	return r.first
}

func hash(data []byte) int64 {
	h, _ := murmur3.Sum128(data)
	return int64(h)
}
