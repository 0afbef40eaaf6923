package traffic

import (
	"sync/atomic"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// Conntrack is a fixed-capacity, open-addressed sketch of the 5-tuples a
// host was observed with in the current one-second window. Membership is
// approximate: slots are claimed with CAS and the oldest slot inside the
// probe window is evicted when the table is contended. A packet counts as
// a new flow at most once per window per unique 5-tuple.
type Conntrack struct {
	keys   []atomic.Uint64
	epochs []atomic.Uint32
	mask   uint64
}

const probeWindow = 8

const minConntrackCapacity = 64

// NewConntrack allocates a sketch with at least the requested capacity,
// rounded up to a power of two.
func NewConntrack(capacity int) *Conntrack {
	size := minConntrackCapacity
	for size < capacity {
		size <<= 1
	}
	return &Conntrack{
		keys:   make([]atomic.Uint64, size),
		epochs: make([]atomic.Uint32, size),
		mask:   uint64(size - 1),
	}
}

// Observe records a 5-tuple sighting for the given window and reports
// whether it is the first sighting of that tuple in the window.
func (c *Conntrack) Observe(hash uint64, epoch uint32) bool {
	hash |= 1

	var oldestSlot uint64
	oldestEpoch := epoch
	haveOldest := false

	idx := hash & c.mask
	for i := uint64(0); i < probeWindow; i++ {
		slot := (idx + i) & c.mask
		key := c.keys[slot].Load()
		if key == hash {
			if c.epochs[slot].Load() == epoch {
				return false
			}
			c.epochs[slot].Store(epoch)
			return true
		}
		if key == 0 {
			if c.keys[slot].CompareAndSwap(0, hash) {
				c.epochs[slot].Store(epoch)
				return true
			}
			if c.keys[slot].Load() == hash {
				c.epochs[slot].Store(epoch)
				return true
			}
			continue
		}
		if e := c.epochs[slot].Load(); !haveOldest || int32(e-oldestEpoch) < 0 {
			oldestSlot = slot
			oldestEpoch = e
			haveOldest = true
		}
	}

	// Probe window exhausted: recycle the stalest slot.
	c.keys[oldestSlot].Store(hash)
	c.epochs[oldestSlot].Store(epoch)
	return true
}

// fnv-1a, inlined to keep the ingest path allocation-free.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// tupleHash packs a packet's 5-tuple into the sketch key.
func tupleHash(p *model.SimplePacket) uint64 {
	h := uint64(fnvOffset64)
	src := p.SrcAddr.As16()
	for _, b := range src {
		h = (h ^ uint64(b)) * fnvPrime64
	}
	dst := p.DstAddr.As16()
	for _, b := range dst {
		h = (h ^ uint64(b)) * fnvPrime64
	}
	h = (h ^ uint64(p.SrcPort>>8)) * fnvPrime64
	h = (h ^ uint64(p.SrcPort&0xff)) * fnvPrime64
	h = (h ^ uint64(p.DstPort>>8)) * fnvPrime64
	h = (h ^ uint64(p.DstPort&0xff)) * fnvPrime64
	h = (h ^ uint64(p.Protocol)) * fnvPrime64
	return h
}
