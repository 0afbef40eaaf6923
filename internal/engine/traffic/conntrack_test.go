package traffic

import (
	"testing"

	"github.com/mtasaka/fastnetmon/internal/model"
)

func TestConntrackOncePerWindow(t *testing.T) {
	ct := NewConntrack(256)

	if !ct.Observe(42, 1) {
		t.Error("first sighting in a window should be new")
	}
	if ct.Observe(42, 1) {
		t.Error("second sighting in the same window should not be new")
	}
	if !ct.Observe(42, 2) {
		t.Error("the same tuple in a later window should be new again")
	}
	if ct.Observe(42, 2) {
		t.Error("repeat within the later window should not be new")
	}
}

func TestConntrackDistinctTuples(t *testing.T) {
	ct := NewConntrack(256)

	newFlows := 0
	for hash := uint64(1); hash <= 100; hash++ {
		if ct.Observe(hash<<8, 1) {
			newFlows++
		}
	}
	if newFlows != 100 {
		t.Errorf("expected 100 distinct flows, got %d", newFlows)
	}
}

func TestConntrackEvictsUnderPressure(t *testing.T) {
	ct := NewConntrack(64)

	// Far more tuples than capacity: every observation must still return,
	// and claimed slots are recycled rather than the call failing.
	for hash := uint64(1); hash <= 10000; hash++ {
		ct.Observe(hash*2654435761, 1)
	}
	if !ct.Observe(1<<40, 2) {
		t.Error("sketch must keep admitting flows after eviction pressure")
	}
}

func TestTupleHashDiscriminates(t *testing.T) {
	a := &model.SimplePacket{
		SrcAddr: mustAddr("10.0.0.1"), DstAddr: mustAddr("10.0.0.2"),
		SrcPort: 1234, DstPort: 80, Protocol: model.ProtocolTCP,
	}
	b := &model.SimplePacket{
		SrcAddr: mustAddr("10.0.0.1"), DstAddr: mustAddr("10.0.0.2"),
		SrcPort: 1235, DstPort: 80, Protocol: model.ProtocolTCP,
	}
	if tupleHash(a) == tupleHash(b) {
		t.Error("tuples differing in source port should hash differently")
	}
	if tupleHash(a) != tupleHash(a) {
		t.Error("hash must be stable")
	}
}
