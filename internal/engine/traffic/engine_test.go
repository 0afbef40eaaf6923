package traffic

import (
	"fmt"
	"math"
	"net/netip"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/resolver"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func mustAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func testResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	r := resolver.New(testLogger())
	network := netip.MustParsePrefix("10.0.0.0/8")
	groups := []model.HostGroup{{Name: "customers", Networks: []netip.Prefix{network}}}
	if err := r.Load(groups, []netip.Prefix{network}); err != nil {
		t.Fatalf("resolver load: %v", err)
	}
	return r
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	return New(cfg, testResolver(t), testLogger())
}

func udpPacket(src, dst string, srcPort, dstPort uint16, bytes uint64, ratio uint32) *model.SimplePacket {
	return &model.SimplePacket{
		SrcAddr:     mustAddr(src),
		DstAddr:     mustAddr(dst),
		SrcPort:     srcPort,
		DstPort:     dstPort,
		Protocol:    model.ProtocolUDP,
		Bytes:       bytes,
		Packets:     1,
		SampleRatio: ratio,
		TimestampNs: time.Now().UnixNano(),
	}
}

func TestRecordAccountsBothDirections(t *testing.T) {
	e := testEngine(t, Config{})

	// 10.1.1.1 -> 10.2.2.2, both monitored: outgoing for the source,
	// incoming for the destination.
	e.Record(udpPacket("10.1.1.1", "10.2.2.2", 1000, 53, 500, 1))
	e.Tick(time.Now())

	snap := e.Inspect()
	src, ok := snap.Hosts[mustAddr("10.1.1.1")]
	if !ok {
		t.Fatal("source host missing from snapshot")
	}
	if got := src.Counters.Rate[model.SectionTotal].OutBytes; got != 500 {
		t.Errorf("source outgoing bytes: expected 500, got %d", got)
	}
	if got := src.Counters.Rate[model.SectionUDP].OutPackets; got != 1 {
		t.Errorf("source outgoing udp packets: expected 1, got %d", got)
	}

	dst, ok := snap.Hosts[mustAddr("10.2.2.2")]
	if !ok {
		t.Fatal("destination host missing from snapshot")
	}
	if got := dst.Counters.Rate[model.SectionTotal].InBytes; got != 500 {
		t.Errorf("destination incoming bytes: expected 500, got %d", got)
	}
}

func TestSampleRatioMultipliesCounters(t *testing.T) {
	e := testEngine(t, Config{})

	e.Record(udpPacket("192.0.2.1", "10.2.2.2", 1000, 53, 100, 512))
	e.Tick(time.Now())

	dst := e.Inspect().Hosts[mustAddr("10.2.2.2")]
	if dst == nil {
		t.Fatal("destination host missing from snapshot")
	}
	total := dst.Counters.Rate[model.SectionTotal]
	if total.InBytes != 100*512 {
		t.Errorf("expected %d bytes after ratio correction, got %d", 100*512, total.InBytes)
	}
	if total.InPackets != 512 {
		t.Errorf("expected 512 packets after ratio correction, got %d", total.InPackets)
	}
}

func TestRawCountersMonotonicAndDeltaNonNegative(t *testing.T) {
	e := testEngine(t, Config{})
	host := mustAddr("10.2.2.2")

	var prevRaw uint64
	for tick := 0; tick < 5; tick++ {
		for i := 0; i < tick+1; i++ {
			e.Record(udpPacket("192.0.2.1", "10.2.2.2", uint16(1000+i), 53, 100, 1))
		}
		e.Tick(time.Now())

		rates := e.Inspect().Hosts[host]
		raw := rates.Counters.Raw[model.SectionTotal].InBytes
		delta := rates.Counters.Rate[model.SectionTotal].InBytes
		if raw < prevRaw {
			t.Fatalf("raw counter went backwards: %d -> %d", prevRaw, raw)
		}
		if delta != raw-prevRaw {
			t.Errorf("tick %d: delta %d != raw difference %d", tick, delta, raw-prevRaw)
		}
		prevRaw = raw
	}
}

func TestEMARecurrence(t *testing.T) {
	e := testEngine(t, Config{AverageWindow: 15 * time.Second})
	host := mustAddr("10.2.2.2")
	alpha := e.Alpha()

	var prevAvg float64
	for tick := 0; tick < 10; tick++ {
		packets := (tick % 3) + 1
		for i := 0; i < packets; i++ {
			e.Record(udpPacket("192.0.2.1", "10.2.2.2", 1000, 53, 250, 1))
		}
		e.Tick(time.Now())

		rates := e.Inspect().Hosts[host]
		delta := float64(rates.Counters.Rate[model.SectionTotal].InBytes)
		avg := rates.Counters.Average[model.SectionTotal].InBytes

		want := prevAvg + alpha*(delta-prevAvg)
		if diff := math.Abs(avg - want); diff > math.Max(math.Abs(want), 1)*1e-15 {
			t.Fatalf("tick %d: EMA %v deviates from recurrence %v by %v", tick, avg, want, diff)
		}
		prevAvg = avg
	}
}

func TestFlowCountedOncePerWindow(t *testing.T) {
	e := testEngine(t, Config{})
	host := mustAddr("10.2.2.2")

	// The same 5-tuple many times inside one window counts one flow.
	for i := 0; i < 50; i++ {
		e.Record(udpPacket("192.0.2.1", "10.2.2.2", 1000, 53, 100, 1))
	}
	e.Tick(time.Now())
	if got := e.Inspect().Hosts[host].Counters.Rate[model.SectionTotal].InFlows; got != 1 {
		t.Errorf("expected 1 flow in first window, got %d", got)
	}

	// A fresh window counts the tuple again; a second tuple adds one more.
	for i := 0; i < 10; i++ {
		e.Record(udpPacket("192.0.2.1", "10.2.2.2", 1000, 53, 100, 1))
	}
	e.Record(udpPacket("192.0.2.1", "10.2.2.2", 2000, 53, 100, 1))
	e.Tick(time.Now())
	if got := e.Inspect().Hosts[host].Counters.Rate[model.SectionTotal].InFlows; got != 2 {
		t.Errorf("expected 2 flows in second window, got %d", got)
	}
}

func TestSynPacketsLandInSynSection(t *testing.T) {
	e := testEngine(t, Config{})

	pkt := &model.SimplePacket{
		SrcAddr:     mustAddr("192.0.2.1"),
		DstAddr:     mustAddr("10.2.2.2"),
		SrcPort:     1234,
		DstPort:     80,
		Protocol:    model.ProtocolTCP,
		TCPFlags:    model.TCPFlagSYN,
		Bytes:       60,
		Packets:     1,
		SampleRatio: 1,
		TimestampNs: time.Now().UnixNano(),
	}
	e.Record(pkt)

	ack := *pkt
	ack.TCPFlags = model.TCPFlagSYN | model.TCPFlagACK
	e.Record(&ack)

	e.Tick(time.Now())
	rates := e.Inspect().Hosts[mustAddr("10.2.2.2")]
	if got := rates.Counters.Rate[model.SectionTCP].InPackets; got != 2 {
		t.Errorf("tcp section: expected 2 packets, got %d", got)
	}
	if got := rates.Counters.Rate[model.SectionTCPSyn].InPackets; got != 1 {
		t.Errorf("tcp_syn section: expected 1 packet (SYN without ACK), got %d", got)
	}
}

func TestHostGroupCeilingFoldsIntoSubnet(t *testing.T) {
	e := testEngine(t, Config{MaxHostsPerGroup: 2})

	for i := 1; i <= 5; i++ {
		e.Record(udpPacket("192.0.2.1", fmt.Sprintf("10.2.2.%d", i), 1000, 53, 100, 1))
	}
	e.Tick(time.Now())

	snap := e.Inspect()
	if len(snap.Hosts) != 2 {
		t.Errorf("expected the host map capped at 2 entries, got %d", len(snap.Hosts))
	}
	stats := e.CollectStats()
	if stats.FoldedHosts == 0 {
		t.Error("folded host counter should have grown")
	}

	// The subnet bucket still accounts every packet.
	subnet := snap.Subnets[netip.MustParsePrefix("10.0.0.0/8")]
	if got := subnet.Rate[model.SectionTotal].InPackets; got != 5 {
		t.Errorf("subnet bucket: expected 5 packets, got %d", got)
	}
}

func TestIdleHostsCollected(t *testing.T) {
	e := testEngine(t, Config{IdleTimeout: time.Minute})
	host := mustAddr("10.2.2.2")

	stale := udpPacket("192.0.2.1", "10.2.2.2", 1000, 53, 100, 1)
	stale.TimestampNs = time.Now().Add(-time.Hour).UnixNano()
	e.Record(stale)

	e.Tick(time.Now())
	if _, ok := e.Inspect().Hosts[host]; ok {
		t.Error("idle host should have been garbage-collected")
	}
	if e.CollectStats().Hosts != 0 {
		t.Error("host map should be empty after collection")
	}
}

func TestUnmonitoredTrafficDropped(t *testing.T) {
	e := testEngine(t, Config{})

	e.Record(udpPacket("192.0.2.1", "198.51.100.1", 1000, 53, 100, 1))
	e.Tick(time.Now())

	if len(e.Inspect().Hosts) != 0 {
		t.Error("traffic outside the monitored space must not create hosts")
	}
	if e.CollectStats().DroppedOutside != 1 {
		t.Error("dropped-outside counter should have grown")
	}
}

func TestSnapshotSequenceAdvances(t *testing.T) {
	e := testEngine(t, Config{})

	e.Tick(time.Now())
	first := e.Inspect().Sequence
	e.Tick(time.Now())
	second := e.Inspect().Sequence
	if second != first+1 {
		t.Errorf("snapshot sequence should advance by one per tick: %d then %d", first, second)
	}
}
