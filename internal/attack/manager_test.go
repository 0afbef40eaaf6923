package attack

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/engine/detector"
	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type recordingNotifier struct {
	mu     sync.Mutex
	onsets int
	peaks  int
	clears int
}

func (n *recordingNotifier) OnAttackOnset(attack *model.AttackDetails, description string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onsets++
	return nil
}

func (n *recordingNotifier) OnAttackPeak(attack *model.AttackDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peaks++
	return nil
}

func (n *recordingNotifier) OnAttackClear(attack *model.AttackDetails, description string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clears++
	return nil
}

func (n *recordingNotifier) counts() (int, int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.onsets, n.peaks, n.clears
}

type recordingMitigator struct {
	mu        sync.Mutex
	announces int
	withdraws int
	failFirst int
}

func (m *recordingMitigator) Announce(attack *model.AttackDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announces++
	if m.announces <= m.failFirst {
		return errors.New("session not established")
	}
	return nil
}

func (m *recordingMitigator) Withdraw(attack *model.AttackDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdraws++
	return nil
}

func (m *recordingMitigator) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.announces, m.withdraws
}

func onsetEvent(addr string) detector.Event {
	var counters model.SubnetCounter
	counters.Average[model.SectionTotal].InPackets = 50000
	return detector.Event{
		Host:        netip.MustParseAddr(addr),
		Network:     netip.MustParsePrefix("10.0.0.0/8"),
		HostGroup:   "customers",
		Threshold:   model.ThresholdPacketsPerSecond,
		Direction:   model.DirectionIncoming,
		AttackPower: 50000,
		Counters:    counters,
	}
}

func snapshotFor(addr string, inPackets float64) *traffic.Snapshot {
	host := netip.MustParseAddr(addr)
	var counters model.SubnetCounter
	counters.Average[model.SectionTotal].InPackets = inPackets
	return &traffic.Snapshot{
		TakenAt: time.Now(),
		Hosts: map[netip.Addr]*traffic.HostRates{
			host: {Addr: host, HostGroup: "customers", Counters: counters},
		},
	}
}

func emptySnapshot() *traffic.Snapshot {
	return &traffic.Snapshot{TakenAt: time.Now(), Hosts: map[netip.Addr]*traffic.HostRates{}}
}

// managerWithClock wires a manual clock so ban timers are driven by the
// test, not the wall.
func managerWithClock(cfg Config, notifiers []model.Notifier, mitigator model.Mitigator) (*Manager, *time.Time) {
	m := New(cfg, notifiers, mitigator, testLogger())
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestUnbanLifecycle(t *testing.T) {
	notifier := &recordingNotifier{}
	mitigator := &recordingMitigator{}
	m, clock := managerWithClock(Config{
		BanTime:      2 * time.Second,
		UnbanEnabled: true,
	}, []model.Notifier{notifier}, mitigator)

	host := netip.MustParseAddr("10.1.1.1")
	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})

	if !m.IsBanned(host) {
		t.Fatal("host should be banned after onset")
	}
	if onsets, _, _ := notifier.counts(); onsets != 1 {
		t.Errorf("expected exactly one onset notification, got %d", onsets)
	}
	if announces, _ := mitigator.counts(); announces != 1 {
		t.Errorf("expected exactly one mitigation announce, got %d", announces)
	}

	// One second in: the ban holds.
	*clock = clock.Add(time.Second)
	m.Process(emptySnapshot(), nil)
	if !m.IsBanned(host) {
		t.Error("ban must hold before ban_time elapses")
	}

	// Two seconds in: the ban expires, mitigation withdrawn exactly once,
	// clear notified exactly once.
	*clock = clock.Add(time.Second)
	m.Process(emptySnapshot(), nil)
	if m.IsBanned(host) {
		t.Error("host should be calm after ban_time")
	}
	if _, withdraws := mitigator.counts(); withdraws != 1 {
		t.Errorf("expected exactly one withdraw, got %d", withdraws)
	}
	if onsets, _, clears := notifier.counts(); onsets != 1 || clears != 1 {
		t.Errorf("expected one onset and one clear, got %d and %d", onsets, clears)
	}

	if len(m.ArchivedAttacks()) != 1 {
		t.Errorf("expired attack should be archived")
	}
}

func TestManualUnbanIsIdempotent(t *testing.T) {
	notifier := &recordingNotifier{}
	mitigator := &recordingMitigator{}
	m, _ := managerWithClock(Config{BanTime: time.Hour, UnbanEnabled: true},
		[]model.Notifier{notifier}, mitigator)

	host := netip.MustParseAddr("10.1.1.1")
	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})

	if !m.Unban(host) {
		t.Fatal("first unban should clear the attack")
	}
	if m.Unban(host) {
		t.Error("second unban must be a no-op")
	}
	if _, withdraws := mitigator.counts(); withdraws != 1 {
		t.Errorf("withdraw must run exactly once, got %d", withdraws)
	}
	if _, _, clears := notifier.counts(); clears != 1 {
		t.Errorf("clear notification must run exactly once, got %d", clears)
	}
}

func TestIndefiniteBanWithoutTimer(t *testing.T) {
	m, clock := managerWithClock(Config{BanTime: 0, UnbanEnabled: true}, nil, nil)
	host := netip.MustParseAddr("10.1.1.1")
	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})

	*clock = clock.Add(240 * time.Hour)
	m.Process(emptySnapshot(), nil)
	if !m.IsBanned(host) {
		t.Error("ban_time zero must hold until cleared")
	}
}

func TestReentryAllocatesFreshUUID(t *testing.T) {
	m, clock := managerWithClock(Config{BanTime: time.Second, UnbanEnabled: true}, nil, nil)
	host := netip.MustParseAddr("10.1.1.1")

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	first := m.ActiveAttacks()[0].UUID

	*clock = clock.Add(time.Second)
	m.Process(emptySnapshot(), nil)
	if m.IsBanned(host) {
		t.Fatal("ban should have expired")
	}

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	second := m.ActiveAttacks()[0].UUID
	if first == second {
		t.Error("re-entry must allocate a new attack UUID")
	}
	if len(m.ArchivedAttacks()) != 1 {
		t.Error("the previous attack should be archived")
	}
}

func TestPeakTracking(t *testing.T) {
	notifier := &recordingNotifier{}
	m, _ := managerWithClock(Config{BanTime: time.Hour, UnbanEnabled: true},
		[]model.Notifier{notifier}, nil)

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	if got := m.ActiveAttacks()[0].MaxAttackPower; got != 50000 {
		t.Fatalf("initial peak should equal onset power, got %d", got)
	}

	// Rate grows: peak updates and the peak hook fires.
	m.Process(snapshotFor("10.1.1.1", 90000), nil)
	if got := m.ActiveAttacks()[0].MaxAttackPower; got != 90000 {
		t.Errorf("peak should track the frozen metric, got %d", got)
	}
	if _, peaks, _ := notifier.counts(); peaks != 1 {
		t.Errorf("expected one peak notification, got %d", peaks)
	}

	// Rate falls back: peak is retained.
	m.Process(snapshotFor("10.1.1.1", 10000), nil)
	if got := m.ActiveAttacks()[0].MaxAttackPower; got != 90000 {
		t.Errorf("peak must not decrease, got %d", got)
	}
}

func TestMitigationRetryBackoff(t *testing.T) {
	mitigator := &recordingMitigator{failFirst: 2}
	m, clock := managerWithClock(Config{
		BanTime:      time.Hour,
		UnbanEnabled: true,
		RetryBase:    time.Second,
		RetryCap:     60 * time.Second,
	}, nil, mitigator)

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	if announces, _ := mitigator.counts(); announces != 1 {
		t.Fatalf("expected the initial announce attempt, got %d", announces)
	}
	if !m.ActiveAttacks()[0].MitigationFailed {
		t.Fatal("failed announce should mark the attack mitigation_failed")
	}

	// Before the backoff elapses nothing is retried.
	m.Process(emptySnapshot(), nil)
	if announces, _ := mitigator.counts(); announces != 1 {
		t.Errorf("retry fired before its backoff, announces %d", announces)
	}

	// First retry after 1s still fails; backoff doubles.
	*clock = clock.Add(time.Second)
	m.Process(emptySnapshot(), nil)
	if announces, _ := mitigator.counts(); announces != 2 {
		t.Errorf("expected second announce attempt, got %d", announces)
	}

	// Second retry after 2 more seconds succeeds.
	*clock = clock.Add(2 * time.Second)
	m.Process(emptySnapshot(), nil)
	if announces, _ := mitigator.counts(); announces != 3 {
		t.Errorf("expected third announce attempt, got %d", announces)
	}
	if m.ActiveAttacks()[0].MitigationFailed {
		t.Error("mitigation_failed should clear after a successful announce")
	}

	// Cleared attacks withdraw the announced rule.
	m.Unban(netip.MustParseAddr("10.1.1.1"))
	if _, withdraws := mitigator.counts(); withdraws != 1 {
		t.Errorf("expected one withdraw after unban, got %d", withdraws)
	}
}

func TestHookBudgetMarksDegraded(t *testing.T) {
	slow := &slowNotifier{delay: 200 * time.Millisecond}
	m, _ := managerWithClock(Config{
		BanTime:      time.Hour,
		UnbanEnabled: true,
		HookBudget:   20 * time.Millisecond,
	}, []model.Notifier{slow}, nil)

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	if !m.ActiveAttacks()[0].Degraded {
		t.Error("a hook overrunning its budget must mark the attack degraded")
	}
}

type slowNotifier struct {
	delay time.Duration
}

func (n *slowNotifier) OnAttackOnset(attack *model.AttackDetails, description string) error {
	time.Sleep(n.delay)
	return nil
}

func (n *slowNotifier) OnAttackPeak(attack *model.AttackDetails) error { return nil }

func (n *slowNotifier) OnAttackClear(attack *model.AttackDetails, description string) error {
	return nil
}

func TestShutdownWithdrawsOutstandingMitigations(t *testing.T) {
	notifier := &recordingNotifier{}
	mitigator := &recordingMitigator{}
	m, _ := managerWithClock(Config{BanTime: time.Hour, UnbanEnabled: true},
		[]model.Notifier{notifier}, mitigator)

	m.Process(snapshotFor("10.1.1.1", 50000), []detector.Event{onsetEvent("10.1.1.1")})
	m.Process(snapshotFor("10.2.2.2", 60000), []detector.Event{onsetEvent("10.2.2.2")})

	m.Shutdown()
	if len(m.ActiveAttacks()) != 0 {
		t.Error("shutdown must clear every active attack")
	}
	if _, withdraws := mitigator.counts(); withdraws != 2 {
		t.Errorf("expected both mitigations withdrawn, got %d", withdraws)
	}
}
