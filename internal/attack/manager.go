// Package attack owns the per-host attack lifecycle: creating attack
// records when the detector reports an exceed, tracking peaks, running the
// ban/unban state machine and invoking notification and mitigation hooks.
package attack

import (
	"net/netip"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/engine/detector"
	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
)

// Config tunes the attack manager.
type Config struct {
	// BanTime is how long a ban holds; zero keeps it until cleared.
	BanTime time.Duration
	// UnbanEnabled allows automatic unban once BanTime elapses.
	UnbanEnabled bool

	// HookBudget bounds every notification and mitigation hook invocation.
	HookBudget time.Duration

	CaptureEnabled bool
	CaptureSize    int
	CaptureDir     string

	// Mitigation announcement retry backoff bounds.
	RetryBase time.Duration
	RetryCap  time.Duration

	// ArchiveSize bounds the in-memory history of finished attacks.
	ArchiveSize int
}

const (
	defaultHookBudget  = 2 * time.Second
	defaultRetryBase   = time.Second
	defaultRetryCap    = 60 * time.Second
	defaultArchiveSize = 128
)

func (c *Config) applyDefaults() {
	if c.HookBudget <= 0 {
		c.HookBudget = defaultHookBudget
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.RetryCap <= 0 {
		c.RetryCap = defaultRetryCap
	}
	if c.ArchiveSize <= 0 {
		c.ArchiveSize = defaultArchiveSize
	}
}

type activeAttack struct {
	details *model.AttackDetails
	capture *CaptureRing

	announced bool
	retryAt   time.Time
	backoff   time.Duration
}

// Manager runs the attack state machine. Process is driven once per tick
// from the evaluator thread; Unban may be called from operator surfaces;
// Consume feeds capture rings from the ingest path.
type Manager struct {
	cfg       Config
	notifiers []model.Notifier
	mitigator model.Mitigator
	log       *logrus.Logger

	mu      sync.RWMutex
	active  map[netip.Addr]*activeAttack
	archive []*model.AttackDetails

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an attack manager.
func New(cfg Config, notifiers []model.Notifier, mitigator model.Mitigator, log *logrus.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:       cfg,
		notifiers: notifiers,
		mitigator: mitigator,
		log:       log,
		active:    make(map[netip.Addr]*activeAttack),
		now:       time.Now,
	}
}

// Process advances the state machine by one tick: onsets for new events,
// peak tracking and mitigation retries for active attacks, expiry of bans
// whose time has elapsed.
func (m *Manager) Process(snap *traffic.Snapshot, events []detector.Event) {
	now := m.now()

	for i := range events {
		event := &events[i]
		m.mu.RLock()
		_, alreadyActive := m.active[event.Host]
		m.mu.RUnlock()
		if !alreadyActive {
			m.onset(event, now)
		}
	}

	m.trackPeaks(snap)
	m.expire(now)
	m.retryMitigations(now)
}

func (m *Manager) onset(event *detector.Event, now time.Time) {
	details := &model.AttackDetails{
		Host:               event.Host,
		Network:            event.Network,
		HostGroup:          event.HostGroup,
		ParentHostGroup:    event.ParentHostGroup,
		Direction:          event.Direction,
		AttackPower:        event.AttackPower,
		MaxAttackPower:     event.AttackPower,
		Type:               attackTypeFor(event.Threshold),
		Severity:           classifySeverity(event.AttackPower),
		Source:             model.DetectionAutomatic,
		Threshold:          event.Threshold,
		ThresholdDirection: event.Direction,
		BanTimestamp:       now,
		BanTime:            m.cfg.BanTime,
		UnbanEnabled:       m.cfg.UnbanEnabled,
		Counters:           event.Counters,
	}
	details.Protocol = protocolFor(details.Type)
	if !details.GenerateUUID() {
		m.log.WithField("host", event.Host).Warn("uuid generation failed, attack recorded with zero uuid")
	}

	entry := &activeAttack{details: details}
	if m.cfg.CaptureEnabled {
		entry.capture = NewCaptureRing(m.cfg.CaptureSize)
	}

	m.mu.Lock()
	if _, raced := m.active[event.Host]; raced {
		m.mu.Unlock()
		return
	}
	m.active[event.Host] = entry
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"host":      event.Host,
		"uuid":      details.UUID,
		"threshold": event.Threshold,
		"direction": event.Direction,
		"power":     event.AttackPower,
	}).Warn("attack detected, host banned")

	// Notification runs before mitigation so an operator observer sees the
	// event before routes shift.
	description := model.AttackDescription(details)
	for _, n := range m.notifiers {
		notifier := n
		m.runHook(details, "onset notification", func() error {
			return notifier.OnAttackOnset(details, description)
		})
	}

	if m.mitigator != nil {
		err := m.runHook(details, "mitigation announce", func() error {
			return m.mitigator.Announce(details)
		})
		m.mu.Lock()
		if err != nil {
			details.MitigationFailed = true
			entry.backoff = m.cfg.RetryBase
			entry.retryAt = now.Add(entry.backoff)
		} else {
			entry.announced = true
		}
		m.mu.Unlock()
	}
}

// trackPeaks recomputes each active attack's power against the metric
// frozen at onset and fires the peak hook when it grows.
func (m *Manager) trackPeaks(snap *traffic.Snapshot) {
	m.mu.Lock()
	type peak struct {
		details *model.AttackDetails
	}
	var peaks []peak
	for host, entry := range m.active {
		rates, ok := snap.Hosts[host]
		if !ok {
			continue
		}
		details := entry.details
		power := frozenMetricValue(details.Threshold, details.ThresholdDirection, &rates.Counters)
		if power > details.MaxAttackPower {
			details.MaxAttackPower = power
			details.Counters = rates.Counters
			peaks = append(peaks, peak{details: details})
		}
	}
	m.mu.Unlock()

	for _, p := range peaks {
		for _, n := range m.notifiers {
			notifier := n
			m.runHook(p.details, "peak notification", func() error {
				return notifier.OnAttackPeak(p.details)
			})
		}
	}
}

func (m *Manager) expire(now time.Time) {
	m.mu.Lock()
	var expired []*activeAttack
	for host, entry := range m.active {
		d := entry.details
		if d.BanTime > 0 && d.UnbanEnabled && now.Sub(d.BanTimestamp) >= d.BanTime {
			delete(m.active, host)
			expired = append(expired, entry)
		}
	}
	m.mu.Unlock()

	for _, entry := range expired {
		m.finish(entry, "ban time elapsed")
	}
}

func (m *Manager) retryMitigations(now time.Time) {
	if m.mitigator == nil {
		return
	}
	m.mu.Lock()
	var due []*activeAttack
	for _, entry := range m.active {
		if entry.details.MitigationFailed && !entry.announced && !now.Before(entry.retryAt) {
			due = append(due, entry)
		}
	}
	m.mu.Unlock()

	for _, entry := range due {
		details := entry.details
		err := m.runHook(details, "mitigation retry", func() error {
			return m.mitigator.Announce(details)
		})
		m.mu.Lock()
		if err != nil {
			entry.backoff *= 2
			if entry.backoff > m.cfg.RetryCap {
				entry.backoff = m.cfg.RetryCap
			}
			entry.retryAt = now.Add(entry.backoff)
		} else {
			entry.announced = true
			details.MitigationFailed = false
		}
		m.mu.Unlock()
	}
}

// Unban clears an active attack regardless of its timer. Returns false when
// the host has no active attack; applying unban twice is equivalent to
// once.
func (m *Manager) Unban(host netip.Addr) bool {
	m.mu.Lock()
	entry, ok := m.active[host]
	if ok {
		delete(m.active, host)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	entry.details.Source = model.DetectionManual
	m.finish(entry, "manual unban")
	return true
}

// finish runs the clear side of the state machine: withdraw mitigation,
// notify, flush the capture ring, archive. The attack is already out of
// the active map, so every step runs exactly once.
func (m *Manager) finish(entry *activeAttack, reason string) {
	details := entry.details

	if m.mitigator != nil && (entry.announced || details.MitigationFailed) {
		m.runHook(details, "mitigation withdraw", func() error {
			return m.mitigator.Withdraw(details)
		})
	}

	description := model.AttackDescription(details)
	for _, n := range m.notifiers {
		notifier := n
		m.runHook(details, "clear notification", func() error {
			return notifier.OnAttackClear(details, description)
		})
	}

	if entry.capture != nil {
		if path, err := entry.capture.Flush(m.cfg.CaptureDir, details.UUID.String()); err != nil {
			m.log.WithError(err).WithField("host", details.Host).Error("capture flush failed")
		} else {
			m.log.WithFields(logrus.Fields{"host": details.Host, "path": path}).Info("attack capture written")
		}
	}

	m.mu.Lock()
	m.archive = append(m.archive, details)
	if len(m.archive) > m.cfg.ArchiveSize {
		m.archive = m.archive[len(m.archive)-m.cfg.ArchiveSize:]
	}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"host":   details.Host,
		"uuid":   details.UUID,
		"reason": reason,
	}).Warn("host unbanned")
}

// runHook invokes one external hook under the configured budget. A hook
// overrunning the budget is left running, logged, and the attack is marked
// degraded; the state machine never stalls on it.
func (m *Manager) runHook(details *model.AttackDetails, name string, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	timer := time.NewTimer(m.cfg.HookBudget)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"host": details.Host,
				"hook": name,
			}).Error("attack hook failed")
		}
		return err
	case <-timer.C:
		details.Degraded = true
		m.log.WithFields(logrus.Fields{
			"host":   details.Host,
			"hook":   name,
			"budget": m.cfg.HookBudget,
		}).Warn("attack hook exceeded budget")
		return nil
	}
}

// Consume feeds the capture ring of the attacked host, if any. Implements
// model.PacketSink; never blocks.
func (m *Manager) Consume(pkt *model.SimplePacket) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.active) == 0 {
		return
	}
	if entry, ok := m.active[pkt.DstAddr]; ok && entry.capture != nil {
		entry.capture.Offer(pkt)
		return
	}
	if entry, ok := m.active[pkt.SrcAddr]; ok && entry.capture != nil {
		entry.capture.Offer(pkt)
	}
}

// ActiveAttacks snapshots the attacks currently in force.
func (m *Manager) ActiveAttacks() []model.AttackDetails {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AttackDetails, 0, len(m.active))
	for _, entry := range m.active {
		out = append(out, *entry.details)
	}
	return out
}

// ArchivedAttacks snapshots the bounded history of finished attacks.
func (m *Manager) ArchivedAttacks() []model.AttackDetails {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AttackDetails, len(m.archive))
	for i, d := range m.archive {
		out[i] = *d
	}
	return out
}

// IsBanned reports whether a host currently has an active attack.
func (m *Manager) IsBanned(host netip.Addr) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[host]
	return ok
}

// Shutdown clears every active attack, withdrawing outstanding mitigations.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	entries := make([]*activeAttack, 0, len(m.active))
	for host, entry := range m.active {
		delete(m.active, host)
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		m.finish(entry, "shutdown")
	}
}

// frozenMetricValue evaluates the metric a threshold type measures, in the
// direction frozen at onset.
func frozenMetricValue(t model.ThresholdType, direction model.Direction, c *model.SubnetCounter) uint64 {
	out := direction == model.DirectionOutgoing
	pick := func(section model.TrafficSection, bytes bool) uint64 {
		avg := c.Average[section]
		switch {
		case bytes && out:
			return uint64(avg.OutBytes)
		case bytes:
			return uint64(avg.InBytes)
		case out:
			return uint64(avg.OutPackets)
		default:
			return uint64(avg.InPackets)
		}
	}
	switch t {
	case model.ThresholdTCPSynPacketsPerSecond:
		return pick(model.SectionTCPSyn, false)
	case model.ThresholdTCPSynBytesPerSecond:
		return pick(model.SectionTCPSyn, true)
	case model.ThresholdTCPPacketsPerSecond:
		return pick(model.SectionTCP, false)
	case model.ThresholdTCPBytesPerSecond:
		return pick(model.SectionTCP, true)
	case model.ThresholdUDPPacketsPerSecond:
		return pick(model.SectionUDP, false)
	case model.ThresholdUDPBytesPerSecond:
		return pick(model.SectionUDP, true)
	case model.ThresholdICMPPacketsPerSecond:
		return pick(model.SectionICMP, false)
	case model.ThresholdICMPBytesPerSecond:
		return pick(model.SectionICMP, true)
	case model.ThresholdBytesPerSecond:
		return pick(model.SectionTotal, true)
	case model.ThresholdFlowsPerSecond:
		avg := c.Average[model.SectionTotal]
		if out {
			return uint64(avg.OutFlows)
		}
		return uint64(avg.InFlows)
	default:
		return pick(model.SectionTotal, false)
	}
}

func attackTypeFor(t model.ThresholdType) model.AttackType {
	switch t {
	case model.ThresholdTCPSynPacketsPerSecond, model.ThresholdTCPSynBytesPerSecond:
		return model.AttackSynFlood
	case model.ThresholdUDPPacketsPerSecond, model.ThresholdUDPBytesPerSecond:
		return model.AttackUDPFlood
	case model.ThresholdICMPPacketsPerSecond, model.ThresholdICMPBytesPerSecond:
		return model.AttackICMPFlood
	default:
		return model.AttackUnknown
	}
}

func protocolFor(t model.AttackType) uint8 {
	switch t {
	case model.AttackSynFlood:
		return model.ProtocolTCP
	case model.AttackUDPFlood:
		return model.ProtocolUDP
	case model.AttackICMPFlood:
		return model.ProtocolICMP
	default:
		return 0
	}
}

const (
	severityMiddlePPS = 100_000
	severityHighPPS   = 1_000_000
)

func classifySeverity(power uint64) model.Severity {
	switch {
	case power >= severityHighPPS:
		return model.SeverityHigh
	case power >= severityMiddlePPS:
		return model.SeverityMiddle
	default:
		return model.SeverityLow
	}
}
