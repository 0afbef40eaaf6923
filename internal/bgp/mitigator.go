package bgp

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// Speaker receives serialised announcements. Implementations bridge to the
// actual BGP daemon (ExaBGP pipe, GoBGP API, operator tooling).
type Speaker interface {
	Announce(rule string) error
	Withdraw(rule string) error
}

// LogSpeaker records announcements in the log only. It stands in when no
// BGP daemon is configured, keeping the attack lifecycle observable.
type LogSpeaker struct {
	Log *logrus.Logger
}

func (s *LogSpeaker) Announce(rule string) error {
	s.Log.WithField("rule", rule).Info("bgp announce")
	return nil
}

func (s *LogSpeaker) Withdraw(rule string) error {
	s.Log.WithField("rule", rule).Info("bgp withdraw")
	return nil
}

// Mitigator translates attacks into Flow Spec or blackhole rules and hands
// them to a Speaker. It remembers the exact rule announced per attack UUID
// so the withdrawal always matches the announcement.
type Mitigator struct {
	speaker Speaker
	// Blackhole switches from per-attack Flow Spec rules to plain
	// destination blackholing.
	blackhole bool
	log       *logrus.Logger

	mu        sync.Mutex
	announced map[string]string
}

// NewMitigator creates a mitigator over the given speaker.
func NewMitigator(speaker Speaker, blackhole bool, log *logrus.Logger) *Mitigator {
	return &Mitigator{
		speaker:   speaker,
		blackhole: blackhole,
		log:       log,
		announced: make(map[string]string),
	}
}

// ruleFor builds the mitigation rule for an attack. Blackhole mode drops
// everything towards the host; Flow Spec mode narrows the match to the
// attack's dominant protocol when one is known.
func (m *Mitigator) ruleFor(attack *model.AttackDetails) string {
	if m.blackhole {
		rule := BlackholeRule(attack.Host)
		return rule.Serialize()
	}
	var rule Rule
	rule.DestinationPrefix = model.HostPrefix(attack.Host)
	if attack.Protocol != 0 {
		rule.Protocols = []uint16{uint16(attack.Protocol)}
	}
	if attack.Type == model.AttackIPFragmentationFlood {
		rule.Fragmented = true
	}
	rule.Action.SetType(ActionDiscard)
	return rule.Serialize()
}

// Announce serialises and announces the mitigation rule for an attack.
func (m *Mitigator) Announce(attack *model.AttackDetails) error {
	rule := m.ruleFor(attack)
	if err := m.speaker.Announce(rule); err != nil {
		return fmt.Errorf("announce for %s: %w", attack.Host, err)
	}
	m.mu.Lock()
	m.announced[attack.UUID.String()] = rule
	m.mu.Unlock()
	return nil
}

// Withdraw retracts whatever was announced for the attack. Withdrawing an
// attack that was never announced is a no-op.
func (m *Mitigator) Withdraw(attack *model.AttackDetails) error {
	m.mu.Lock()
	rule, ok := m.announced[attack.UUID.String()]
	if ok {
		delete(m.announced, attack.UUID.String())
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := m.speaker.Withdraw(rule); err != nil {
		return fmt.Errorf("withdraw for %s: %w", attack.Host, err)
	}
	return nil
}
