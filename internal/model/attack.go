package model

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// ThresholdType identifies which configured threshold triggered an attack.
type ThresholdType int

const (
	ThresholdUnknown ThresholdType = iota

	ThresholdPacketsPerSecond
	ThresholdBytesPerSecond
	ThresholdFlowsPerSecond

	ThresholdTCPPacketsPerSecond
	ThresholdUDPPacketsPerSecond
	ThresholdICMPPacketsPerSecond

	ThresholdTCPBytesPerSecond
	ThresholdUDPBytesPerSecond
	ThresholdICMPBytesPerSecond

	ThresholdTCPSynPacketsPerSecond
	ThresholdTCPSynBytesPerSecond
)

func (t ThresholdType) String() string {
	switch t {
	case ThresholdPacketsPerSecond:
		return "packets_per_second"
	case ThresholdBytesPerSecond:
		return "bytes_per_second"
	case ThresholdFlowsPerSecond:
		return "flows_per_second"
	case ThresholdTCPPacketsPerSecond:
		return "tcp_packets_per_second"
	case ThresholdUDPPacketsPerSecond:
		return "udp_packets_per_second"
	case ThresholdICMPPacketsPerSecond:
		return "icmp_packets_per_second"
	case ThresholdTCPBytesPerSecond:
		return "tcp_bytes_per_second"
	case ThresholdUDPBytesPerSecond:
		return "udp_bytes_per_second"
	case ThresholdICMPBytesPerSecond:
		return "icmp_bytes_per_second"
	case ThresholdTCPSynPacketsPerSecond:
		return "tcp_syn_packets_per_second"
	case ThresholdTCPSynBytesPerSecond:
		return "tcp_syn_bytes_per_second"
	default:
		return "unknown"
	}
}

// Severity classification attached to an attack.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMiddle
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityHigh:
		return "high"
	default:
		return "middle"
	}
}

// AttackType names the traffic shape that dominated the triggering
// snapshot.
type AttackType int

const (
	AttackUnknown AttackType = iota
	AttackSynFlood
	AttackICMPFlood
	AttackUDPFlood
	AttackIPFragmentationFlood
)

func (t AttackType) String() string {
	switch t {
	case AttackSynFlood:
		return "syn_flood"
	case AttackICMPFlood:
		return "icmp_flood"
	case AttackUDPFlood:
		return "udp_flood"
	case AttackIPFragmentationFlood:
		return "ip_fragmentation_flood"
	default:
		return "unknown"
	}
}

// DetectionSource records whether the detection was automatic or requested
// by an operator.
type DetectionSource int

const (
	DetectionAutomatic DetectionSource = iota
	DetectionManual
)

func (s DetectionSource) String() string {
	if s == DetectionManual {
		return "manual"
	}
	return "automatic"
}

// AttackDetails describes one attack against one host. It contains a
// counter snapshot taken at detection time rather than extending the
// counter type; the only polymorphism the lifecycle needs lives in the
// Notifier and Mitigator hooks.
type AttackDetails struct {
	UUID uuid.UUID

	Host    netip.Addr
	Network netip.Prefix

	HostGroup       string
	ParentHostGroup string

	Direction Direction

	// AttackPower is the packet rate first seen at detection;
	// MaxAttackPower tracks the peak over the attack lifetime.
	AttackPower    uint64
	MaxAttackPower uint64

	// Protocol is the L4 protocol number of the dominant traffic shape,
	// zero when unknown.
	Protocol uint8

	Type     AttackType
	Severity Severity
	Source   DetectionSource

	Threshold          ThresholdType
	ThresholdDirection Direction

	BanTimestamp time.Time
	// BanTime of zero means the ban holds until cleared.
	BanTime      time.Duration
	UnbanEnabled bool

	// Counters is the accounting snapshot captured at detection time.
	Counters SubnetCounter

	// Degraded is set when a lifecycle hook overran its budget.
	Degraded bool
	// MitigationFailed is set while the mitigation announcement is being
	// retried.
	MitigationFailed bool
}

// GenerateUUID assigns a fresh random identifier. On entropy failure the
// attack keeps the all-zero sentinel UUID and the caller is expected to log
// a warning; detection itself must proceed.
func (a *AttackDetails) GenerateUUID() bool {
	id, err := uuid.NewRandom()
	if err != nil {
		a.UUID = uuid.UUID{}
		return false
	}
	a.UUID = id
	return true
}

// ProtocolFamilyName reports the address family the attack was detected on.
func (a *AttackDetails) ProtocolFamilyName() string {
	if a.Host.Is6() && !a.Host.Is4In6() {
		return "IPv6"
	}
	return "IPv4"
}

// ProtocolName names the dominant L4 protocol of the attack.
func (a *AttackDetails) ProtocolName() string {
	switch a.Protocol {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolICMP, ProtocolICMPv6:
		return "icmp"
	default:
		return "unknown"
	}
}

// Notifier observes the attack lifecycle. Implementations must be bounded;
// the attack manager enforces a per-hook budget.
type Notifier interface {
	OnAttackOnset(attack *AttackDetails, description string) error
	OnAttackPeak(attack *AttackDetails) error
	OnAttackClear(attack *AttackDetails, description string) error
}

// Mitigator announces and withdraws mitigation for an attack, typically by
// handing a Flow Spec or blackhole rule to a BGP speaker.
type Mitigator interface {
	Announce(attack *AttackDetails) error
	Withdraw(attack *AttackDetails) error
}
