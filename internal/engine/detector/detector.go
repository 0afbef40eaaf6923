// Package detector walks the counter engine's per-tick snapshot and
// compares every host's moving-average rates against the ban policy of its
// host group. The rule evaluation order is fixed so the reported triggering
// threshold is deterministic when several rules exceed in the same tick.
package detector

import (
	"net/netip"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/resolver"
)

// Event reports one host exceeding policy in one tick.
type Event struct {
	Host            netip.Addr
	Network         netip.Prefix
	HostGroup       string
	ParentHostGroup string

	Threshold model.ThresholdType
	Direction model.Direction

	// AttackPower is the total packet rate in the attack direction at the
	// time of detection.
	AttackPower uint64

	Counters model.SubnetCounter
}

// evaluationOrder fixes the tie-break sequence between rules firing in the
// same tick. Must stay stable: the reported threshold type is part of the
// operator-facing contract.
var evaluationOrder = []model.ThresholdType{
	model.ThresholdTCPSynPacketsPerSecond,
	model.ThresholdTCPPacketsPerSecond,
	model.ThresholdUDPPacketsPerSecond,
	model.ThresholdICMPPacketsPerSecond,
	model.ThresholdTCPBytesPerSecond,
	model.ThresholdUDPBytesPerSecond,
	model.ThresholdICMPBytesPerSecond,
	model.ThresholdPacketsPerSecond,
	model.ThresholdBytesPerSecond,
	model.ThresholdFlowsPerSecond,
}

// Detector evaluates snapshots against host-group ban policies.
type Detector struct {
	resolver *resolver.Resolver
	// banIPv6 gates the whole IPv6 detection path.
	banIPv6 bool
	log     *logrus.Logger
}

// New creates a detector.
func New(res *resolver.Resolver, banIPv6 bool, log *logrus.Logger) *Detector {
	return &Detector{resolver: res, banIPv6: banIPv6, log: log}
}

// Evaluate walks one snapshot and returns at most one event per host.
// Hosts are visited in address order so the event sequence for a given
// input trace is identical across runs.
func (d *Detector) Evaluate(snap *traffic.Snapshot) []Event {
	hosts := make([]netip.Addr, 0, len(snap.Hosts))
	for addr := range snap.Hosts {
		hosts = append(hosts, addr)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Compare(hosts[j]) < 0 })

	var events []Event
	for _, addr := range hosts {
		rates := snap.Hosts[addr]
		if addr.Is6() && !addr.Is4In6() && !d.banIPv6 {
			continue
		}
		settings := d.resolver.EffectiveBanSettings(rates.HostGroup)
		if !settings.Enabled() {
			continue
		}
		threshold, direction, ok := firstExceeded(settings, &rates.Counters)
		if !ok {
			continue
		}
		events = append(events, Event{
			Host:            addr,
			Network:         rates.Network,
			HostGroup:       rates.HostGroup,
			ParentHostGroup: rates.ParentHostGroup,
			Threshold:       threshold,
			Direction:       direction,
			AttackPower:     attackPower(&rates.Counters, direction),
			Counters:        rates.Counters,
		})
	}
	return events
}

// attackPower is the total packet rate in the given direction.
func attackPower(c *model.SubnetCounter, direction model.Direction) uint64 {
	avg := c.Average[model.SectionTotal]
	if direction == model.DirectionOutgoing {
		return uint64(avg.OutPackets)
	}
	return uint64(avg.InPackets)
}

// firstExceeded runs the fixed evaluation order, checking the incoming
// average before the outgoing one for each rule. The first exceed wins.
func firstExceeded(settings model.BanSettings, c *model.SubnetCounter) (model.ThresholdType, model.Direction, bool) {
	for _, threshold := range evaluationOrder {
		enabled, limit, section, metric := ruleParameters(settings, threshold)
		if !enabled {
			continue
		}
		avg := c.Average[section]
		if metricValue(avg, metric, model.DirectionIncoming) > limit {
			return threshold, model.DirectionIncoming, true
		}
		if metricValue(avg, metric, model.DirectionOutgoing) > limit {
			return threshold, model.DirectionOutgoing, true
		}
	}
	return model.ThresholdUnknown, model.DirectionOther, false
}

type metricKind int

const (
	metricPackets metricKind = iota
	metricBytes
	metricFlows
)

// ruleParameters maps a threshold type onto its enable flag, numeric limit
// (already converted to the compared unit), counter section and metric.
func ruleParameters(s model.BanSettings, t model.ThresholdType) (bool, float64, model.TrafficSection, metricKind) {
	switch t {
	case model.ThresholdTCPSynPacketsPerSecond:
		// The SYN channel shares the TCP pps rule; it is consulted first so
		// a SYN flood is reported as such.
		return s.EnableBanForTCPPPS, float64(s.ThresholdTCPPPS), model.SectionTCPSyn, metricPackets
	case model.ThresholdTCPPacketsPerSecond:
		return s.EnableBanForTCPPPS, float64(s.ThresholdTCPPPS), model.SectionTCP, metricPackets
	case model.ThresholdUDPPacketsPerSecond:
		return s.EnableBanForUDPPPS, float64(s.ThresholdUDPPPS), model.SectionUDP, metricPackets
	case model.ThresholdICMPPacketsPerSecond:
		return s.EnableBanForICMPPPS, float64(s.ThresholdICMPPPS), model.SectionICMP, metricPackets
	case model.ThresholdTCPBytesPerSecond:
		return s.EnableBanForTCPBandwidth, model.MbpsToBytesPerSecond(s.ThresholdTCPMbps), model.SectionTCP, metricBytes
	case model.ThresholdUDPBytesPerSecond:
		return s.EnableBanForUDPBandwidth, model.MbpsToBytesPerSecond(s.ThresholdUDPMbps), model.SectionUDP, metricBytes
	case model.ThresholdICMPBytesPerSecond:
		return s.EnableBanForICMPBandwidth, model.MbpsToBytesPerSecond(s.ThresholdICMPMbps), model.SectionICMP, metricBytes
	case model.ThresholdPacketsPerSecond:
		return s.EnableBanForPPS, float64(s.ThresholdPPS), model.SectionTotal, metricPackets
	case model.ThresholdBytesPerSecond:
		return s.EnableBanForBandwidth, model.MbpsToBytesPerSecond(s.ThresholdMbps), model.SectionTotal, metricBytes
	case model.ThresholdFlowsPerSecond:
		return s.EnableBanForFlows, float64(s.ThresholdFlows), model.SectionTotal, metricFlows
	default:
		return false, 0, model.SectionTotal, metricPackets
	}
}

func metricValue(avg model.AverageElement, metric metricKind, direction model.Direction) float64 {
	switch metric {
	case metricBytes:
		if direction == model.DirectionOutgoing {
			return avg.OutBytes
		}
		return avg.InBytes
	case metricFlows:
		if direction == model.DirectionOutgoing {
			return avg.OutFlows
		}
		return avg.InFlows
	default:
		if direction == model.DirectionOutgoing {
			return avg.OutPackets
		}
		return avg.InPackets
	}
}
