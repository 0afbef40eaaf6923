package model

import (
	"fmt"
	"strings"
)

// AttackDescription renders the fixed prose report attached to attack
// notifications. Downstream consumers parse this text, so the labels and
// their ordering are frozen; do not edit without coordinating with every
// notification sink.
func AttackDescription(a *AttackDetails) string {
	var b strings.Builder

	total := a.Counters.Rate[SectionTotal]
	avg := a.Counters.Average[SectionTotal]

	fmt.Fprintf(&b, "Attack type: %s\n", a.Type)
	fmt.Fprintf(&b, "Initial attack power: %d packets per second\n", a.AttackPower)
	fmt.Fprintf(&b, "Peak attack power: %d packets per second\n", a.MaxAttackPower)
	fmt.Fprintf(&b, "Attack direction: %s\n", a.Direction)
	fmt.Fprintf(&b, "Attack protocol: %s\n", a.ProtocolName())

	fmt.Fprintf(&b, "Total incoming traffic: %d mbps\n", BytesPerSecondToMbps(float64(total.InBytes)))
	fmt.Fprintf(&b, "Total outgoing traffic: %d mbps\n", BytesPerSecondToMbps(float64(total.OutBytes)))
	fmt.Fprintf(&b, "Total incoming pps: %d packets per second\n", total.InPackets)
	fmt.Fprintf(&b, "Total outgoing pps: %d packets per second\n", total.OutPackets)
	fmt.Fprintf(&b, "Total incoming flows: %d flows per second\n", total.InFlows)
	fmt.Fprintf(&b, "Total outgoing flows: %d flows per second\n", total.OutFlows)

	fmt.Fprintf(&b, "Average incoming traffic: %d mbps\n", BytesPerSecondToMbps(avg.InBytes))
	fmt.Fprintf(&b, "Average outgoing traffic: %d mbps\n", BytesPerSecondToMbps(avg.OutBytes))
	fmt.Fprintf(&b, "Average incoming pps: %d packets per second\n", uint64(avg.InPackets))
	fmt.Fprintf(&b, "Average outgoing pps: %d packets per second\n", uint64(avg.OutPackets))
	fmt.Fprintf(&b, "Average incoming flows: %d flows per second\n", uint64(avg.InFlows))
	fmt.Fprintf(&b, "Average outgoing flows: %d flows per second\n", uint64(avg.OutFlows))

	fragmented := a.Counters.Rate[SectionFragmented]
	fmt.Fprintf(&b, "Incoming ip fragmented traffic: %d mbps\n", BytesPerSecondToMbps(float64(fragmented.InBytes)))
	fmt.Fprintf(&b, "Outgoing ip fragmented traffic: %d mbps\n", BytesPerSecondToMbps(float64(fragmented.OutBytes)))
	fmt.Fprintf(&b, "Incoming ip fragmented pps: %d packets per second\n", fragmented.InPackets)
	fmt.Fprintf(&b, "Outgoing ip fragmented pps: %d packets per second\n", fragmented.OutPackets)

	tcp := a.Counters.Rate[SectionTCP]
	fmt.Fprintf(&b, "Incoming tcp traffic: %d mbps\n", BytesPerSecondToMbps(float64(tcp.InBytes)))
	fmt.Fprintf(&b, "Outgoing tcp traffic: %d mbps\n", BytesPerSecondToMbps(float64(tcp.OutBytes)))
	fmt.Fprintf(&b, "Incoming tcp pps: %d packets per second\n", tcp.InPackets)
	fmt.Fprintf(&b, "Outgoing tcp pps: %d packets per second\n", tcp.OutPackets)

	syn := a.Counters.Rate[SectionTCPSyn]
	fmt.Fprintf(&b, "Incoming syn tcp traffic: %d mbps\n", BytesPerSecondToMbps(float64(syn.InBytes)))
	fmt.Fprintf(&b, "Outgoing syn tcp traffic: %d mbps\n", BytesPerSecondToMbps(float64(syn.OutBytes)))
	fmt.Fprintf(&b, "Incoming syn tcp pps: %d packets per second\n", syn.InPackets)
	fmt.Fprintf(&b, "Outgoing syn tcp pps: %d packets per second\n", syn.OutPackets)

	udp := a.Counters.Rate[SectionUDP]
	fmt.Fprintf(&b, "Incoming udp traffic: %d mbps\n", BytesPerSecondToMbps(float64(udp.InBytes)))
	fmt.Fprintf(&b, "Outgoing udp traffic: %d mbps\n", BytesPerSecondToMbps(float64(udp.OutBytes)))
	fmt.Fprintf(&b, "Incoming udp pps: %d packets per second\n", udp.InPackets)
	fmt.Fprintf(&b, "Outgoing udp pps: %d packets per second\n", udp.OutPackets)

	icmp := a.Counters.Rate[SectionICMP]
	fmt.Fprintf(&b, "Incoming icmp traffic: %d mbps\n", BytesPerSecondToMbps(float64(icmp.InBytes)))
	fmt.Fprintf(&b, "Outgoing icmp traffic: %d mbps\n", BytesPerSecondToMbps(float64(icmp.OutBytes)))
	fmt.Fprintf(&b, "Incoming icmp pps: %d packets per second\n", icmp.InPackets)
	fmt.Fprintf(&b, "Outgoing icmp pps: %d packets per second\n", icmp.OutPackets)

	return b.String()
}
