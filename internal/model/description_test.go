package model

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// The report text is a frozen contract with notification consumers: a
// blank attack must serialise to exactly this blob, labels and ordering
// included.
const blankAttackDescription = "Attack type: unknown\nInitial attack power: 0 packets per second\nPeak attack power: 0 " +
	"packets per second\nAttack direction: other\nAttack protocol: unknown\nTotal incoming " +
	"traffic: 0 mbps\nTotal outgoing traffic: 0 mbps\nTotal incoming pps: 0 packets per " +
	"second\nTotal outgoing pps: 0 packets per second\nTotal incoming flows: 0 flows per " +
	"second\nTotal outgoing flows: 0 flows per second\nAverage incoming traffic: 0 mbps\nAverage " +
	"outgoing traffic: 0 mbps\nAverage incoming pps: 0 packets per second\nAverage outgoing pps: 0 " +
	"packets per second\nAverage incoming flows: 0 flows per second\nAverage outgoing flows: 0 " +
	"flows per second\nIncoming ip fragmented traffic: 0 mbps\nOutgoing ip fragmented traffic: 0 " +
	"mbps\nIncoming ip fragmented pps: 0 packets per second\nOutgoing ip fragmented pps: 0 packets " +
	"per second\nIncoming tcp traffic: 0 mbps\nOutgoing tcp traffic: 0 mbps\nIncoming tcp pps: 0 " +
	"packets per second\nOutgoing tcp pps: 0 packets per second\nIncoming syn tcp traffic: 0 " +
	"mbps\nOutgoing syn tcp traffic: 0 mbps\nIncoming syn tcp pps: 0 packets per second\nOutgoing " +
	"syn tcp pps: 0 packets per second\nIncoming udp traffic: 0 mbps\nOutgoing udp traffic: 0 " +
	"mbps\nIncoming udp pps: 0 packets per second\nOutgoing udp pps: 0 packets per " +
	"second\nIncoming icmp traffic: 0 mbps\nOutgoing icmp traffic: 0 mbps\nIncoming icmp pps: 0 " +
	"packets per second\nOutgoing icmp pps: 0 packets per second\n"

func TestBlankAttackDescription(t *testing.T) {
	var attack AttackDetails
	got := AttackDescription(&attack)
	if got != blankAttackDescription {
		t.Errorf("blank attack description drifted.\nexpected:\n%q\ngot:\n%q", blankAttackDescription, got)
	}
}

func TestDescriptionCarriesRates(t *testing.T) {
	var attack AttackDetails
	attack.AttackPower = 120000
	attack.MaxAttackPower = 150000
	attack.Direction = DirectionIncoming
	attack.Protocol = ProtocolUDP
	attack.Counters.Rate[SectionTotal].InPackets = 120000
	attack.Counters.Rate[SectionUDP].InPackets = 119000

	got := AttackDescription(&attack)
	for _, want := range []string{
		"Initial attack power: 120000 packets per second\n",
		"Peak attack power: 150000 packets per second\n",
		"Attack direction: incoming\n",
		"Attack protocol: udp\n",
		"Total incoming pps: 120000 packets per second\n",
		"Incoming udp pps: 119000 packets per second\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("description missing %q", want)
		}
	}
}

func TestGenerateUUIDIsNonZero(t *testing.T) {
	var attack AttackDetails
	if !attack.GenerateUUID() {
		t.Skip("entropy unavailable")
	}
	if attack.UUID == uuid.Nil {
		t.Error("generated UUID should not be the zero sentinel")
	}

	var other AttackDetails
	other.GenerateUUID()
	if attack.UUID == other.UUID {
		t.Error("two generated UUIDs should differ")
	}
}
