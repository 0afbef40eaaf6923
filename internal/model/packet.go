package model

import (
	"fmt"
	"net/netip"
)

// L4 protocol numbers we account separately.
const (
	ProtocolICMP   = 1
	ProtocolTCP    = 6
	ProtocolUDP    = 17
	ProtocolICMPv6 = 58
)

// TCP flag bits as they appear on the wire.
const (
	TCPFlagFIN = 1 << 0
	TCPFlagSYN = 1 << 1
	TCPFlagRST = 1 << 2
	TCPFlagPSH = 1 << 3
	TCPFlagACK = 1 << 4
	TCPFlagURG = 1 << 5
)

// MaxPayloadBytes bounds the payload slice carried by a SimplePacket when
// packet capture is enabled.
const MaxPayloadBytes = 128

// Direction of traffic relative to a monitored host.
type Direction int

const (
	DirectionOther Direction = iota
	DirectionIncoming
	DirectionOutgoing
)

func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "incoming"
	case DirectionOutgoing:
		return "outgoing"
	default:
		return "other"
	}
}

// SimplePacket is the canonical record produced by telemetry intake and
// consumed by everything downstream. One record may describe more than one
// observed packet when the source is a sampled or flow-based exporter.
type SimplePacket struct {
	SrcAddr netip.Addr
	DstAddr netip.Addr

	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	Fragmented bool
	TCPFlags   uint8

	InputInterface  uint32
	OutputInterface uint32

	// Bytes and Packets are the observed amounts before sample-ratio
	// correction. Both are at least 1 for a well-formed record.
	Bytes   uint64
	Packets uint64

	// SampleRatio is the divisor applied by the exporter. Observed counts
	// are multiplied by it to estimate the true rate.
	SampleRatio uint32

	// TimestampNs is the capture timestamp in monotonic nanoseconds.
	TimestampNs int64

	// Payload holds the leading bytes of the frame, at most MaxPayloadBytes,
	// and only when capture is enabled on the intake.
	Payload []byte
}

// IsIPv6 reports whether the record describes IPv6 traffic.
func (p *SimplePacket) IsIPv6() bool {
	return p.SrcAddr.Is6() && !p.SrcAddr.Is4In6()
}

// SYNOnly reports whether the record is a TCP segment with SYN set and ACK
// clear, the shape counted by the tcp_syn channel.
func (p *SimplePacket) SYNOnly() bool {
	return p.Protocol == ProtocolTCP && p.TCPFlags&TCPFlagSYN != 0 && p.TCPFlags&TCPFlagACK == 0
}

func (p *SimplePacket) String() string {
	return fmt.Sprintf("%s:%d > %s:%d proto %d bytes %d packets %d ratio %d",
		p.SrcAddr, p.SrcPort, p.DstAddr, p.DstPort, p.Protocol, p.Bytes, p.Packets, p.SampleRatio)
}

// PacketSink consumes normalised packet records. Intake holds one sink per
// enabled downstream and never blocks on it.
type PacketSink interface {
	Consume(pkt *SimplePacket)
}
