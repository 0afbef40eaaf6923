package telemetry

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// RawDecoder turns one link-layer frame into a SimplePacket. It is used by
// the mirror path on whole frames and by the sFlow parser on the embedded
// header sample. A DecodingLayerParser keeps the steady state free of
// per-packet allocations; each ingest worker owns its own decoder.
type RawDecoder struct {
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType

	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	icmp4   layers.ICMPv4
	icmp6   layers.ICMPv6
	payload gopacket.Payload

	// capturePayload keeps the leading frame bytes on the record for the
	// attack capture ring.
	capturePayload bool
}

// NewRawDecoder creates a decoder. Pass capturePayload true when packet
// capture is enabled in the configuration.
func NewRawDecoder(capturePayload bool) *RawDecoder {
	d := &RawDecoder{capturePayload: capturePayload}
	d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet,
		&d.eth, &d.dot1q, &d.ip4, &d.ip6, &d.tcp, &d.udp, &d.icmp4, &d.icmp6, &d.payload)
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode parses an Ethernet II frame with an optional single 802.1Q tag,
// IPv4 (options included) or IPv6, and TCP/UDP/ICMP on top. frameLength is
// the original wire length when the frame was truncated by the exporter;
// pass zero to use len(frame).
func (d *RawDecoder) Decode(frame []byte, frameLength uint64, sampleRatio uint32, timestampNs int64) (model.SimplePacket, error) {
	var pkt model.SimplePacket

	if err := d.parser.DecodeLayers(frame, &d.decoded); err != nil {
		return pkt, fmt.Errorf("frame decode: %w", err)
	}

	if frameLength == 0 {
		frameLength = uint64(len(frame))
	}
	pkt.Bytes = frameLength
	pkt.Packets = 1
	pkt.SampleRatio = sampleRatio
	pkt.TimestampNs = timestampNs

	sawNetwork := false
	for _, layerType := range d.decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			srcAddr, _ := netipAddr(d.ip4.SrcIP)
			dstAddr, _ := netipAddr(d.ip4.DstIP)
			pkt.SrcAddr = srcAddr
			pkt.DstAddr = dstAddr
			pkt.Protocol = uint8(d.ip4.Protocol)
			pkt.Fragmented = d.ip4.Flags&layers.IPv4MoreFragments != 0 || d.ip4.FragOffset > 0
			sawNetwork = true
		case layers.LayerTypeIPv6:
			srcAddr, _ := netipAddr(d.ip6.SrcIP)
			dstAddr, _ := netipAddr(d.ip6.DstIP)
			pkt.SrcAddr = srcAddr
			pkt.DstAddr = dstAddr
			pkt.Protocol = uint8(d.ip6.NextHeader)
			sawNetwork = true
		case layers.LayerTypeTCP:
			pkt.SrcPort = uint16(d.tcp.SrcPort)
			pkt.DstPort = uint16(d.tcp.DstPort)
			pkt.TCPFlags = tcpFlagBits(&d.tcp)
		case layers.LayerTypeUDP:
			pkt.SrcPort = uint16(d.udp.SrcPort)
			pkt.DstPort = uint16(d.udp.DstPort)
		}
	}

	if !sawNetwork {
		return pkt, fmt.Errorf("frame decode: no IP layer")
	}

	if d.capturePayload {
		n := len(frame)
		if n > model.MaxPayloadBytes {
			n = model.MaxPayloadBytes
		}
		pkt.Payload = append([]byte(nil), frame[:n]...)
	}

	return pkt, nil
}

func tcpFlagBits(tcp *layers.TCP) uint8 {
	var flags uint8
	if tcp.FIN {
		flags |= model.TCPFlagFIN
	}
	if tcp.SYN {
		flags |= model.TCPFlagSYN
	}
	if tcp.RST {
		flags |= model.TCPFlagRST
	}
	if tcp.PSH {
		flags |= model.TCPFlagPSH
	}
	if tcp.ACK {
		flags |= model.TCPFlagACK
	}
	if tcp.URG {
		flags |= model.TCPFlagURG
	}
	return flags
}
