package probe

import (
	"net/netip"
	"testing"

	"github.com/mtasaka/fastnetmon/internal/model"
)

func samplePacket() *model.SimplePacket {
	return &model.SimplePacket{
		SrcAddr:     netip.MustParseAddr("192.0.2.1"),
		DstAddr:     netip.MustParseAddr("10.2.2.2"),
		SrcPort:     1234,
		DstPort:     80,
		Protocol:    model.ProtocolTCP,
		TCPFlags:    model.TCPFlagSYN,
		Fragmented:  false,
		Bytes:       1400,
		Packets:     1,
		SampleRatio: 512,
		TimestampNs: 1700000000000000000,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatProtobuf} {
		pkt := samplePacket()
		data, err := Encode(pkt, format)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", format, err)
		}
		got, err := Decode(data, format)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", format, err)
		}
		if got.SrcAddr != pkt.SrcAddr || got.DstAddr != pkt.DstAddr {
			t.Errorf("%s: addresses drifted: %s -> %s", format, got.SrcAddr, got.DstAddr)
		}
		if got.SrcPort != pkt.SrcPort || got.DstPort != pkt.DstPort || got.Protocol != pkt.Protocol {
			t.Errorf("%s: tuple drifted: %+v", format, got)
		}
		if got.Bytes != pkt.Bytes || got.Packets != pkt.Packets || got.SampleRatio != pkt.SampleRatio {
			t.Errorf("%s: counters drifted: %+v", format, got)
		}
		if got.TimestampNs != pkt.TimestampNs {
			t.Errorf("%s: timestamp drifted: %d", format, got.TimestampNs)
		}
		if got.TCPFlags != pkt.TCPFlags {
			t.Errorf("%s: tcp flags drifted: %d", format, got.TCPFlags)
		}
	}
}

func TestCodecRoundTripIPv6(t *testing.T) {
	pkt := samplePacket()
	pkt.SrcAddr = netip.MustParseAddr("2001:db8::1")
	pkt.DstAddr = netip.MustParseAddr("2001:db8::2")

	for _, format := range []Format{FormatJSON, FormatProtobuf} {
		data, err := Encode(pkt, format)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", format, err)
		}
		got, err := Decode(data, format)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", format, err)
		}
		if got.SrcAddr != pkt.SrcAddr || got.DstAddr != pkt.DstAddr {
			t.Errorf("%s: v6 addresses drifted: %s -> %s", format, got.SrcAddr, got.DstAddr)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("empty format should default to json, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format should be rejected")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{"), FormatJSON); err == nil {
		t.Error("truncated JSON should fail")
	}
	if _, err := Decode([]byte{0xff, 0xff, 0xff}, FormatProtobuf); err == nil {
		t.Error("garbage protobuf should fail")
	}
}
