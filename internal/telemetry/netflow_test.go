package telemetry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net/netip"
	"testing"

	"github.com/mtasaka/fastnetmon/internal/model"
)

var exporter = netip.MustParseAddrPort("203.0.113.9:2055")

func be16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.BigEndian, v) }
func be32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.BigEndian, v) }

func v5Datagram(dPkts, dOctets uint32) []byte {
	var buf bytes.Buffer
	// header
	be16(&buf, 5) // version
	be16(&buf, 1) // count
	be32(&buf, 0) // sysUptime
	be32(&buf, 0) // unixSecs
	be32(&buf, 0) // unixNsecs
	be32(&buf, 0) // flowSequence
	be16(&buf, 0) // engine
	be16(&buf, 0) // samplingInterval (informational only)
	// record
	buf.Write([]byte{10, 1, 1, 1}) // srcaddr
	buf.Write([]byte{10, 2, 2, 2}) // dstaddr
	buf.Write([]byte{0, 0, 0, 0})  // nexthop
	be16(&buf, 7)                  // input
	be16(&buf, 9)                  // output
	be32(&buf, dPkts)
	be32(&buf, dOctets)
	be32(&buf, 0)    // first
	be32(&buf, 0)    // last
	be16(&buf, 1234) // srcport
	be16(&buf, 80)   // dstport
	buf.WriteByte(0) // pad
	buf.WriteByte(model.TCPFlagSYN | model.TCPFlagACK)
	buf.WriteByte(model.ProtocolTCP)
	buf.WriteByte(0) // tos
	be16(&buf, 0)    // src_as
	be16(&buf, 0)    // dst_as
	buf.WriteByte(24)
	buf.WriteByte(24)
	be16(&buf, 0) // pad2
	return buf.Bytes()
}

func TestNetflowV5RecordArithmetic(t *testing.T) {
	p := NewNetflowParser(100)

	packets, err := p.Parse(v5Datagram(10, 5000), exporter)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 record, got %d", len(packets))
	}

	pkt := packets[0]
	if pkt.SrcAddr != netip.MustParseAddr("10.1.1.1") || pkt.DstAddr != netip.MustParseAddr("10.2.2.2") {
		t.Errorf("addresses wrong: %s -> %s", pkt.SrcAddr, pkt.DstAddr)
	}
	// The configured sampling ratio multiplies the record counters; the
	// output record itself carries ratio 1 so nothing is counted twice.
	if pkt.Packets != 10*100 {
		t.Errorf("expected %d packets, got %d", 10*100, pkt.Packets)
	}
	if pkt.Bytes != 5000*100 {
		t.Errorf("expected %d bytes, got %d", 5000*100, pkt.Bytes)
	}
	if pkt.SampleRatio != 1 {
		t.Errorf("v5 records must carry sample ratio 1, got %d", pkt.SampleRatio)
	}
	if pkt.Protocol != model.ProtocolTCP || pkt.SrcPort != 1234 || pkt.DstPort != 80 {
		t.Errorf("tuple wrong: proto %d %d -> %d", pkt.Protocol, pkt.SrcPort, pkt.DstPort)
	}
	if pkt.InputInterface != 7 || pkt.OutputInterface != 9 {
		t.Errorf("interfaces wrong: %d -> %d", pkt.InputInterface, pkt.OutputInterface)
	}
}

func TestNetflowV5TruncatedRejected(t *testing.T) {
	p := NewNetflowParser(1)
	data := v5Datagram(1, 100)

	if _, err := p.Parse(data[:30], exporter); err == nil {
		t.Error("truncated v5 datagram should be rejected")
	}
	if _, err := p.Parse(data[:1], exporter); err == nil {
		t.Error("sub-version-field datagram should be rejected")
	}
}

func v9Header(buf *bytes.Buffer, count uint16, sourceID uint32) {
	be16(buf, 9)
	be16(buf, count)
	be32(buf, 0) // sysUptime
	be32(buf, 0) // unixSecs
	be32(buf, 0) // sequence
	be32(buf, sourceID)
}

func v9Template(templateID uint16, fields [][2]uint16) []byte {
	var buf bytes.Buffer
	be16(&buf, 0) // template flowset
	be16(&buf, uint16(4+4+len(fields)*4))
	be16(&buf, templateID)
	be16(&buf, uint16(len(fields)))
	for _, f := range fields {
		be16(&buf, f[0])
		be16(&buf, f[1])
	}
	return buf.Bytes()
}

var v9Fields = [][2]uint16{
	{fieldIPv4SrcAddr, 4},
	{fieldIPv4DstAddr, 4},
	{fieldInPackets, 4},
	{fieldInBytes, 4},
	{fieldProtocol, 1},
}

func v9Data(templateID uint16) []byte {
	var buf bytes.Buffer
	be16(&buf, templateID)
	be16(&buf, 4+17)
	buf.Write([]byte{10, 1, 1, 1})
	buf.Write([]byte{10, 2, 2, 2})
	be32(&buf, 42)
	be32(&buf, 6400)
	buf.WriteByte(model.ProtocolUDP)
	return buf.Bytes()
}

func TestNetflowV9DataBeforeTemplateDiscarded(t *testing.T) {
	p := NewNetflowParser(1)

	var buf bytes.Buffer
	v9Header(&buf, 1, 5)
	buf.Write(v9Data(300))

	packets, err := p.Parse(buf.Bytes(), exporter)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(packets) != 0 {
		t.Errorf("data without a known template must be discarded, got %d records", len(packets))
	}
	if p.MissingTemplates() != 1 {
		t.Errorf("missing-template counter should be 1, got %d", p.MissingTemplates())
	}
}

func TestNetflowV9TemplateThenData(t *testing.T) {
	p := NewNetflowParser(1)

	var buf bytes.Buffer
	v9Header(&buf, 2, 5)
	buf.Write(v9Template(300, v9Fields))
	buf.Write(v9Data(300))

	packets, err := p.Parse(buf.Bytes(), exporter)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 record, got %d", len(packets))
	}
	pkt := packets[0]
	if pkt.SrcAddr != netip.MustParseAddr("10.1.1.1") {
		t.Errorf("src address wrong: %s", pkt.SrcAddr)
	}
	if pkt.Packets != 42 || pkt.Bytes != 6400 {
		t.Errorf("counters wrong: %d packets %d bytes", pkt.Packets, pkt.Bytes)
	}
	if pkt.Protocol != model.ProtocolUDP {
		t.Errorf("protocol wrong: %d", pkt.Protocol)
	}
}

func TestNetflowV9TemplateCacheIsPerSource(t *testing.T) {
	p := NewNetflowParser(1)

	var tmpl bytes.Buffer
	v9Header(&tmpl, 1, 5)
	tmpl.Write(v9Template(300, v9Fields))
	if _, err := p.Parse(tmpl.Bytes(), exporter); err != nil {
		t.Fatalf("template parse failed: %v", err)
	}

	var data bytes.Buffer
	v9Header(&data, 1, 5)
	data.Write(v9Data(300))

	other := netip.MustParseAddrPort("198.51.100.7:2055")
	packets, _ := p.Parse(data.Bytes(), other)
	if len(packets) != 0 {
		t.Error("a template learned from one exporter must not decode another exporter's data")
	}

	packets, _ = p.Parse(data.Bytes(), exporter)
	if len(packets) != 1 {
		t.Errorf("the owning exporter's data should decode, got %d records", len(packets))
	}
}

func TestNetflowV9TemplateReplacement(t *testing.T) {
	p := NewNetflowParser(1)

	var first bytes.Buffer
	v9Header(&first, 2, 5)
	first.Write(v9Template(300, v9Fields))
	first.Write(v9Data(300))
	if packets, _ := p.Parse(first.Bytes(), exporter); len(packets) != 1 {
		t.Fatalf("initial template+data should decode, got %d", len(packets))
	}

	// The replacement template swaps the layout: bytes before packets.
	replacement := [][2]uint16{
		{fieldIPv4SrcAddr, 4},
		{fieldIPv4DstAddr, 4},
		{fieldInBytes, 4},
		{fieldInPackets, 4},
		{fieldProtocol, 1},
	}
	var second bytes.Buffer
	v9Header(&second, 2, 5)
	second.Write(v9Template(300, replacement))
	second.Write(v9Data(300))

	packets, err := p.Parse(second.Bytes(), exporter)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 record, got %d", len(packets))
	}
	// Same data bytes, new field order: 42 is now the byte counter.
	if packets[0].Bytes != 42 || packets[0].Packets != 6400 {
		t.Errorf("replacement template not in force: %d packets %d bytes",
			packets[0].Packets, packets[0].Bytes)
	}
}

func TestIPFIXVariableLengthField(t *testing.T) {
	p := NewNetflowParser(1)

	var body bytes.Buffer
	// template set: src addr, one variable-length field, byte counter
	be16(&body, 2)
	be16(&body, 4+4+3*4)
	be16(&body, 400)
	be16(&body, 3)
	be16(&body, fieldIPv4SrcAddr)
	be16(&body, 4)
	be16(&body, 95) // applicationDescription, ignored but consumed
	be16(&body, ipfixVariableLength)
	be16(&body, fieldInBytes)
	be16(&body, 4)
	// data set
	var rec bytes.Buffer
	rec.Write([]byte{10, 1, 1, 1})
	rec.WriteByte(3)
	rec.Write([]byte("abc"))
	be32(&rec, 7777)
	be16(&body, 400)
	be16(&body, uint16(4+rec.Len()))
	body.Write(rec.Bytes())

	var buf bytes.Buffer
	be16(&buf, 10)
	be16(&buf, uint16(16+body.Len()))
	be32(&buf, 0) // exportTime
	be32(&buf, 0) // sequence
	be32(&buf, 7) // observation domain
	buf.Write(body.Bytes())

	packets, err := p.Parse(buf.Bytes(), exporter)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 record, got %d", len(packets))
	}
	if packets[0].SrcAddr != netip.MustParseAddr("10.1.1.1") {
		t.Errorf("src address wrong: %s", packets[0].SrcAddr)
	}
	if packets[0].Bytes != 7777 {
		t.Errorf("byte counter after variable-length field wrong: %d", packets[0].Bytes)
	}
}

func TestNetflowUnknownVersionRejected(t *testing.T) {
	p := NewNetflowParser(1)
	var buf bytes.Buffer
	be16(&buf, 7)
	buf.Write(make([]byte, 30))

	_, err := p.Parse(buf.Bytes(), exporter)
	if err == nil {
		t.Fatal("unknown version should be rejected")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Reason != "bad_version" {
		t.Errorf("expected bad_version decode error, got %v", err)
	}
}
