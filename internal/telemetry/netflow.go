package telemetry

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// NetFlow/IPFIX wire constants. One listener port serves all three
// versions; the header version field selects the decoder.
const (
	netflowV5 = 5
	netflowV9 = 9
	ipfixV10  = 10

	netflowV5HeaderLen = 24
	netflowV5RecordLen = 48
	netflowV9HeaderLen = 20
	ipfixHeaderLen     = 16

	// IPFIX variable-length field marker in templates.
	ipfixVariableLength = 65535
)

// Template-driven field types shared by NetFlow v9 and IPFIX.
const (
	fieldInBytes          = 1
	fieldInPackets        = 2
	fieldProtocol         = 4
	fieldTCPFlags         = 6
	fieldL4SrcPort        = 7
	fieldIPv4SrcAddr      = 8
	fieldInputSNMP        = 10
	fieldL4DstPort        = 11
	fieldIPv4DstAddr      = 12
	fieldOutputSNMP       = 14
	fieldIPv6SrcAddr      = 27
	fieldIPv6DstAddr      = 28
	fieldSamplingInterval = 34
	fieldFragmentOffset   = 88
)

type templateKey struct {
	source     netip.Addr
	domain     uint32
	templateID uint16
}

type templateField struct {
	fieldType uint16
	length    uint16
}

type templateRecord struct {
	fields []templateField
	// fixedLength is the record size when no field is variable-length.
	fixedLength int
	variable    bool
}

// NetflowParser decodes NetFlow v5, NetFlow v9 and IPFIX datagrams. The
// template cache is keyed by (exporter, observation domain, template id)
// and belongs to the owning listener goroutine; no locking.
type NetflowParser struct {
	// v5SamplingRatio multiplies v5 record counters; the v5 header's own
	// sampling field is informational only.
	v5SamplingRatio uint32

	templates map[templateKey]*templateRecord

	missingTemplates uint64
}

// NewNetflowParser creates a parser with the configured v5 sampling ratio.
func NewNetflowParser(v5SamplingRatio uint32) *NetflowParser {
	if v5SamplingRatio == 0 {
		v5SamplingRatio = 1
	}
	return &NetflowParser{
		v5SamplingRatio: v5SamplingRatio,
		templates:       make(map[templateKey]*templateRecord),
	}
}

func (p *NetflowParser) Name() string {
	return "netflow"
}

// MissingTemplates reports how many data records were discarded because
// their template had not been seen yet.
func (p *NetflowParser) MissingTemplates() uint64 {
	return p.missingTemplates
}

func (p *NetflowParser) Parse(data []byte, source netip.AddrPort) ([]model.SimplePacket, error) {
	if len(data) < 2 {
		return nil, decodeErrorf("short_header", "datagram shorter than version field")
	}
	switch binary.BigEndian.Uint16(data) {
	case netflowV5:
		return p.parseV5(data)
	case netflowV9:
		return p.parseV9(data, source.Addr())
	case ipfixV10:
		return p.parseIPFIX(data, source.Addr())
	default:
		return nil, decodeErrorf("bad_version", fmt.Sprintf("netflow version %d", binary.BigEndian.Uint16(data)))
	}
}

func (p *NetflowParser) parseV5(data []byte) ([]model.SimplePacket, error) {
	if len(data) < netflowV5HeaderLen {
		return nil, decodeErrorf("short_header", "truncated v5 header")
	}
	count := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < netflowV5HeaderLen+count*netflowV5RecordLen {
		return nil, decodeErrorf("short_record", "v5 record count overruns datagram")
	}

	now := time.Now().UnixNano()
	ratio := uint64(p.v5SamplingRatio)
	out := make([]model.SimplePacket, 0, count)

	for i := 0; i < count; i++ {
		rec := data[netflowV5HeaderLen+i*netflowV5RecordLen:]

		packets := uint64(binary.BigEndian.Uint32(rec[16:])) * ratio
		bytes := uint64(binary.BigEndian.Uint32(rec[20:])) * ratio
		if packets == 0 {
			packets = 1
		}
		if bytes == 0 {
			bytes = 1
		}

		out = append(out, model.SimplePacket{
			SrcAddr:         addr4(rec[0:4]),
			DstAddr:         addr4(rec[4:8]),
			InputInterface:  uint32(binary.BigEndian.Uint16(rec[12:])),
			OutputInterface: uint32(binary.BigEndian.Uint16(rec[14:])),
			SrcPort:         binary.BigEndian.Uint16(rec[32:]),
			DstPort:         binary.BigEndian.Uint16(rec[34:]),
			TCPFlags:        rec[37],
			Protocol:        rec[38],
			Bytes:           bytes,
			Packets:         packets,
			SampleRatio:     1,
			TimestampNs:     now,
		})
	}
	return out, nil
}

func (p *NetflowParser) parseV9(data []byte, source netip.Addr) ([]model.SimplePacket, error) {
	if len(data) < netflowV9HeaderLen {
		return nil, decodeErrorf("short_header", "truncated v9 header")
	}
	domain := binary.BigEndian.Uint32(data[16:])

	var out []model.SimplePacket
	off := netflowV9HeaderLen
	for off+4 <= len(data) {
		setID := binary.BigEndian.Uint16(data[off:])
		setLen := int(binary.BigEndian.Uint16(data[off+2:]))
		if setLen < 4 || off+setLen > len(data) {
			return out, decodeErrorf("short_record", "v9 flowset overruns datagram")
		}
		body := data[off+4 : off+setLen]
		off += setLen

		switch {
		case setID == 0:
			p.parseTemplates(body, source, domain, false)
		case setID == 1:
			// Options templates describe exporter metadata, not traffic.
		case setID >= 256:
			p.decodeDataSet(body, source, domain, setID, &out)
		}
	}
	return out, nil
}

func (p *NetflowParser) parseIPFIX(data []byte, source netip.Addr) ([]model.SimplePacket, error) {
	if len(data) < ipfixHeaderLen {
		return nil, decodeErrorf("short_header", "truncated ipfix header")
	}
	if totalLen := int(binary.BigEndian.Uint16(data[2:])); totalLen <= len(data) {
		data = data[:totalLen]
	}
	domain := binary.BigEndian.Uint32(data[12:])

	var out []model.SimplePacket
	off := ipfixHeaderLen
	for off+4 <= len(data) {
		setID := binary.BigEndian.Uint16(data[off:])
		setLen := int(binary.BigEndian.Uint16(data[off+2:]))
		if setLen < 4 || off+setLen > len(data) {
			return out, decodeErrorf("short_record", "ipfix set overruns message")
		}
		body := data[off+4 : off+setLen]
		off += setLen

		switch {
		case setID == 2:
			p.parseTemplates(body, source, domain, true)
		case setID == 3:
			// Options templates.
		case setID >= 256:
			p.decodeDataSet(body, source, domain, setID, &out)
		}
	}
	return out, nil
}

// parseTemplates walks a template set. A template arriving with an id the
// cache already holds replaces the prior definition immediately.
func (p *NetflowParser) parseTemplates(body []byte, source netip.Addr, domain uint32, ipfix bool) {
	off := 0
	for off+4 <= len(body) {
		templateID := binary.BigEndian.Uint16(body[off:])
		fieldCount := int(binary.BigEndian.Uint16(body[off+2:]))
		off += 4

		tmpl := &templateRecord{fields: make([]templateField, 0, fieldCount)}
		ok := true
		for f := 0; f < fieldCount; f++ {
			if off+4 > len(body) {
				ok = false
				break
			}
			fieldType := binary.BigEndian.Uint16(body[off:])
			length := binary.BigEndian.Uint16(body[off+2:])
			off += 4
			if ipfix && fieldType&0x8000 != 0 {
				// Enterprise-specific field: skip the enterprise number,
				// keep the field for length accounting only.
				if off+4 > len(body) {
					ok = false
					break
				}
				off += 4
				fieldType = 0
			}
			if ipfix && length == ipfixVariableLength {
				tmpl.variable = true
			} else {
				tmpl.fixedLength += int(length)
			}
			tmpl.fields = append(tmpl.fields, templateField{fieldType: fieldType, length: length})
		}
		if !ok || templateID < 256 || len(tmpl.fields) == 0 {
			return
		}
		p.templates[templateKey{source: source, domain: domain, templateID: templateID}] = tmpl
	}
}

// decodeDataSet resolves the template and walks the records. Data records
// are discarded until their template is known.
func (p *NetflowParser) decodeDataSet(body []byte, source netip.Addr, domain uint32, setID uint16, out *[]model.SimplePacket) {
	tmpl, ok := p.templates[templateKey{source: source, domain: domain, templateID: setID}]
	if !ok {
		p.missingTemplates++
		return
	}

	now := time.Now().UnixNano()
	off := 0
	for {
		if tmpl.variable {
			pkt, next, ok := p.decodeRecordVariable(body, off, tmpl, now)
			if !ok {
				return
			}
			*out = append(*out, pkt)
			off = next
			if off >= len(body) {
				return
			}
			continue
		}
		if tmpl.fixedLength == 0 || off+tmpl.fixedLength > len(body) {
			return
		}
		pkt := decodeRecordFixed(body[off:off+tmpl.fixedLength], tmpl, now)
		*out = append(*out, pkt)
		off += tmpl.fixedLength
	}
}

func decodeRecordFixed(rec []byte, tmpl *templateRecord, timestampNs int64) model.SimplePacket {
	pkt := model.SimplePacket{Packets: 1, Bytes: 1, SampleRatio: 1, TimestampNs: timestampNs}
	off := 0
	for _, field := range tmpl.fields {
		applyField(&pkt, field.fieldType, rec[off:off+int(field.length)])
		off += int(field.length)
	}
	return pkt
}

// decodeRecordVariable handles IPFIX records whose template contains
// variable-length fields: the actual length precedes each such field.
func (p *NetflowParser) decodeRecordVariable(body []byte, off int, tmpl *templateRecord, timestampNs int64) (model.SimplePacket, int, bool) {
	pkt := model.SimplePacket{Packets: 1, Bytes: 1, SampleRatio: 1, TimestampNs: timestampNs}
	for _, field := range tmpl.fields {
		length := int(field.length)
		if field.length == ipfixVariableLength {
			if off >= len(body) {
				return pkt, 0, false
			}
			length = int(body[off])
			off++
			if length == 255 {
				if off+2 > len(body) {
					return pkt, 0, false
				}
				length = int(binary.BigEndian.Uint16(body[off:]))
				off += 2
			}
		}
		if off+length > len(body) {
			return pkt, 0, false
		}
		applyField(&pkt, field.fieldType, body[off:off+length])
		off += length
	}
	return pkt, off, true
}

func applyField(pkt *model.SimplePacket, fieldType uint16, value []byte) {
	switch fieldType {
	case fieldInBytes:
		if v := beUint(value); v > 0 {
			pkt.Bytes = v
		}
	case fieldInPackets:
		if v := beUint(value); v > 0 {
			pkt.Packets = v
		}
	case fieldProtocol:
		pkt.Protocol = uint8(beUint(value))
	case fieldTCPFlags:
		pkt.TCPFlags = uint8(beUint(value))
	case fieldL4SrcPort:
		pkt.SrcPort = uint16(beUint(value))
	case fieldL4DstPort:
		pkt.DstPort = uint16(beUint(value))
	case fieldIPv4SrcAddr:
		if len(value) == 4 {
			pkt.SrcAddr = addr4(value)
		}
	case fieldIPv4DstAddr:
		if len(value) == 4 {
			pkt.DstAddr = addr4(value)
		}
	case fieldIPv6SrcAddr:
		if len(value) == 16 {
			pkt.SrcAddr = addr16(value)
		}
	case fieldIPv6DstAddr:
		if len(value) == 16 {
			pkt.DstAddr = addr16(value)
		}
	case fieldInputSNMP:
		pkt.InputInterface = uint32(beUint(value))
	case fieldOutputSNMP:
		pkt.OutputInterface = uint32(beUint(value))
	case fieldSamplingInterval:
		if v := uint32(beUint(value)); v > 0 {
			pkt.SampleRatio = v
		}
	case fieldFragmentOffset:
		if beUint(value) > 0 {
			pkt.Fragmented = true
		}
	}
}

// beUint reads a big-endian unsigned value of 1 to 8 bytes.
func beUint(b []byte) uint64 {
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
