package telemetry

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// sFlow v5 wire constants.
const (
	sflowVersion = 5

	sflowAgentIPv4 = 1
	sflowAgentIPv6 = 2

	sflowSampleFlow             = 1
	sflowSampleCounters         = 2
	sflowSampleFlowExpanded     = 3
	sflowSampleCountersExpanded = 4

	sflowRecordRawPacketHeader = 1

	sflowHeaderProtocolEthernet = 1
)

// SFlowParser decodes sFlow v5 datagrams. Flow samples yield one record
// per embedded raw packet header with the agent-reported sampling rate;
// counter samples are discarded.
type SFlowParser struct {
	decoder *RawDecoder
}

// NewSFlowParser creates a parser. capturePayload carries the sampled
// header bytes on the record for the attack capture ring.
func NewSFlowParser(capturePayload bool) *SFlowParser {
	return &SFlowParser{decoder: NewRawDecoder(capturePayload)}
}

func (p *SFlowParser) Name() string {
	return "sflow"
}

// byteCursor walks a big-endian datagram with bounds checking.
type byteCursor struct {
	data []byte
	off  int
}

func (c *byteCursor) remaining() int {
	return len(c.data) - c.off
}

func (c *byteCursor) u32() (uint32, bool) {
	if c.remaining() < 4 {
		return 0, false
	}
	v := binary.BigEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v, true
}

func (c *byteCursor) bytes(n int) ([]byte, bool) {
	if n < 0 || c.remaining() < n {
		return nil, false
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, true
}

func (c *byteCursor) skip(n int) bool {
	if n < 0 || c.remaining() < n {
		return false
	}
	c.off += n
	return true
}

func (p *SFlowParser) Parse(data []byte, source netip.AddrPort) ([]model.SimplePacket, error) {
	cur := &byteCursor{data: data}

	version, ok := cur.u32()
	if !ok {
		return nil, decodeErrorf("short_header", "datagram shorter than sflow header")
	}
	if version != sflowVersion {
		return nil, decodeErrorf("bad_version", fmt.Sprintf("sflow version %d", version))
	}

	agentFamily, ok := cur.u32()
	if !ok {
		return nil, decodeErrorf("short_header", "truncated agent address type")
	}
	switch agentFamily {
	case sflowAgentIPv4:
		if !cur.skip(4) {
			return nil, decodeErrorf("short_header", "truncated agent address")
		}
	case sflowAgentIPv6:
		if !cur.skip(16) {
			return nil, decodeErrorf("short_header", "truncated agent address")
		}
	default:
		return nil, decodeErrorf("bad_agent_family", fmt.Sprintf("agent address type %d", agentFamily))
	}

	// sub-agent id, sequence number, uptime
	if !cur.skip(12) {
		return nil, decodeErrorf("short_header", "truncated sflow header")
	}
	sampleCount, ok := cur.u32()
	if !ok {
		return nil, decodeErrorf("short_header", "truncated sample count")
	}

	now := time.Now().UnixNano()
	var out []model.SimplePacket

	for i := uint32(0); i < sampleCount; i++ {
		format, ok := cur.u32()
		if !ok {
			return out, decodeErrorf("short_sample", "truncated sample header")
		}
		sampleLen, ok := cur.u32()
		if !ok {
			return out, decodeErrorf("short_sample", "truncated sample length")
		}
		body, ok := cur.bytes(int(sampleLen))
		if !ok {
			return out, decodeErrorf("short_sample", "sample overruns datagram")
		}

		enterprise := format >> 12
		kind := format & 0xfff
		if enterprise != 0 {
			continue
		}
		switch kind {
		case sflowSampleFlow, sflowSampleFlowExpanded:
			p.parseFlowSample(body, kind == sflowSampleFlowExpanded, now, &out)
		case sflowSampleCounters, sflowSampleCountersExpanded:
			// Counter samples carry interface statistics, not traffic.
		}
	}
	return out, nil
}

// parseFlowSample walks one flow sample's records. Malformed records end
// the sample silently; the surrounding datagram keeps parsing.
func (p *SFlowParser) parseFlowSample(body []byte, expanded bool, timestampNs int64, out *[]model.SimplePacket) {
	cur := &byteCursor{data: body}

	// sequence number, source id (class+index when expanded)
	if !cur.skip(4) {
		return
	}
	if expanded {
		if !cur.skip(8) {
			return
		}
	} else if !cur.skip(4) {
		return
	}

	samplingRate, ok := cur.u32()
	if !ok {
		return
	}
	// sample pool, drops
	if !cur.skip(8) {
		return
	}

	var input, output uint32
	if expanded {
		// input and output are (format, value) pairs
		if !cur.skip(4) {
			return
		}
		if input, ok = cur.u32(); !ok {
			return
		}
		if !cur.skip(4) {
			return
		}
		if output, ok = cur.u32(); !ok {
			return
		}
	} else {
		if input, ok = cur.u32(); !ok {
			return
		}
		if output, ok = cur.u32(); !ok {
			return
		}
	}

	recordCount, ok := cur.u32()
	if !ok {
		return
	}

	for r := uint32(0); r < recordCount; r++ {
		recordFormat, ok := cur.u32()
		if !ok {
			return
		}
		recordLen, ok := cur.u32()
		if !ok {
			return
		}
		record, ok := cur.bytes(int(recordLen))
		if !ok {
			return
		}
		if recordFormat>>12 != 0 || recordFormat&0xfff != sflowRecordRawPacketHeader {
			continue
		}
		p.parseRawHeaderRecord(record, samplingRate, input, output, timestampNs, out)
	}
}

func (p *SFlowParser) parseRawHeaderRecord(record []byte, samplingRate, input, output uint32,
	timestampNs int64, out *[]model.SimplePacket) {

	cur := &byteCursor{data: record}
	headerProtocol, ok := cur.u32()
	if !ok || headerProtocol != sflowHeaderProtocolEthernet {
		return
	}
	frameLength, ok := cur.u32()
	if !ok {
		return
	}
	// stripped
	if !cur.skip(4) {
		return
	}
	headerLen, ok := cur.u32()
	if !ok {
		return
	}
	header, ok := cur.bytes(int(headerLen))
	if !ok {
		return
	}

	pkt, err := p.decoder.Decode(header, uint64(frameLength), samplingRate, timestampNs)
	if err != nil {
		return
	}
	pkt.InputInterface = input
	pkt.OutputInterface = output
	*out = append(*out, pkt)
}
