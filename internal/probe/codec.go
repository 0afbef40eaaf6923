// Package probe carries normalised packet records between the mirror
// capture probe and the engine over NATS. Records are encoded as protobuf
// or JSON according to the configured traffic export format.
package probe

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"google.golang.org/protobuf/proto"

	v1 "github.com/mtasaka/fastnetmon/api/gen/v1"
	"github.com/mtasaka/fastnetmon/internal/model"
)

// Format selects the wire encoding of exported records.
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// ParseFormat validates a configured format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatProtobuf:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown traffic export format %q", s)
	}
}

// trafficRecordJSON is the JSON shape of one record; addresses travel in
// their textual form.
type trafficRecordJSON struct {
	SrcAddr     string `json:"src_addr"`
	DstAddr     string `json:"dst_addr"`
	SrcPort     uint16 `json:"src_port"`
	DstPort     uint16 `json:"dst_port"`
	Protocol    uint8  `json:"protocol"`
	TCPFlags    uint8  `json:"tcp_flags"`
	Fragmented  bool   `json:"fragmented"`
	Bytes       uint64 `json:"bytes"`
	Packets     uint64 `json:"packets"`
	SampleRatio uint32 `json:"sample_ratio"`
	TimestampNs int64  `json:"timestamp_ns"`
}

func toProto(pkt *model.SimplePacket) *v1.TrafficRecord {
	src := pkt.SrcAddr.As16()
	dst := pkt.DstAddr.As16()
	return &v1.TrafficRecord{
		SrcAddr:     src[:],
		DstAddr:     dst[:],
		SrcPort:     uint32(pkt.SrcPort),
		DstPort:     uint32(pkt.DstPort),
		Protocol:    uint32(pkt.Protocol),
		TcpFlags:    uint32(pkt.TCPFlags),
		Fragmented:  pkt.Fragmented,
		Bytes:       pkt.Bytes,
		Packets:     pkt.Packets,
		SampleRatio: pkt.SampleRatio,
		TimestampNs: pkt.TimestampNs,
	}
}

func fromProto(rec *v1.TrafficRecord) (model.SimplePacket, error) {
	src, ok := netip.AddrFromSlice(rec.GetSrcAddr())
	if !ok {
		return model.SimplePacket{}, fmt.Errorf("bad source address length %d", len(rec.GetSrcAddr()))
	}
	dst, ok := netip.AddrFromSlice(rec.GetDstAddr())
	if !ok {
		return model.SimplePacket{}, fmt.Errorf("bad destination address length %d", len(rec.GetDstAddr()))
	}
	return model.SimplePacket{
		SrcAddr:     src.Unmap(),
		DstAddr:     dst.Unmap(),
		SrcPort:     uint16(rec.GetSrcPort()),
		DstPort:     uint16(rec.GetDstPort()),
		Protocol:    uint8(rec.GetProtocol()),
		TCPFlags:    uint8(rec.GetTcpFlags()),
		Fragmented:  rec.GetFragmented(),
		Bytes:       rec.GetBytes(),
		Packets:     rec.GetPackets(),
		SampleRatio: rec.GetSampleRatio(),
		TimestampNs: rec.GetTimestampNs(),
	}, nil
}

// Encode serialises one record in the given format.
func Encode(pkt *model.SimplePacket, format Format) ([]byte, error) {
	if format == FormatProtobuf {
		return proto.Marshal(toProto(pkt))
	}
	return json.Marshal(trafficRecordJSON{
		SrcAddr:     pkt.SrcAddr.String(),
		DstAddr:     pkt.DstAddr.String(),
		SrcPort:     pkt.SrcPort,
		DstPort:     pkt.DstPort,
		Protocol:    pkt.Protocol,
		TCPFlags:    pkt.TCPFlags,
		Fragmented:  pkt.Fragmented,
		Bytes:       pkt.Bytes,
		Packets:     pkt.Packets,
		SampleRatio: pkt.SampleRatio,
		TimestampNs: pkt.TimestampNs,
	})
}

// Decode parses one record in the given format.
func Decode(data []byte, format Format) (model.SimplePacket, error) {
	if format == FormatProtobuf {
		var rec v1.TrafficRecord
		if err := proto.Unmarshal(data, &rec); err != nil {
			return model.SimplePacket{}, err
		}
		return fromProto(&rec)
	}
	var rec trafficRecordJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.SimplePacket{}, err
	}
	src, err := netip.ParseAddr(rec.SrcAddr)
	if err != nil {
		return model.SimplePacket{}, fmt.Errorf("bad source address: %w", err)
	}
	dst, err := netip.ParseAddr(rec.DstAddr)
	if err != nil {
		return model.SimplePacket{}, fmt.Errorf("bad destination address: %w", err)
	}
	return model.SimplePacket{
		SrcAddr:     src,
		DstAddr:     dst,
		SrcPort:     rec.SrcPort,
		DstPort:     rec.DstPort,
		Protocol:    rec.Protocol,
		TCPFlags:    rec.TCPFlags,
		Fragmented:  rec.Fragmented,
		Bytes:       rec.Bytes,
		Packets:     rec.Packets,
		SampleRatio: rec.SampleRatio,
		TimestampNs: rec.TimestampNs,
	}, nil
}
