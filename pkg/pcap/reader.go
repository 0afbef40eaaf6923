// Package pcap replays a capture file through the normalisation pipeline.
// Replaying the same trace against the same configuration reproduces the
// same detection sequence, which is how detection changes are validated
// offline.
package pcap

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/telemetry"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle  *pcap.Handle
	decoder *telemetry.RawDecoder
	log     *logrus.Logger
}

// NewReader opens a capture file for replay.
func NewReader(filePath string, log *logrus.Logger) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle, decoder: telemetry.NewRawDecoder(false), log: log}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// Replay decodes every frame and hands the records to the sinks in file
// order. Frames that do not decode to IP traffic are skipped and counted.
func (r *Reader) Replay(sinks []model.PacketSink) (replayed, skipped int) {
	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range source.Packets() {
		meta := packet.Metadata()
		pkt, err := r.decoder.Decode(packet.Data(), uint64(meta.Length), 1, meta.Timestamp.UnixNano())
		if err != nil {
			skipped++
			continue
		}
		for _, sink := range sinks {
			sink.Consume(&pkt)
		}
		replayed++
	}
	if skipped > 0 {
		r.log.WithFields(logrus.Fields{"replayed": replayed, "skipped": skipped}).Info("trace replay finished")
	}
	return replayed, skipped
}
