package attack

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/mtasaka/fastnetmon/internal/model"
)

const captureSnapLen = model.MaxPayloadBytes

// CaptureRing buffers the most recent packets matching an attacked host.
// The ingest side enqueues without ever blocking: when the ring is full the
// packet is dropped and counted. The ring is drained once, when the attack
// leaves the active state.
type CaptureRing struct {
	packets chan model.SimplePacket
	dropped atomic.Uint64
}

// NewCaptureRing allocates a ring holding up to size packets.
func NewCaptureRing(size int) *CaptureRing {
	if size <= 0 {
		size = 512
	}
	return &CaptureRing{packets: make(chan model.SimplePacket, size)}
}

// Offer enqueues a packet copy, dropping when full.
func (r *CaptureRing) Offer(pkt *model.SimplePacket) {
	select {
	case r.packets <- *pkt:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many packets did not fit.
func (r *CaptureRing) Dropped() uint64 {
	return r.dropped.Load()
}

// Flush writes the buffered packets to <uuid>.pcap under dir and empties
// the ring. Packets without payload are skipped: the capture file carries
// the raw leading bytes collected by the intake.
func (r *CaptureRing) Flush(dir, uuid string) (string, error) {
	path := filepath.Join(dir, uuid+".pcap")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create capture file: %w", err)
	}
	defer file.Close()

	writer := pcapgo.NewWriter(file)
	if err := writer.WriteFileHeader(captureSnapLen, layers.LinkTypeEthernet); err != nil {
		return "", fmt.Errorf("write capture header: %w", err)
	}

	for {
		select {
		case pkt := <-r.packets:
			if len(pkt.Payload) == 0 {
				continue
			}
			info := gopacket.CaptureInfo{
				Timestamp:     time.Unix(0, pkt.TimestampNs),
				CaptureLength: len(pkt.Payload),
				Length:        int(pkt.Bytes),
			}
			if info.Length < info.CaptureLength {
				info.Length = info.CaptureLength
			}
			if err := writer.WritePacket(info, pkt.Payload); err != nil {
				return "", fmt.Errorf("write capture packet: %w", err)
			}
		default:
			return path, nil
		}
	}
}
