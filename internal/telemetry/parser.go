// Package telemetry owns the intake side of the daemon: one UDP listener
// per enabled source, wire-format parsers producing normalised packet
// records, and the malformed-frame accounting. Intake never blocks on a
// downstream consumer and never aborts on a bad frame.
package telemetry

import (
	"net"
	"net/netip"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// Parser decodes one datagram into zero or more packet records. Parsers
// may keep per-source state (template caches); a parser instance belongs
// to exactly one listener goroutine and is never shared.
type Parser interface {
	Name() string
	Parse(data []byte, source netip.AddrPort) ([]model.SimplePacket, error)
}

// DecodeError reports a malformed frame with a stable reason label used
// for the per-(source, reason) error tally.
type DecodeError struct {
	Reason string
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

func decodeErrorf(reason, detail string) *DecodeError {
	return &DecodeError{Reason: reason, Detail: detail}
}

// netipAddr converts a gopacket net.IP into the canonical address form,
// unmapping 4-in-6.
func netipAddr(ip net.IP) (netip.Addr, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func addr4(b []byte) netip.Addr {
	var v4 [4]byte
	copy(v4[:], b)
	return netip.AddrFrom4(v4)
}

func addr16(b []byte) netip.Addr {
	var v6 [16]byte
	copy(v6[:], b)
	return netip.AddrFrom16(v6)
}
