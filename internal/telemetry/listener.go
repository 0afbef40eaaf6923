package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// BindError marks a listener socket that could not be bound; the process
// maps it to its dedicated exit code.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

const (
	maxDatagramSize = 65535
	readDeadline    = time.Second
)

// Listener owns one bound UDP socket and one parser instance. Every
// decoded record is handed to each sink in order; the sinks are required
// to be non-blocking.
type Listener struct {
	name   string
	conn   *net.UDPConn
	parser Parser
	sinks  []model.PacketSink

	metrics *Metrics
	log     *logrus.Logger
}

// NewListener binds the UDP endpoint for one telemetry source.
func NewListener(name, addr string, parser Parser, sinks []model.PacketSink, metrics *Metrics, log *logrus.Logger) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	log.WithFields(logrus.Fields{"listener": name, "addr": addr}).Info("telemetry listener bound")
	return &Listener{
		name:    name,
		conn:    conn,
		parser:  parser,
		sinks:   sinks,
		metrics: metrics,
		log:     log,
	}, nil
}

// Run receives datagrams until the context is cancelled. Cancellation is
// observed between receives through a one-second read deadline. Malformed
// frames are counted by (source, reason) and dropped; the loop never
// aborts on them.
func (l *Listener) Run(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			l.log.WithError(err).WithField("listener", l.name).Error("set read deadline")
			return
		}
		n, src, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			l.log.WithError(err).WithField("listener", l.name).Warn("udp receive failed")
			continue
		}

		l.metrics.Datagrams.WithLabelValues(l.name).Inc()

		packets, err := l.parser.Parse(buf[:n], src)
		if err != nil {
			reason := "malformed"
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				reason = decodeErr.Reason
			}
			l.metrics.ParseErrors.WithLabelValues(src.Addr().String(), reason).Inc()
		}
		if len(packets) == 0 {
			continue
		}
		l.metrics.Records.WithLabelValues(l.name).Add(float64(len(packets)))
		for i := range packets {
			for _, sink := range l.sinks {
				sink.Consume(&packets[i])
			}
		}
	}
}

// Close releases the socket; a Run loop blocked in receive is woken at once
// by the failed read and returns.
func (l *Listener) Close() error {
	return l.conn.Close()
}
