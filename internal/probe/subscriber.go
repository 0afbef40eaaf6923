package probe

import (
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// Subscriber receives packet records from a NATS subject and hands them to
// the engine's packet sinks.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	format  Format
	log     *logrus.Logger
}

// NewSubscriber connects to NATS.
func NewSubscriber(url, subject string, format Format, log *logrus.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.WithField("url", url).Info("connected to NATS")
	return &Subscriber{nc: nc, subject: subject, format: format, log: log}, nil
}

// Start subscribes and forwards every decoded record to the sinks.
// Records that fail to decode are logged and dropped.
func (s *Subscriber) Start(sinks []model.PacketSink) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		pkt, err := Decode(msg.Data, s.format)
		if err != nil {
			s.log.WithError(err).Debug("dropping undecodable probe record")
			return
		}
		for _, sink := range sinks {
			sink.Consume(&pkt)
		}
	})
	if err != nil {
		return err
	}
	s.sub = sub
	s.log.WithField("subject", s.subject).Info("subscribed to probe records")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
