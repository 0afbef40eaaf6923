package probe

import (
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// Publisher publishes packet records to a NATS subject. Used by the mirror
// capture probe; the engine consumes them through a Subscriber.
type Publisher struct {
	nc      *nats.Conn
	subject string
	format  Format
	log     *logrus.Logger
}

// NewPublisher connects to NATS.
func NewPublisher(url, subject string, format Format, log *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.WithField("url", url).Info("connected to NATS")
	return &Publisher{nc: nc, subject: subject, format: format, log: log}, nil
}

// Publish serialises one record and publishes it.
func (p *Publisher) Publish(pkt *model.SimplePacket) error {
	data, err := Encode(pkt, p.format)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.log.Info("NATS connection drained and closed")
	}
}
