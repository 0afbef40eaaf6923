// Package export publishes attack events and per-host rate history to the
// downstream surfaces: a NATS bus for stream consumers and ClickHouse for
// durable history.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	v1 "github.com/mtasaka/fastnetmon/api/gen/v1"
	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/probe"
)

// Attack event actions on the bus.
const (
	actionBan   = "ban"
	actionPeak  = "peak"
	actionUnban = "unban"
)

// AttackPublisher pushes attack lifecycle events to a NATS subject in the
// configured traffic export format. It plugs into the attack manager as a
// notification hook.
type AttackPublisher struct {
	nc      *nats.Conn
	subject string
	format  probe.Format
	log     *logrus.Logger
}

// NewAttackPublisher connects to NATS.
func NewAttackPublisher(url, subject string, format probe.Format, log *logrus.Logger) (*AttackPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &AttackPublisher{nc: nc, subject: subject, format: format, log: log}, nil
}

type attackEventJSON struct {
	Action          string `json:"action"`
	UUID            string `json:"uuid"`
	Host            string `json:"host"`
	Direction       string `json:"direction"`
	AttackType      string `json:"attack_type"`
	HostGroup       string `json:"host_group"`
	ParentHostGroup string `json:"parent_host_group"`
	AttackPower     uint64 `json:"attack_power"`
	MaxAttackPower  uint64 `json:"max_attack_power"`
	Threshold       string `json:"threshold"`
	BanTimestamp    int64  `json:"ban_timestamp"`
	Description     string `json:"description,omitempty"`
}

func (p *AttackPublisher) publish(action string, attack *model.AttackDetails, description string) error {
	var data []byte
	var err error
	if p.format == probe.FormatProtobuf {
		data, err = proto.Marshal(&v1.AttackEvent{
			Uuid:            attack.UUID.String(),
			Host:            attack.Host.String(),
			Direction:       attack.Direction.String(),
			AttackType:      attack.Type.String(),
			HostGroup:       attack.HostGroup,
			ParentHostGroup: attack.ParentHostGroup,
			AttackPower:     attack.AttackPower,
			MaxAttackPower:  attack.MaxAttackPower,
			Threshold:       attack.Threshold.String(),
			BanTimestamp:    attack.BanTimestamp.Unix(),
			Description:     description,
		})
	} else {
		data, err = json.Marshal(attackEventJSON{
			Action:          action,
			UUID:            attack.UUID.String(),
			Host:            attack.Host.String(),
			Direction:       attack.Direction.String(),
			AttackType:      attack.Type.String(),
			HostGroup:       attack.HostGroup,
			ParentHostGroup: attack.ParentHostGroup,
			AttackPower:     attack.AttackPower,
			MaxAttackPower:  attack.MaxAttackPower,
			Threshold:       attack.Threshold.String(),
			BanTimestamp:    attack.BanTimestamp.Unix(),
			Description:     description,
		})
	}
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject+"."+action, data)
}

// OnAttackOnset implements model.Notifier.
func (p *AttackPublisher) OnAttackOnset(attack *model.AttackDetails, description string) error {
	return p.publish(actionBan, attack, description)
}

// OnAttackPeak implements model.Notifier.
func (p *AttackPublisher) OnAttackPeak(attack *model.AttackDetails) error {
	return p.publish(actionPeak, attack, "")
}

// OnAttackClear implements model.Notifier.
func (p *AttackPublisher) OnAttackClear(attack *model.AttackDetails, description string) error {
	return p.publish(actionUnban, attack, description)
}

// Close drains the connection.
func (p *AttackPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
