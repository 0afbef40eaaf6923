package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
)

const createAttackTableStatement = `
CREATE TABLE IF NOT EXISTS attack_events (
    Timestamp       DateTime,
    Action          String,
    UUID            String,
    Host            String,
    HostGroup       String,
    Direction       String,
    AttackType      String,
    Threshold       String,
    AttackPower     UInt64,
    MaxAttackPower  UInt64,
    Description     String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Host, Timestamp);
`

const createRatesTableStatement = `
CREATE TABLE IF NOT EXISTS host_rates (
    Timestamp  DateTime,
    Host       String,
    HostGroup  String,
    InBytes    UInt64,
    OutBytes   UInt64,
    InPackets  UInt64,
    OutPackets UInt64,
    InFlows    UInt64,
    OutFlows   UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Host, Timestamp);
`

// ClickHouseConfig carries the connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ClickHouseWriter persists attack events and per-host rate history. It
// doubles as a notification hook for the attack manager.
type ClickHouseWriter struct {
	conn driver.Conn
	log  *logrus.Logger
}

// NewClickHouseWriter connects and ensures both tables exist.
func NewClickHouseWriter(cfg ClickHouseConfig, log *logrus.Logger) (*ClickHouseWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	for _, stmt := range []string{createAttackTableStatement, createRatesTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Info("connected to ClickHouse and ensured export tables exist")
	return &ClickHouseWriter{conn: conn, log: log}, nil
}

func (w *ClickHouseWriter) writeAttack(action string, attack *model.AttackDetails, description string) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO attack_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	err = batch.Append(
		time.Now(),
		action,
		attack.UUID.String(),
		attack.Host.String(),
		attack.HostGroup,
		attack.Direction.String(),
		attack.Type.String(),
		attack.Threshold.String(),
		attack.AttackPower,
		attack.MaxAttackPower,
		description,
	)
	if err != nil {
		return fmt.Errorf("failed to append attack event: %w", err)
	}
	return batch.Send()
}

// OnAttackOnset implements model.Notifier.
func (w *ClickHouseWriter) OnAttackOnset(attack *model.AttackDetails, description string) error {
	return w.writeAttack(actionBan, attack, description)
}

// OnAttackPeak implements model.Notifier.
func (w *ClickHouseWriter) OnAttackPeak(attack *model.AttackDetails) error {
	return w.writeAttack(actionPeak, attack, "")
}

// OnAttackClear implements model.Notifier.
func (w *ClickHouseWriter) OnAttackClear(attack *model.AttackDetails, description string) error {
	return w.writeAttack(actionUnban, attack, description)
}

// WriteSnapshot inserts one host_rates row per live host for one tick
// snapshot.
func (w *ClickHouseWriter) WriteSnapshot(snap *traffic.Snapshot) error {
	if len(snap.Hosts) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO host_rates")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, rates := range snap.Hosts {
		total := rates.Counters.Rate[model.SectionTotal]
		err = batch.Append(
			snap.TakenAt,
			rates.Addr.String(),
			rates.HostGroup,
			total.InBytes,
			total.OutBytes,
			total.InPackets,
			total.OutPackets,
			total.InFlows,
			total.OutFlows,
		)
		if err != nil {
			return fmt.Errorf("failed to append host rates: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
