// Package config reads the daemon configuration from a YAML file and
// translates it into the model types the engine consumes. A configuration
// that fails validation is rejected as a whole; at reload time the caller
// keeps running on the previous generation.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mtasaka/fastnetmon/internal/export"
	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/notification"
)

// GlobalHostGroupName is the implicit group covering every monitored
// network not claimed by a configured host group; it carries the top-level
// ban settings.
const GlobalHostGroupName = "global"

// BanSettingsDef is the YAML shape of one threshold bundle. The knob names
// follow the daemon's long-standing configuration vocabulary.
type BanSettingsDef struct {
	EnableBan bool `yaml:"enable_ban"`

	EnableBanForPPS       bool `yaml:"enable_ban_for_pps"`
	EnableBanForBandwidth bool `yaml:"enable_ban_for_bandwidth"`
	EnableBanForFlows     bool `yaml:"enable_ban_for_flows_per_second"`

	EnableBanForTCPPPS       bool `yaml:"enable_ban_for_tcp_pps"`
	EnableBanForTCPBandwidth bool `yaml:"enable_ban_for_tcp_bandwidth"`

	EnableBanForUDPPPS       bool `yaml:"enable_ban_for_udp_pps"`
	EnableBanForUDPBandwidth bool `yaml:"enable_ban_for_udp_bandwidth"`

	EnableBanForICMPPPS       bool `yaml:"enable_ban_for_icmp_pps"`
	EnableBanForICMPBandwidth bool `yaml:"enable_ban_for_icmp_bandwidth"`

	ThresholdPPS   uint64 `yaml:"threshold_pps"`
	ThresholdMbps  uint64 `yaml:"threshold_mbps"`
	ThresholdFlows uint64 `yaml:"threshold_flows"`

	ThresholdTCPPPS  uint64 `yaml:"threshold_tcp_pps"`
	ThresholdTCPMbps uint64 `yaml:"threshold_tcp_mbps"`

	ThresholdUDPPPS  uint64 `yaml:"threshold_udp_pps"`
	ThresholdUDPMbps uint64 `yaml:"threshold_udp_mbps"`

	ThresholdICMPPPS  uint64 `yaml:"threshold_icmp_pps"`
	ThresholdICMPMbps uint64 `yaml:"threshold_icmp_mbps"`
}

// ToModel converts the YAML shape to the engine's settings bundle.
func (d BanSettingsDef) ToModel() model.BanSettings {
	return model.BanSettings{
		EnableBan:                 d.EnableBan,
		EnableBanForPPS:           d.EnableBanForPPS,
		EnableBanForBandwidth:     d.EnableBanForBandwidth,
		EnableBanForFlows:         d.EnableBanForFlows,
		EnableBanForTCPPPS:        d.EnableBanForTCPPPS,
		EnableBanForTCPBandwidth:  d.EnableBanForTCPBandwidth,
		EnableBanForUDPPPS:        d.EnableBanForUDPPPS,
		EnableBanForUDPBandwidth:  d.EnableBanForUDPBandwidth,
		EnableBanForICMPPPS:       d.EnableBanForICMPPPS,
		EnableBanForICMPBandwidth: d.EnableBanForICMPBandwidth,
		ThresholdPPS:              d.ThresholdPPS,
		ThresholdMbps:             d.ThresholdMbps,
		ThresholdFlows:            d.ThresholdFlows,
		ThresholdTCPPPS:           d.ThresholdTCPPPS,
		ThresholdTCPMbps:          d.ThresholdTCPMbps,
		ThresholdUDPPPS:           d.ThresholdUDPPPS,
		ThresholdUDPMbps:          d.ThresholdUDPMbps,
		ThresholdICMPPPS:          d.ThresholdICMPPPS,
		ThresholdICMPMbps:         d.ThresholdICMPMbps,
	}
}

// HostGroupDef is one configured host group.
type HostGroupDef struct {
	Name            string         `yaml:"name"`
	ParentHostGroup string         `yaml:"parent_host_group"`
	Networks        []string       `yaml:"networks"`
	Ban             BanSettingsDef `yaml:",inline"`
}

// ListenerDef configures one UDP telemetry source.
type ListenerDef struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// SamplingRatio multiplies NetFlow v5 record counters; other sources
	// carry their own rate.
	SamplingRatio uint32 `yaml:"sampling_ratio"`
}

// MirrorDef configures the NATS intake fed by the mirror capture probe.
type MirrorDef struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// CaptureDef configures per-attack packet capture.
type CaptureDef struct {
	Enabled   bool   `yaml:"enabled"`
	Size      int    `yaml:"size"`
	Directory string `yaml:"directory"`
}

// AttackExportDef configures the NATS attack event bus.
type AttackExportDef struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseDef configures the durable history writer.
type ClickHouseDef struct {
	Enabled    bool                    `yaml:"enabled"`
	Connection export.ClickHouseConfig `yaml:",inline"`
	// SnapshotIntervalSeconds spaces host_rates inserts.
	SnapshotIntervalSeconds int `yaml:"snapshot_interval"`
}

// APIDef configures the operator surfaces.
type APIDef struct {
	HTTPListen string `yaml:"http_listen"`
	GRPCListen string `yaml:"grpc_listen"`
}

// MitigationDef configures the BGP hand-off.
type MitigationDef struct {
	Enabled bool `yaml:"enabled"`
	// Blackhole announces destination blackholes instead of Flow Spec
	// rules.
	Blackhole bool `yaml:"blackhole"`
	// ExecPath pipes announcements into an external speaker process; empty
	// keeps them in the log.
	ExecPath string `yaml:"exec_path"`
}

// EngineDef tunes the counter engine.
type EngineDef struct {
	NumShards         int `yaml:"num_shards"`
	MaxHostsPerGroup  int `yaml:"max_hosts_per_group"`
	ConntrackCapacity int `yaml:"conntrack_capacity"`
	HostIdleSeconds   int `yaml:"host_idle_seconds"`
	HookBudgetSeconds int `yaml:"hook_budget_seconds"`
}

// Config is the top-level configuration for the daemon.
type Config struct {
	LogLevel string `yaml:"log_level"`

	AverageCalculationTime int  `yaml:"average_calculation_time"`
	BanTime                int  `yaml:"ban_time"`
	EnableBanIPv6          bool `yaml:"enable_ban_ipv6"`
	UnbanEnabled           bool `yaml:"unban_enabled"`

	GlobalBan BanSettingsDef `yaml:",inline"`

	NetworksList []string       `yaml:"networks_list"`
	HostGroups   []HostGroupDef `yaml:"hostgroups"`

	SFlow   ListenerDef `yaml:"sflow"`
	Netflow ListenerDef `yaml:"netflow"`
	Mirror  MirrorDef   `yaml:"mirror"`

	Capture CaptureDef `yaml:"capture"`

	TrafficExportFormat string          `yaml:"traffic_export_format"`
	AttackExport        AttackExportDef `yaml:"attack_export"`
	ClickHouse          ClickHouseDef   `yaml:"clickhouse"`

	API APIDef `yaml:"api"`

	SMTP         notification.SMTPConfig `yaml:"smtp"`
	NotifyScript string                  `yaml:"notify_script"`

	Mitigation MitigationDef `yaml:"mitigation"`

	Engine EngineDef `yaml:"engine"`
}

// Defaults for settings the file leaves unset. ban_time is seeded before
// unmarshalling so that an explicit 0 (indefinite) is kept; the others are
// applied afterwards.
const (
	defaultAverageCalculationTime = 15
	defaultBanTime                = 1800
	defaultSFlowListen            = ":6343"
	defaultNetflowListen          = ":2055"
	defaultMirrorSubject          = "fnm.packets.raw"
	defaultAttackSubject          = "fnm.attacks"
	defaultSnapshotInterval       = 60
)

// LoadConfig reads the configuration from a YAML file.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{UnbanEnabled: true, BanTime: defaultBanTime}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AverageCalculationTime <= 0 {
		c.AverageCalculationTime = defaultAverageCalculationTime
	}
	if c.BanTime < 0 {
		c.BanTime = defaultBanTime
	}
	if c.SFlow.Listen == "" {
		c.SFlow.Listen = defaultSFlowListen
	}
	if c.Netflow.Listen == "" {
		c.Netflow.Listen = defaultNetflowListen
	}
	if c.Netflow.SamplingRatio == 0 {
		c.Netflow.SamplingRatio = 1
	}
	if c.Mirror.Subject == "" {
		c.Mirror.Subject = defaultMirrorSubject
	}
	if c.AttackExport.Subject == "" {
		c.AttackExport.Subject = defaultAttackSubject
	}
	if c.ClickHouse.SnapshotIntervalSeconds <= 0 {
		c.ClickHouse.SnapshotIntervalSeconds = defaultSnapshotInterval
	}
	if c.TrafficExportFormat == "" {
		c.TrafficExportFormat = "json"
	}
}

// Validate rejects configurations the engine cannot serve.
func (c *Config) Validate() error {
	switch c.TrafficExportFormat {
	case "json", "protobuf":
	default:
		return fmt.Errorf("traffic_export_format must be json or protobuf, got %q", c.TrafficExportFormat)
	}
	if len(c.NetworksList) == 0 {
		return fmt.Errorf("networks_list must name at least one monitored CIDR")
	}
	for _, s := range c.NetworksList {
		if _, err := model.NormalizeCIDR(s); err != nil {
			return fmt.Errorf("networks_list: %w", err)
		}
	}
	for _, g := range c.HostGroups {
		if g.Name == "" {
			return fmt.Errorf("hostgroup with empty name")
		}
		for _, s := range g.Networks {
			if _, err := model.NormalizeCIDR(s); err != nil {
				return fmt.Errorf("hostgroup %q: %w", g.Name, err)
			}
		}
	}
	if c.Mirror.Enabled && c.Mirror.NATSURL == "" {
		return fmt.Errorf("mirror intake enabled without nats_url")
	}
	if c.AttackExport.Enabled && c.AttackExport.NATSURL == "" {
		return fmt.Errorf("attack export enabled without nats_url")
	}
	return nil
}

// Networks returns the parsed monitored space.
func (c *Config) Networks() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.NetworksList))
	for _, s := range c.NetworksList {
		prefix, err := model.NormalizeCIDR(s)
		if err != nil {
			return nil, err
		}
		out = append(out, prefix)
	}
	return out, nil
}

// BuildHostGroups translates the configured groups and synthesises the
// implicit global group: every monitored network not exactly claimed by a
// configured group falls under it with the top-level ban settings.
func (c *Config) BuildHostGroups() ([]model.HostGroup, error) {
	claimed := make(map[netip.Prefix]bool)
	groups := make([]model.HostGroup, 0, len(c.HostGroups)+1)

	for _, def := range c.HostGroups {
		group := model.HostGroup{
			Name:   def.Name,
			Parent: def.ParentHostGroup,
			Ban:    def.Ban.ToModel(),
		}
		for _, s := range def.Networks {
			prefix, err := model.NormalizeCIDR(s)
			if err != nil {
				return nil, err
			}
			claimed[prefix] = true
			group.Networks = append(group.Networks, prefix)
		}
		groups = append(groups, group)
	}

	global := model.HostGroup{Name: GlobalHostGroupName, Ban: c.GlobalBan.ToModel()}
	networks, err := c.Networks()
	if err != nil {
		return nil, err
	}
	for _, prefix := range networks {
		if !claimed[prefix] {
			global.Networks = append(global.Networks, prefix)
		}
	}
	if len(global.Networks) > 0 {
		groups = append(groups, global)
	}
	return groups, nil
}

// AverageWindow returns the EMA time constant.
func (c *Config) AverageWindow() time.Duration {
	return time.Duration(c.AverageCalculationTime) * time.Second
}

// BanDuration returns the ban timer; zero means until cleared.
func (c *Config) BanDuration() time.Duration {
	return time.Duration(c.BanTime) * time.Second
}
