package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mtasaka/fastnetmon/internal/model"
)

const sampleConfig = `
log_level: debug

average_calculation_time: 30
ban_time: 120
enable_ban_ipv6: true

enable_ban: true
enable_ban_for_pps: true
threshold_pps: 20000

networks_list:
  - 10.0.0.0/8
  - 2001:db8::/32

hostgroups:
  - name: web
    networks:
      - 10.10.0.0/16
    enable_ban: true
    enable_ban_for_tcp_pps: true
    threshold_tcp_pps: 50000
  - name: backend
    parent_host_group: web
    networks:
      - 10.20.0.0/16

sflow:
  enabled: true
netflow:
  enabled: true
  sampling_ratio: 100

traffic_export_format: protobuf
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fastnetmon.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.AverageWindow() != 30*time.Second {
		t.Errorf("average window: expected 30s, got %s", cfg.AverageWindow())
	}
	if cfg.BanDuration() != 120*time.Second {
		t.Errorf("ban duration: expected 120s, got %s", cfg.BanDuration())
	}
	if !cfg.EnableBanIPv6 {
		t.Error("enable_ban_ipv6 should be set")
	}
	if cfg.SFlow.Listen != ":6343" || cfg.Netflow.Listen != ":2055" {
		t.Errorf("default listener ports wrong: %q %q", cfg.SFlow.Listen, cfg.Netflow.Listen)
	}
	if cfg.Netflow.SamplingRatio != 100 {
		t.Errorf("netflow sampling ratio: expected 100, got %d", cfg.Netflow.SamplingRatio)
	}
	if cfg.TrafficExportFormat != "protobuf" {
		t.Errorf("traffic export format: %q", cfg.TrafficExportFormat)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "networks_list: [192.0.2.0/24]\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AverageCalculationTime != 15 {
		t.Errorf("default average_calculation_time should be 15, got %d", cfg.AverageCalculationTime)
	}
	if cfg.BanTime != 1800 {
		t.Errorf("default ban_time should be 1800, got %d", cfg.BanTime)
	}
	if cfg.TrafficExportFormat != "json" {
		t.Errorf("default export format should be json, got %q", cfg.TrafficExportFormat)
	}
	if !cfg.UnbanEnabled {
		t.Error("unban should default to enabled")
	}
	if cfg.GlobalBan.EnableBan {
		t.Error("banning must default to disabled")
	}
}

func TestBuildHostGroups(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	groups, err := cfg.BuildHostGroups()
	if err != nil {
		t.Fatalf("build host groups: %v", err)
	}

	byName := make(map[string]model.HostGroup, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}

	web, ok := byName["web"]
	if !ok {
		t.Fatal("web group missing")
	}
	if !web.Ban.EnableBanForTCPPPS || web.Ban.ThresholdTCPPPS != 50000 {
		t.Errorf("web group thresholds wrong: %+v", web.Ban)
	}
	if backend := byName["backend"]; backend.Parent != "web" {
		t.Errorf("backend parent wrong: %q", backend.Parent)
	}

	// The implicit global group picks up the unclaimed monitored networks
	// with the top-level settings.
	global, ok := byName[GlobalHostGroupName]
	if !ok {
		t.Fatal("global group missing")
	}
	if !global.Ban.EnableBanForPPS || global.Ban.ThresholdPPS != 20000 {
		t.Errorf("global group should carry the top-level thresholds: %+v", global.Ban)
	}
	if len(global.Networks) != 2 {
		t.Errorf("global group networks: expected both monitored CIDRs, got %v", global.Networks)
	}
}

func TestValidationRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no networks":    "ban_time: 10\n",
		"bad cidr":       "networks_list: [not-a-cidr]\n",
		"bad format":     "networks_list: [10.0.0.0/8]\ntraffic_export_format: xml\n",
		"unnamed group":  "networks_list: [10.0.0.0/8]\nhostgroups:\n  - networks: [10.1.0.0/16]\n",
		"mirror no nats": "networks_list: [10.0.0.0/8]\nmirror:\n  enabled: true\n",
	}
	for name, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}
