// fnm-replay feeds a capture file through the detection pipeline offline.
// The same trace with the same configuration always reproduces the same
// detection events, so the output is diffable across engine changes.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/config"
	"github.com/mtasaka/fastnetmon/internal/engine/detector"
	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/resolver"
	"github.com/mtasaka/fastnetmon/pkg/pcap"
)

func main() {
	configPath := flag.String("config", "configs/fastnetmon.yaml", "Path to the YAML configuration file.")
	tracePath := flag.String("trace", "", "Capture file to replay (required).")
	ticks := flag.Int("ticks", 5, "Number of one-second ticks to evaluate after the replay.")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	if *tracePath == "" {
		log.Error("-trace flag is required")
		flag.Usage()
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(64)
	}

	res := resolver.New(log)
	groups, err := cfg.BuildHostGroups()
	if err != nil {
		log.WithError(err).Error("bad host groups")
		os.Exit(64)
	}
	networks, err := cfg.Networks()
	if err != nil {
		log.WithError(err).Error("bad networks list")
		os.Exit(64)
	}
	if err := res.Load(groups, networks); err != nil {
		log.WithError(err).Error("host group configuration rejected")
		os.Exit(64)
	}

	engine := traffic.New(traffic.Config{AverageWindow: cfg.AverageWindow()}, res, log)
	det := detector.New(res, cfg.EnableBanIPv6, log)

	reader, err := pcap.NewReader(*tracePath, log)
	if err != nil {
		log.WithError(err).Error("failed to open trace")
		os.Exit(66)
	}
	defer reader.Close()

	replayed, skipped := reader.Replay([]model.PacketSink{engine})
	log.WithFields(logrus.Fields{"replayed": replayed, "skipped": skipped}).Info("trace loaded")

	encoder := json.NewEncoder(os.Stdout)
	now := time.Now()
	for tick := 0; tick < *ticks; tick++ {
		now = now.Add(time.Second)
		engine.Tick(now)
		for _, event := range det.Evaluate(engine.Inspect()) {
			encoder.Encode(map[string]any{
				"tick":      tick,
				"host":      event.Host.String(),
				"threshold": event.Threshold.String(),
				"direction": event.Direction.String(),
				"power":     event.AttackPower,
			})
		}
	}
}
