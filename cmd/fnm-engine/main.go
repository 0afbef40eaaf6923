package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/config"
	"github.com/mtasaka/fastnetmon/internal/runtime"
	"github.com/mtasaka/fastnetmon/internal/telemetry"
)

// Process exit codes.
const (
	exitOK          = 0
	exitConfigError = 64
	exitBindFailure = 69
	exitFatal       = 70
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/fastnetmon.yaml", "Path to the YAML configuration file.")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return exitConfigError
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	rt, err := runtime.New(cfg, log)
	if err != nil {
		var bindErr *telemetry.BindError
		if errors.As(err, &bindErr) {
			log.WithError(err).Error("failed to bind listener")
			return exitBindFailure
		}
		log.WithError(err).Error("failed to build runtime")
		return exitConfigError
	}
	if err := rt.Start(); err != nil {
		log.WithError(err).Error("failed to start runtime")
		return exitFatal
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			log.Info("SIGHUP received, reloading configuration")
			newCfg, err := config.LoadConfig(*configPath)
			if err != nil {
				log.WithError(err).Error("reload rejected: configuration did not parse")
				continue
			}
			rt.Reload(newCfg)
			continue
		}
		log.WithField("signal", sig).Info("shutdown signal received")
		break
	}

	rt.Stop()
	if rt.ReloadFailed() {
		return exitConfigError
	}
	return exitOK
}
