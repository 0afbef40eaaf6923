// Package runtime assembles the daemon from its components and owns the
// process lifecycle: ingest workers, the one-second tick driver, the
// evaluator/attack-manager thread, the export and operator surfaces, and
// graceful shutdown. All process-wide state lives here as one explicit
// value; components receive their collaborators by injection.
package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	v1 "github.com/mtasaka/fastnetmon/api/gen/v1"
	"github.com/mtasaka/fastnetmon/internal/api"
	"github.com/mtasaka/fastnetmon/internal/attack"
	"github.com/mtasaka/fastnetmon/internal/bgp"
	"github.com/mtasaka/fastnetmon/internal/config"
	"github.com/mtasaka/fastnetmon/internal/engine/detector"
	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/export"
	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/notification"
	"github.com/mtasaka/fastnetmon/internal/probe"
	"github.com/mtasaka/fastnetmon/internal/resolver"
	"github.com/mtasaka/fastnetmon/internal/telemetry"
)

// Runtime is the assembled daemon.
type Runtime struct {
	cfg *config.Config
	log *logrus.Logger

	resolver *resolver.Resolver
	engine   *traffic.Engine
	detector *detector.Detector
	manager  *attack.Manager

	listeners  []*telemetry.Listener
	subscriber *probe.Subscriber

	attackExport *export.AttackPublisher
	clickhouse   *export.ClickHouseWriter

	registry *prometheus.Registry
	httpSrv  *http.Server
	httpLn   net.Listener
	grpcSrv  *grpc.Server
	grpcLn   net.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup

	reloadFailed atomic.Bool
}

// New builds a runtime from a validated configuration. Listener bind
// failures surface as *telemetry.BindError so main can map them to the
// dedicated exit code.
func New(cfg *config.Config, log *logrus.Logger) (*Runtime, error) {
	r := &Runtime{cfg: cfg, log: log}

	r.resolver = resolver.New(log)
	groups, err := cfg.BuildHostGroups()
	if err != nil {
		return nil, err
	}
	networks, err := cfg.Networks()
	if err != nil {
		return nil, err
	}
	if err := r.resolver.Load(groups, networks); err != nil {
		return nil, err
	}

	r.engine = traffic.New(traffic.Config{
		AverageWindow:     cfg.AverageWindow(),
		ShardCount:        cfg.Engine.NumShards,
		MaxHostsPerGroup:  cfg.Engine.MaxHostsPerGroup,
		ConntrackCapacity: cfg.Engine.ConntrackCapacity,
		IdleTimeout:       time.Duration(cfg.Engine.HostIdleSeconds) * time.Second,
	}, r.resolver, log)

	r.detector = detector.New(r.resolver, cfg.EnableBanIPv6, log)

	format, err := probe.ParseFormat(cfg.TrafficExportFormat)
	if err != nil {
		return nil, err
	}

	var notifiers []model.Notifier
	if cfg.SMTP.Host != "" {
		notifiers = append(notifiers, notification.NewEmailNotifier(cfg.SMTP))
		log.Info("email notifier enabled")
	}
	if cfg.NotifyScript != "" {
		notifiers = append(notifiers, notification.NewExecNotifier(cfg.NotifyScript))
		log.WithField("script", cfg.NotifyScript).Info("exec notifier enabled")
	}
	if cfg.AttackExport.Enabled {
		r.attackExport, err = export.NewAttackPublisher(cfg.AttackExport.NATSURL, cfg.AttackExport.Subject, format, log)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, r.attackExport)
		log.WithField("subject", cfg.AttackExport.Subject).Info("attack export enabled")
	}
	if cfg.ClickHouse.Enabled {
		r.clickhouse, err = export.NewClickHouseWriter(cfg.ClickHouse.Connection, log)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, r.clickhouse)
	}

	var mitigator model.Mitigator
	if cfg.Mitigation.Enabled {
		var speaker bgp.Speaker = &bgp.LogSpeaker{Log: log}
		if cfg.Mitigation.ExecPath != "" {
			speaker = &bgp.ExecSpeaker{Path: cfg.Mitigation.ExecPath}
		}
		mitigator = bgp.NewMitigator(speaker, cfg.Mitigation.Blackhole, log)
	}

	r.manager = attack.New(attack.Config{
		BanTime:        cfg.BanDuration(),
		UnbanEnabled:   cfg.UnbanEnabled,
		HookBudget:     time.Duration(cfg.Engine.HookBudgetSeconds) * time.Second,
		CaptureEnabled: cfg.Capture.Enabled,
		CaptureSize:    cfg.Capture.Size,
		CaptureDir:     cfg.Capture.Directory,
	}, notifiers, mitigator, log)

	r.registry = prometheus.NewRegistry()
	r.registry.MustRegister(collectors.NewGoCollector())
	intakeMetrics := telemetry.NewMetrics(r.registry)

	sinks := []model.PacketSink{r.engine, r.manager}

	if cfg.SFlow.Enabled {
		listener, err := telemetry.NewListener("sflow", cfg.SFlow.Listen,
			telemetry.NewSFlowParser(cfg.Capture.Enabled), sinks, intakeMetrics, log)
		if err != nil {
			return nil, err
		}
		r.listeners = append(r.listeners, listener)
	}
	if cfg.Netflow.Enabled {
		listener, err := telemetry.NewListener("netflow", cfg.Netflow.Listen,
			telemetry.NewNetflowParser(cfg.Netflow.SamplingRatio), sinks, intakeMetrics, log)
		if err != nil {
			return nil, err
		}
		r.listeners = append(r.listeners, listener)
	}
	if cfg.Mirror.Enabled {
		r.subscriber, err = probe.NewSubscriber(cfg.Mirror.NATSURL, cfg.Mirror.Subject, format, log)
		if err != nil {
			return nil, fmt.Errorf("mirror intake: %w", err)
		}
	}

	apiServer := api.NewServer(r.engine, r.manager, log)
	if cfg.API.HTTPListen != "" {
		r.httpLn, err = net.Listen("tcp", cfg.API.HTTPListen)
		if err != nil {
			return nil, &telemetry.BindError{Addr: cfg.API.HTTPListen, Err: err}
		}
		r.httpSrv = &http.Server{Handler: apiServer.Router(r.registry)}
	}
	if cfg.API.GRPCListen != "" {
		r.grpcLn, err = net.Listen("tcp", cfg.API.GRPCListen)
		if err != nil {
			return nil, &telemetry.BindError{Addr: cfg.API.GRPCListen, Err: err}
		}
		r.grpcSrv = grpc.NewServer()
		v1.RegisterFastnetmonServer(r.grpcSrv, api.NewGRPCServer(r.manager))
	}

	return r, nil
}

// Start launches every worker goroutine.
func (r *Runtime) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, listener := range r.listeners {
		r.wg.Add(1)
		go func(l *telemetry.Listener) {
			defer r.wg.Done()
			l.Run(ctx)
		}(listener)
	}

	if r.subscriber != nil {
		if err := r.subscriber.Start([]model.PacketSink{r.engine, r.manager}); err != nil {
			return fmt.Errorf("mirror intake: %w", err)
		}
	}

	r.wg.Add(1)
	go r.runTicker(ctx)

	if r.httpSrv != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.httpSrv.Serve(r.httpLn); err != nil && err != http.ErrServerClosed {
				r.log.WithError(err).Error("http api server stopped")
			}
		}()
		r.log.WithField("addr", r.httpLn.Addr()).Info("http api listening")
	}
	if r.grpcSrv != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.grpcSrv.Serve(r.grpcLn); err != nil {
				r.log.WithError(err).Error("grpc api server stopped")
			}
		}()
		r.log.WithField("addr", r.grpcLn.Addr()).Info("grpc api listening")
	}

	r.log.Info("runtime started")
	return nil
}

// runTicker drives the whole slow path: counter rotation, threshold
// evaluation, the attack state machine and periodic history export.
func (r *Runtime) runTicker(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	snapshotEvery := r.cfg.ClickHouse.SnapshotIntervalSeconds
	ticks := 0

	for {
		select {
		case now := <-ticker.C:
			r.tick(now)
			ticks++
			if r.clickhouse != nil && ticks%snapshotEvery == 0 {
				snap := r.engine.Inspect()
				go func() {
					if err := r.clickhouse.WriteSnapshot(snap); err != nil {
						r.log.WithError(err).Error("clickhouse snapshot write failed")
					}
				}()
			}
		case <-ctx.Done():
			// One final tick flushes the active attacks before shutdown.
			r.tick(time.Now())
			return
		}
	}
}

func (r *Runtime) tick(now time.Time) {
	r.engine.Tick(now)
	snap := r.engine.Inspect()
	events := r.detector.Evaluate(snap)
	r.manager.Process(snap, events)
}

// Reload swaps in a new host-group and monitored-network generation. On
// validation failure the running generation stays in force; the failure is
// remembered for the shutdown exit code.
func (r *Runtime) Reload(cfg *config.Config) error {
	groups, err := cfg.BuildHostGroups()
	if err == nil {
		var networks []netip.Prefix
		networks, err = cfg.Networks()
		if err == nil {
			err = r.resolver.Load(groups, networks)
		}
	}
	if err != nil {
		r.reloadFailed.Store(true)
		r.log.WithError(err).Error("configuration reload rejected, keeping previous generation")
		return err
	}
	r.log.Info("configuration reloaded")
	return nil
}

// ReloadFailed reports whether any reload was rejected during this
// process's lifetime.
func (r *Runtime) ReloadFailed() bool {
	return r.reloadFailed.Load()
}

// Stop shuts the daemon down: stop intake, drain the final tick, clear
// active attacks withdrawing their mitigations, stop the surfaces.
func (r *Runtime) Stop() {
	r.log.Info("runtime stopping")
	if r.cancel != nil {
		r.cancel()
	}
	for _, listener := range r.listeners {
		listener.Close()
	}
	if r.subscriber != nil {
		r.subscriber.Close()
	}
	if r.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		r.httpSrv.Shutdown(ctx)
		cancel()
	}
	if r.grpcSrv != nil {
		r.grpcSrv.GracefulStop()
	}
	r.wg.Wait()

	r.manager.Shutdown()

	if r.attackExport != nil {
		r.attackExport.Close()
	}
	if r.clickhouse != nil {
		r.clickhouse.Close()
	}
	r.log.Info("runtime stopped")
}
