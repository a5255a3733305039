// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ferryd is the supervisory daemon of the ferry file-transfer core.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/tombee/ferry/internal/app"
	"github.com/tombee/ferry/internal/bus"
	"github.com/tombee/ferry/internal/config"
	"github.com/tombee/ferry/internal/dispatch"
	"github.com/tombee/ferry/internal/engine"
	"github.com/tombee/ferry/internal/events"
	"github.com/tombee/ferry/internal/exec"
	"github.com/tombee/ferry/internal/log"
	"github.com/tombee/ferry/internal/perf"
	"github.com/tombee/ferry/internal/sched"
	"github.com/tombee/ferry/internal/table"
	"github.com/tombee/ferry/internal/tablestore"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  string
		tableSource string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:     "ferryd",
		Short:   "Supervisory daemon for the ferry file-transfer core",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(configPath, tableSource, metricsAddr)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "Path to daemon config file")
	root.Flags().StringVar(&tableSource, "table", "", "Override the config table source file")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for the /metrics endpoint")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, tableSource, metricsAddr string) error {
	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		return err
	}
	if tableSource != "" {
		cfg.Table.Source = tableSource
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := initTracing(cfg.Tracing.ServiceName)
		if err != nil {
			logger.Error("failed to initialize tracing", slog.Any("error", err))
			return err
		}
		defer shutdown()
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	em := events.NewEmitter(logger)
	b := bus.New()
	defer b.Close()

	store := tablestore.New(logger)
	if cfg.Table.Watch {
		watcher, err := tablestore.NewWatcher(store, cfg.Table.Source)
		if err != nil {
			logger.Error("failed to watch table source", slog.Any("error", err))
			return err
		}
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	tables := table.NewManager(store, em, cfg.Table.Name, cfg.Table.Source, engine.FileDataCapacity)
	eng := &engine.Noop{}
	executive := exec.NewOS(ctx, logger)

	a := app.New(app.Options{
		PipeName:       cfg.Bus.PipeName,
		PipeDepth:      cfg.Bus.PipeDepth,
		ReceiveTimeout: cfg.Bus.ReceiveTimeout.Std(),
		CommandID:      bus.MsgID(cfg.Messages.CommandID),
		WakeupID:       bus.MsgID(cfg.Messages.WakeupID),
		HousekeepingID: bus.MsgID(cfg.Messages.HousekeepingID),
		TelemetryID:    bus.MsgID(cfg.Messages.TelemetryID),
		Commands: dispatch.CommandFunc(func(msg *bus.Message) {
			// Command processing is an external collaborator; until it
			// lands, commands are acknowledged in the log only.
			logger.Info("command received", log.TraceIDKey, msg.TraceID)
		}),
		Version: version,
	}, logger, em, perf.NewTracer("ferryd"), b, tables, eng, executive)

	if cfg.Scheduler.Enabled {
		scheduler := sched.New(sched.Config{
			WakeupInterval:       wakeupInterval(cfg),
			HousekeepingInterval: cfg.Scheduler.HousekeepingInterval.Std(),
			WakeupID:             bus.MsgID(cfg.Messages.WakeupID),
			HousekeepingID:       bus.MsgID(cfg.Messages.HousekeepingID),
		}, b, logger)
		scheduler.Start()
		defer scheduler.Stop()
	}

	if a.Run() == exec.ErrorStopping {
		return fmt.Errorf("ferryd exited with run state %s", exec.ErrorStopping)
	}
	return nil
}

// wakeupInterval derives the wakeup cadence from the table's tick rate when
// the source is readable up front, falling back to 100 Hz. The app validates
// the table properly during init; this peek only paces the scheduler.
func wakeupInterval(cfg *config.Config) time.Duration {
	const fallback = 10 * time.Millisecond
	data, err := os.ReadFile(cfg.Table.Source)
	if err != nil {
		return fallback
	}
	var img table.Config
	if err := yaml.Unmarshal(data, &img); err != nil || img.TicksPerSecond == 0 {
		return fallback
	}
	return time.Second / time.Duration(img.TicksPerSecond)
}

func initTracing(serviceName string) (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", slog.Any("error", err))
	}
}
