package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/stationsync/internal/audit"
	"github.com/JakeFAU/stationsync/internal/clock/system"
	"github.com/JakeFAU/stationsync/internal/config"
	"github.com/JakeFAU/stationsync/internal/directory"
	"github.com/JakeFAU/stationsync/internal/extractor"
	collyfetcher "github.com/JakeFAU/stationsync/internal/fetcher/colly"
	"github.com/JakeFAU/stationsync/internal/id/uuid"
	"github.com/JakeFAU/stationsync/internal/logging"
	"github.com/JakeFAU/stationsync/internal/merge"
	"github.com/JakeFAU/stationsync/internal/metrics"
	"github.com/JakeFAU/stationsync/internal/pipeline"
	"github.com/JakeFAU/stationsync/internal/progress"
	"github.com/JakeFAU/stationsync/internal/progress/sinks"
	"github.com/JakeFAU/stationsync/internal/publisher/pubsub"
	"github.com/JakeFAU/stationsync/internal/resolver"
	"github.com/JakeFAU/stationsync/internal/schedule"
	"github.com/JakeFAU/stationsync/internal/station"
	"github.com/JakeFAU/stationsync/internal/storage"
	"github.com/JakeFAU/stationsync/internal/tasks"
	"github.com/JakeFAU/stationsync/internal/telemetry"
)

const (
	exitOK    = 0
	exitFatal = 1

	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := exitOK
	cmd := newRootCmd(&code)
	if err := cmd.ExecuteContext(ctx); err != nil {
		code = exitFatal
	}
	stop()
	os.Exit(code)
}

// newRootCmd builds the command line. The job's exit code is stored in code.
func newRootCmd(code *int) *cobra.Command {
	var (
		cfgPath string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "stationsync",
		Short: "Synchronize the station directory into the local catalogue.",
		Long: `stationsync searches the station directory for every configured country and place,
extracts the listed stations and merges them into the catalogue store. It is meant to be
started daily by an external scheduler and only does work on scheduled run days.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = run(cmd.Context(), cfgPath, force, cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", os.Getenv(config.EnvConfigFile),
		"config file (defaults to $"+config.EnvConfigFile+")")
	cmd.Flags().BoolVar(&force, "force", false, "run even when today is not a scheduled run day")
	return cmd
}

// run wires the job and returns the process exit code. force overrides the run gate.
func run(ctx context.Context, cfgPath string, force bool, stderr io.Writer) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load config: %v\n", err)
		return exitFatal
	}
	cfg.Schedule.Force = cfg.Schedule.Force || force
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: logger init: %v\n", err)
		return exitFatal
	}
	defer func() {
		_ = logger.Sync()
	}()

	clock := system.New()
	gate := schedule.Gate{IntervalDays: cfg.Schedule.IntervalDays, Force: cfg.Schedule.Force}
	if now := clock.Now(); !gate.ShouldRun(now) {
		logger.Info("not a scheduled run day, exiting",
			zap.Int("interval_days", gate.IntervalDays),
			zap.Time("next_run", schedule.NextRun(now, gate.IntervalDays)),
		)
		return exitOK
	}

	tp, err := telemetry.InitTracerProvider(ctx, "stationsync")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: open %s store: %v\n", cfg.Store.Driver, err)
		logger.Error("store connection failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		return exitFatal
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	if cfg.Logging.Audit {
		level, err := zapcore.ParseLevel(cfg.Logging.AuditLevel)
		if err != nil {
			logger.Warn("invalid audit level, using info", zap.String("audit_level", cfg.Logging.AuditLevel))
			level = zapcore.InfoLevel
		}
		logger = logging.WithAudit(logger, audit.NewCore(store, level, audit.WithFallback(stderr)))
	}

	reg := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		logger.Error("metrics init failed", zap.Error(err))
		return exitFatal
	}
	upstream, err := metrics.NewUpstream(reg)
	if err != nil {
		logger.Error("metrics init failed", zap.Error(err))
		return exitFatal
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Upstream.UserAgent,
		Timeout:       cfg.UpstreamTimeout(),
		MaxBodyBytes:  cfg.Upstream.MaxBodyBytes,
		Headers:       cfg.UpstreamHeaders(),
		WrapTransport: upstream.InstrumentRoundTripper,
	})
	client, err := directory.New(fetcher, directory.Config{
		BaseURL:  cfg.Upstream.BaseURL,
		Language: cfg.Upstream.Language,
	})
	if err != nil {
		logger.Error("directory client init failed", zap.Error(err))
		return exitFatal
	}

	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	publisher := newPublisher(ctx, cfg, logger)
	if closer, ok := publisher.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("publisher close failed", zap.Error(err))
			}
		}()
	}

	loader := tasks.NewLoader(store, tasks.Config{
		CountryConfigName: cfg.Tasks.CountryConfigName,
		PlaceConfigName:   cfg.Tasks.PlaceConfigName,
		DefaultQuery:      cfg.Tasks.DefaultQuery,
	}, logger.Named("tasks"))
	taskList, err := loader.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load tasks: %v\n", err)
		logger.Error("task loading failed", zap.Error(err))
		_ = hub.Close(context.Background())
		return exitFatal
	}

	runID, err := uuid.New().NewRunID()
	if err != nil {
		logger.Error("run id generation failed", zap.Error(err))
		_ = hub.Close(context.Background())
		return exitFatal
	}

	p := pipeline.New(
		resolver.New(client, logger.Named("resolver")),
		extractor.New(client, extractor.Config{
			StreamURLTemplate: cfg.Upstream.StreamURLTemplate,
			LogoURLTemplate:   cfg.Upstream.LogoURLTemplate,
		}, logger.Named("extractor")),
		merge.New(store, logger.Named("merge")),
		publisher,
		hub,
		clock,
		pipeline.Config{Topic: cfg.PubSub.TopicName},
		logger.Named("pipeline"),
	)
	p.Run(ctx, runID, taskList)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	if err := sinks.Push(shutdownCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, reg); err != nil {
		logger.Warn("metrics push failed", zap.Error(err))
	}
	return exitOK
}

// newPublisher returns nil when notifications are disabled or the client cannot be created.
func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) station.Publisher {
	if cfg.PubSub.TopicName == "" {
		return nil
	}
	pub, err := pubsub.New(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Warn("pubsub disabled", zap.Error(err))
		return nil
	}
	return pub
}
