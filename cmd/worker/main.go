// Command worker runs the daily quote-to-image pipeline.
//
//	worker serve   # run on the cron schedule until SIGINT/SIGTERM
//	worker run     # run the pipeline once and exit (non-zero on failure)
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ai-slovo/internal/config"
	workerPkg "ai-slovo/internal/infra/worker"
	"ai-slovo/internal/observability/logging"
	pkgconfig "ai-slovo/internal/pkg/config"
)

// errRunFailed is returned by the run command when the pipeline did not
// publish to the mandatory channel.
var errRunFailed = errors.New("pipeline run failed")

type rootOptions struct {
	envFile  string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Daily verse illustration pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")

	root.AddCommand(newServeCmd(opts), newRunCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger(opts)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger)
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger(opts)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, logger)
		},
	}
}

// initLogger loads the dotenv file and installs the JSON logger as default.
func initLogger(opts *rootOptions) *slog.Logger {
	envErr := godotenv.Load(opts.envFile)

	level := opts.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logger := logging.NewLoggerTo(os.Stdout, level)
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("failed to load env file",
			slog.String("path", opts.envFile),
			slog.String("error", envErr.Error()))
	}
	return logger
}

func loadPipelineConfig(logger *slog.Logger) (*config.PipelineConfig, error) {
	metrics := pkgconfig.NewConfigMetrics("pipeline", prometheus.DefaultRegisterer)
	cfg, err := config.LoadPipelineConfig(logger, metrics)
	if err != nil {
		return nil, err
	}
	logger.Info("pipeline configuration loaded",
		slog.Bool("production", cfg.Production),
		slog.String("quote_source", cfg.Quote.Source),
		slog.String("quote_fallback", cfg.Quote.Fallback),
		slog.String("prompt_backend", cfg.Providers.Prompt),
		slog.String("render_backend", cfg.Providers.Render),
		slog.Int("max_retries", cfg.MaxRetries),
		slog.Duration("retry_delay", cfg.RetryDelay),
		slog.Bool("weather", cfg.Weather.Enabled),
		slog.Bool("journal", cfg.JournalEnabled()))
	return cfg, nil
}

// serve runs the scheduler, the health server and the metrics server until
// ctx is canceled.
func serve(ctx context.Context, logger *slog.Logger) error {
	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	cfg, err := loadPipelineConfig(logger)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(a, logger)

	health := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	scheduler, err := workerPkg.NewScheduler(workerConfig, runPipeline(a.pipeline), workerMetrics, health, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := health.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return runMetricsServer(gctx, logger, workerConfig.MetricsPort, a.publish)
	})
	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	err = g.Wait()
	logger.Info("worker stopped")
	return err
}

// runOnce executes a single run bounded by RUN_TIMEOUT.
func runOnce(ctx context.Context, logger *slog.Logger) error {
	workerConfig := workerPkg.LoadConfigFromEnv(logger, nil)

	cfg, err := loadPipelineConfig(logger)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(a, logger)

	ctx, cancel := context.WithTimeout(ctx, workerConfig.RunTimeout)
	defer cancel()

	result := runPipeline(a.pipeline)(ctx)
	if !result.Success {
		return errRunFailed
	}
	return nil
}

func closeApp(a *app, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Close(ctx, logger)
}
