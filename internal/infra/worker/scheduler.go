package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/pkg/config"
)

// Job performs one run. It must honor ctx and never return nil.
type Job func(ctx context.Context) *entity.RunResult

// Scheduler triggers Job on the configured cron schedule. A trigger that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	cfg     *WorkerConfig
	job     Job
	metrics *WorkerMetrics
	health  *HealthServer
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewScheduler validates the schedule and registers job. metrics and health
// may be nil.
func NewScheduler(cfg *WorkerConfig, job Job, metrics *WorkerMetrics, health *HealthServer, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{cfg: cfg, job: job, metrics: metrics, health: health, logger: logger}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithParser(config.CronParser),
		cron.WithChain(cron.Recover(cronLogger{logger}), s.skipIfRunning()),
	)
	if _, err := s.cron.AddFunc(cfg.CronSchedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("add cron job: %w", err)
	}
	return s, nil
}

// skipIfRunning drops a trigger while the previous run is still going.
func (s *Scheduler) skipIfRunning() cron.JobWrapper {
	return cron.SkipIfStillRunning(skipLogger{cronLogger: cronLogger{s.logger}, metrics: s.metrics})
}

// Start runs the scheduler until ctx is canceled, then waits for an active
// run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	if s.health != nil {
		s.health.SetReady(true)
	}
	if next := s.cron.Entries(); len(next) > 0 {
		s.logger.Info("worker started",
			slog.String("schedule", s.cfg.CronSchedule),
			slog.String("timezone", s.cfg.Timezone),
			slog.Time("next_run", next[0].Next))
	}

	<-ctx.Done()
	if s.health != nil {
		s.health.SetReady(false)
	}
	s.logger.Info("scheduler stopping, waiting for active run")
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce executes the job with the configured timeout and records metrics.
func (s *Scheduler) RunOnce(ctx context.Context) *entity.RunResult {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordJobRun("started")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, s.logger)

	result := s.job(ctx)
	if result == nil {
		result = &entity.RunResult{Err: fmt.Errorf("job returned no result")}
	}

	status := "failure"
	if result.Success {
		status = "success"
	}
	if s.metrics != nil {
		s.metrics.RecordJobRun(status)
		s.metrics.RecordJobDuration(time.Since(start))
		if result.Success {
			s.metrics.RecordLastSuccess()
		}
	}
	if s.health != nil {
		s.health.RecordRun(RunStatus{RunID: result.RunID, Success: result.Success, FinishedAt: time.Now()})
	}
	return result
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}

// skipLogger counts the "skip" messages emitted by cron.SkipIfStillRunning.
type skipLogger struct {
	cronLogger
	metrics *WorkerMetrics
}

func (l skipLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg != "skip" {
		l.cronLogger.Info(msg, keysAndValues...)
		return
	}
	l.logger.Warn("previous run still active, skipping trigger")
	if l.metrics != nil {
		l.metrics.RecordJobRun("skipped")
	}
}
