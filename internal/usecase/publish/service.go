package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/observability/metrics"
)

// Defaults for Config.
const (
	defaultCircuitBreakerThreshold = 3
	defaultCircuitBreakerTimeout   = 24 * time.Hour
	defaultChannelTimeout          = 2 * time.Minute
)

// Config tunes the optional channel policy.
type Config struct {
	// CircuitBreakerThreshold is the number of consecutive failures after
	// which an optional channel is skipped.
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long a tripped channel is skipped.
	CircuitBreakerTimeout time.Duration
	// ChannelTimeout bounds a single channel delivery.
	ChannelTimeout time.Duration
}

// DefaultConfig returns the production policy. Runs are daily, so a tripped
// channel sits out roughly one run.
func DefaultConfig() Config {
	return Config{
		CircuitBreakerThreshold: defaultCircuitBreakerThreshold,
		CircuitBreakerTimeout:   defaultCircuitBreakerTimeout,
		ChannelTimeout:          defaultChannelTimeout,
	}
}

// ChannelHealthStatus represents the health status of a channel.
type ChannelHealthStatus struct {
	Name               string     `json:"name"`
	Mandatory          bool       `json:"mandatory"`
	Enabled            bool       `json:"enabled"`
	CircuitBreakerOpen bool       `json:"circuit_breaker_open"`
	DisabledUntil      *time.Time `json:"disabled_until,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
}

// channelHealth tracks circuit breaker state for an optional channel
type channelHealth struct {
	consecutiveFailures int
	disabledUntil       time.Time
	lastError           string
	mu                  sync.Mutex
}

// Service publishes to one mandatory channel, then to the optional ones.
type Service struct {
	mandatory Channel
	optional  []Channel
	cfg       Config

	health map[string]*channelHealth
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a Service. mandatory must not be nil.
func NewService(mandatory Channel, optional []Channel, cfg Config, logger *slog.Logger) (*Service, error) {
	if mandatory == nil {
		return nil, errors.New("publish: mandatory channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.CircuitBreakerThreshold <= 0 {
		cfg.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout <= 0 {
		cfg.CircuitBreakerTimeout = def.CircuitBreakerTimeout
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = def.ChannelTimeout
	}

	s := &Service{
		mandatory: mandatory,
		optional:  optional,
		cfg:       cfg,
		health:    make(map[string]*channelHealth, len(optional)+1),
		now:       time.Now,
		logger:    logger,
	}
	s.health[mandatory.Name()] = &channelHealth{}
	for _, ch := range optional {
		s.health[ch.Name()] = &channelHealth{}
	}
	return s, nil
}

// Publish delivers artifact to the mandatory channel and, only if that
// succeeds, to every enabled optional channel. The returned error is a
// *entity.PublishError when the mandatory channel failed; optional failures
// are reported in the outcomes only.
func (s *Service) Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post Post) ([]entity.PublishOutcome, error) {
	if artifact == nil || artifact.Size() == 0 {
		return nil, ErrNoArtifact
	}

	enabled := 1
	for _, ch := range s.optional {
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(enabled)

	mandatory := s.deliver(ctx, s.mandatory, true, artifact, post)
	outcomes := []entity.PublishOutcome{mandatory}
	if !mandatory.Success {
		return outcomes, &entity.PublishError{Channel: s.mandatory.Name(), Mandatory: true, Err: mandatory.Err}
	}

	for _, ch := range s.optional {
		outcomes = append(outcomes, s.publishOptional(ctx, ch, artifact, post))
	}
	return outcomes, nil
}

func (s *Service) publishOptional(ctx context.Context, ch Channel, artifact *entity.GeneratedArtifact, post Post) entity.PublishOutcome {
	if !ch.IsEnabled() {
		s.logger.Debug("channel disabled, skipping", slog.String("channel", ch.Name()))
		metrics.RecordPublishSkipped(ch.Name())
		return entity.PublishOutcome{Channel: ch.Name(), Skipped: true, Err: ErrChannelDisabled}
	}

	health := s.health[ch.Name()]
	health.mu.Lock()
	if s.now().Before(health.disabledUntil) {
		until := health.disabledUntil
		health.mu.Unlock()
		s.logger.Warn("channel temporarily disabled due to circuit breaker",
			slog.String("channel", ch.Name()),
			slog.Time("disabled_until", until))
		metrics.RecordPublishSkipped(ch.Name())
		return entity.PublishOutcome{Channel: ch.Name(), Skipped: true, Err: ErrCircuitBreakerOpen}
	}
	health.mu.Unlock()

	return s.deliver(ctx, ch, false, artifact, post)
}

func (s *Service) deliver(ctx context.Context, ch Channel, mandatory bool, artifact *entity.GeneratedArtifact, post Post) (out entity.PublishOutcome) {
	out = entity.PublishOutcome{Channel: ch.Name(), Mandatory: mandatory}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in channel",
				slog.String("channel", ch.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out.Success = false
			out.Err = fmt.Errorf("channel %s panicked: %v", ch.Name(), r)
		}
		out.Duration = time.Since(start)
		s.recordResult(ch.Name(), mandatory, out)
	}()

	if mandatory && !ch.IsEnabled() {
		out.Err = ErrChannelDisabled
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()

	if err := ch.Publish(cctx, artifact, post); err != nil {
		out.Err = err
		return out
	}
	out.Success = true
	return out
}

func (s *Service) recordResult(name string, mandatory bool, out entity.PublishOutcome) {
	metrics.RecordPublish(name, out.Success, out.Duration)

	health := s.health[name]
	health.mu.Lock()
	if out.Success {
		health.consecutiveFailures = 0
		health.lastError = ""
	} else {
		health.consecutiveFailures++
		health.lastError = logging.SanitizeError(out.Err)
		if !mandatory && health.consecutiveFailures >= s.cfg.CircuitBreakerThreshold {
			health.disabledUntil = s.now().Add(s.cfg.CircuitBreakerTimeout)
			s.logger.Error("circuit breaker opened for channel",
				slog.String("channel", name),
				slog.Int("consecutive_failures", health.consecutiveFailures))
			RecordCircuitBreakerOpen(name)
		}
	}
	health.mu.Unlock()

	if out.Success {
		s.logger.Info("channel publish succeeded",
			slog.String("channel", name),
			slog.Bool("mandatory", mandatory),
			slog.Duration("duration", out.Duration))
		return
	}
	level := slog.LevelWarn
	if mandatory {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "channel publish failed",
		slog.String("channel", name),
		slog.Bool("mandatory", mandatory),
		slog.Duration("duration", out.Duration),
		slog.Any("error", out.Err))
}

// GetChannelHealth returns the health of every channel, mandatory first.
func (s *Service) GetChannelHealth() []ChannelHealthStatus {
	all := append([]Channel{s.mandatory}, s.optional...)
	statuses := make([]ChannelHealthStatus, 0, len(all))

	for i, ch := range all {
		health := s.health[ch.Name()]
		health.mu.Lock()
		var disabledUntil *time.Time
		open := false
		if s.now().Before(health.disabledUntil) {
			open = true
			until := health.disabledUntil
			disabledUntil = &until
		}
		lastErr := health.lastError
		health.mu.Unlock()

		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Mandatory:          i == 0,
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: open,
			DisabledUntil:      disabledUntil,
			LastError:          lastErr,
		})
	}
	return statuses
}
