// Package pipeline runs one end-to-end content run: fetch a quote, pick a
// style, author an instruction, render an image and publish it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/observability/metrics"
	"ai-slovo/internal/observability/tracing"
	"ai-slovo/internal/usecase/provider"
	"ai-slovo/internal/usecase/publish"
	"ai-slovo/internal/usecase/source"
)

// Stage names reported in RunResult.Stage.
const (
	StageFetch   = "fetch_quote"
	StageStyle   = "select_style"
	StageEnrich  = "enrich"
	StageAuthor  = "author_instruction"
	StageRender  = "render"
	StagePublish = "publish"
	StageDone    = "done"
)

// ErrPanic marks a run aborted by an unexpected panic.
var ErrPanic = errors.New("pipeline panicked")

// QuoteSource yields the day's quote.
type QuoteSource interface {
	Fetch(ctx context.Context) source.Result
}

// StyleSelector draws a style.
type StyleSelector interface {
	Select() (entity.Selection, error)
}

// Enricher adds optional context. A nil result with a nil error means none.
type Enricher interface {
	Fetch(ctx context.Context) (*entity.Enrichment, error)
}

// Providers authors instructions and renders images.
type Providers interface {
	Author(ctx context.Context, req provider.PromptRequest) entity.RenderingInstruction
	Render(ctx context.Context, req provider.RenderRequest) (*entity.GeneratedArtifact, error)
}

// Publisher delivers the artifact.
type Publisher interface {
	Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) ([]entity.PublishOutcome, error)
}

// RunRecorder persists run results. Failures never change the run outcome.
type RunRecorder interface {
	Record(ctx context.Context, result *entity.RunResult) error
}

// Service is the orchestrator. Enricher and Journal are optional.
type Service struct {
	Sources   QuoteSource
	Styles    StyleSelector
	Enricher  Enricher
	Providers Providers
	Publisher Publisher
	Journal   RunRecorder

	Logger *slog.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run executes one pipeline run. It never panics and never returns nil; the
// result's Success is true only when content was fetched, an image was
// rendered and the mandatory channel accepted it.
func (s *Service) Run(ctx context.Context) (result *entity.RunResult) {
	result = &entity.RunResult{RunID: uuid.NewString(), StartedAt: s.now()}
	logger := logging.WithRunID(s.logger(), result.RunID)
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, s.Tracer, "pipeline.run",
		attribute.String("run_id", result.RunID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked",
				slog.String("stage", result.Stage),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result.Success = false
			result.Err = fmt.Errorf("%w in stage %s: %v", ErrPanic, result.Stage, r)
		}
		result.FinishedAt = s.now()
		metrics.RecordRun(result.Success, result.Duration())
		s.record(ctx, logger, result)
		span.SetAttributes(attribute.Bool("success", result.Success), attribute.String("stage", result.Stage))
		tracing.EndSpan(span, result.Err)

		if result.Success {
			logger.Info("pipeline run succeeded",
				slog.Duration("duration", result.Duration()),
				slog.Any("channels", result.PublishedChannels()))
		} else {
			logger.Error("pipeline run failed",
				slog.String("stage", result.Stage),
				slog.Duration("duration", result.Duration()),
				slog.String("error", logging.SanitizeError(result.Err)))
		}
	}()

	logger.Info("pipeline run started")
	s.run(ctx, logger, result)
	return result
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, result *entity.RunResult) {
	// 1. content
	result.Stage = StageFetch
	sctx, span := tracing.StartSpan(ctx, s.Tracer, "pipeline.fetch_quote")
	res := s.Sources.Fetch(sctx)
	if res.Empty() {
		result.Err = res.Err()
		tracing.EndSpan(span, result.Err)
		return
	}
	span.SetAttributes(attribute.String("source", res.Quote.Source), attribute.Bool("used_fallback", res.UsedFallback))
	tracing.EndSpan(span, nil)
	result.Quote = res.Quote
	logger.Info("quote obtained",
		slog.String("source", res.Quote.Source),
		slog.Bool("used_fallback", res.UsedFallback),
		slog.String("quote", res.Quote.Text))

	// 2. style
	result.Stage = StageStyle
	_, span = tracing.StartSpan(ctx, s.Tracer, "pipeline.select_style")
	sel, err := s.Styles.Select()
	if err != nil {
		result.Err = fmt.Errorf("select style: %w", err)
		tracing.EndSpan(span, result.Err)
		return
	}
	span.SetAttributes(attribute.String("style", sel.Name))
	tracing.EndSpan(span, nil)
	result.Style = &sel
	metrics.RecordStyleSelected(sel.Name)

	// 3. optional enrichment
	result.Stage = StageEnrich
	enrichment := s.enrich(ctx, logger)

	// 4. instruction
	result.Stage = StageAuthor
	actx, span := tracing.StartSpan(ctx, s.Tracer, "pipeline.author_instruction")
	instr := s.Providers.Author(actx, provider.PromptRequest{
		Quote:   res.Quote.Text,
		Style:   sel.Entry,
		Context: enrichment.PromptContext,
	})
	span.SetAttributes(
		attribute.String("backend", instr.Backend),
		attribute.Bool("fallback", instr.Fallback),
		attribute.Bool("truncated", instr.Truncated),
		attribute.Int("length", len([]rune(instr.Text))))
	tracing.EndSpan(span, nil)
	result.Instruction = &instr
	metrics.RecordInstruction(instr.Backend, len([]rune(instr.Text)), instr.Truncated)
	logger.Info("rendering instruction ready",
		slog.String("backend", instr.Backend),
		slog.Bool("fallback", instr.Fallback),
		slog.Bool("truncated", instr.Truncated),
		slog.Int("length", len([]rune(instr.Text))))

	// 5. image
	result.Stage = StageRender
	rctx, span := tracing.StartSpan(ctx, s.Tracer, "pipeline.render")
	art, err := s.Providers.Render(rctx, provider.RenderRequest{
		Quote:       res.Quote.Text,
		Style:       sel.Entry,
		Instruction: instr,
	})
	if err != nil {
		result.Err = fmt.Errorf("render: %w", err)
		tracing.EndSpan(span, result.Err)
		return
	}
	span.SetAttributes(attribute.String("backend", art.Backend), attribute.Int("bytes", art.Size()))
	tracing.EndSpan(span, nil)
	result.Artifact = art

	// 6. distribution
	result.Stage = StagePublish
	pctx, span := tracing.StartSpan(ctx, s.Tracer, "pipeline.publish")
	outcomes, err := s.Publisher.Publish(pctx, art, publish.Post{
		Quote:       res.Quote.Text,
		Style:       sel.Entry,
		WeatherIcon: enrichment.CaptionIcon,
		Date:        result.StartedAt,
	})
	result.Outcomes = outcomes
	tracing.EndSpan(span, err)
	if err != nil {
		result.Err = err
		return
	}

	result.Stage = StageDone
	result.Success = true
}

func (s *Service) enrich(ctx context.Context, logger *slog.Logger) entity.Enrichment {
	if s.Enricher == nil {
		return entity.Enrichment{}
	}
	e, err := s.Enricher.Fetch(ctx)
	if err != nil {
		logger.Warn("enrichment unavailable, continuing without it", slog.Any("error", err))
		return entity.Enrichment{}
	}
	if e == nil {
		return entity.Enrichment{}
	}
	return *e
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, result *entity.RunResult) {
	if s.Journal == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordJournalWrite(false)
			logger.Error("run journal panicked", slog.Any("panic", r))
		}
	}()
	// the run context may already be past its deadline
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.Journal.Record(jctx, result); err != nil {
		metrics.RecordJournalWrite(false)
		logger.Warn("run journal write failed", slog.String("error", logging.SanitizeError(err)))
		return
	}
	metrics.RecordJournalWrite(true)
}
