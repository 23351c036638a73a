package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/metrics"
)

// Config selects backends by identifier. Unknown identifiers resolve to the
// defaults with a warning.
type Config struct {
	Prompt         string
	Render         string
	RenderFallback string

	DefaultPrompt PromptBackendID
	DefaultRender RenderBackendID
}

// DefaultConfig returns the production backend choice.
func DefaultConfig() Config {
	return Config{
		Prompt:        string(PromptGroq),
		Render:        string(RenderTogether),
		DefaultPrompt: PromptGroq,
		DefaultRender: RenderTogether,
	}
}

// Registry holds the resolved backends for one process.
//
// Authoring always yields an instruction: when the selected backend fails
// the local template is used. Rendering is retried once on the fallback
// backend, and only for length failures.
type Registry struct {
	prompt         PromptBackend
	render         RenderBackend
	renderFallback RenderBackend
	logger         *slog.Logger
}

// NewRegistry resolves cfg against the registered backends. It fails only
// when no rendering backend is available.
func NewRegistry(prompts map[PromptBackendID]PromptBackend, renders map[RenderBackendID]RenderBackend, cfg Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultPrompt == "" {
		cfg.DefaultPrompt = PromptGroq
	}
	if cfg.DefaultRender == "" {
		cfg.DefaultRender = RenderTogether
	}

	r := &Registry{logger: logger}
	r.prompt = resolvePrompt(prompts, cfg, logger)

	render, renderID := resolveRender(renders, cfg, logger)
	if render == nil {
		return nil, entity.ErrNoRenderBackend
	}
	r.render = render
	r.renderFallback = resolveRenderFallback(renders, cfg.RenderFallback, renderID, logger)

	logger.Info("provider registry configured",
		slog.String("prompt_backend", r.PromptBackend()),
		slog.String("render_backend", r.RenderBackend()),
		slog.String("render_fallback", r.RenderFallbackBackend()))
	return r, nil
}

func resolvePrompt(prompts map[PromptBackendID]PromptBackend, cfg Config, logger *slog.Logger) PromptBackend {
	id, ok := ParsePromptBackend(cfg.Prompt)
	if !ok {
		logger.Warn("unknown prompt backend, using default",
			slog.String("requested", cfg.Prompt),
			slog.String("default", string(cfg.DefaultPrompt)))
		id = cfg.DefaultPrompt
	}

	candidates := append([]PromptBackendID{id, cfg.DefaultPrompt}, PromptBackends...)
	for _, c := range candidates {
		b, ok := prompts[c]
		if !ok || b == nil {
			continue
		}
		if err := b.Available(); err != nil {
			logger.Error("prompt backend unavailable",
				slog.String("backend", string(c)),
				slog.Any("error", err))
			continue
		}
		if c != id {
			logger.Warn("prompt backend substituted",
				slog.String("requested", string(id)),
				slog.String("using", string(c)))
		}
		return b
	}

	logger.Warn("no prompt backend available, instructions will use the local template")
	return nil
}

func resolveRender(renders map[RenderBackendID]RenderBackend, cfg Config, logger *slog.Logger) (RenderBackend, RenderBackendID) {
	id, ok := ParseRenderBackend(cfg.Render)
	if !ok {
		logger.Warn("unknown render backend, using default",
			slog.String("requested", cfg.Render),
			slog.String("default", string(cfg.DefaultRender)))
		id = cfg.DefaultRender
	}

	candidates := append([]RenderBackendID{id, cfg.DefaultRender}, RenderBackends...)
	for _, c := range candidates {
		b, ok := renders[c]
		if !ok || b == nil {
			continue
		}
		if err := b.Available(); err != nil {
			logger.Error("render backend unavailable",
				slog.String("backend", string(c)),
				slog.Any("error", err))
			continue
		}
		if c != id {
			logger.Warn("render backend substituted",
				slog.String("requested", string(id)),
				slog.String("using", string(c)))
		}
		return b, c
	}
	logger.Error("no render backend available")
	return nil, ""
}

func resolveRenderFallback(renders map[RenderBackendID]RenderBackend, requested string, primary RenderBackendID, logger *slog.Logger) RenderBackend {
	var candidates []RenderBackendID
	if strings.TrimSpace(requested) != "" {
		id, ok := ParseRenderBackend(requested)
		if !ok {
			logger.Warn("unknown render fallback backend, picking first available",
				slog.String("requested", requested))
		} else {
			candidates = append(candidates, id)
		}
	}
	candidates = append(candidates, RenderBackends...)

	for _, c := range candidates {
		if c == primary {
			continue
		}
		b, ok := renders[c]
		if !ok || b == nil || b.Available() != nil {
			continue
		}
		return b
	}
	logger.Info("no render fallback backend available")
	return nil
}

// PromptBackend returns the active authoring backend name.
func (r *Registry) PromptBackend() string {
	if r.prompt == nil {
		return entity.LocalBackend
	}
	return r.prompt.Name()
}

// RenderBackend returns the active rendering backend name.
func (r *Registry) RenderBackend() string { return r.render.Name() }

// RenderFallbackBackend returns the fallback rendering backend name, or "".
func (r *Registry) RenderFallbackBackend() string {
	if r.renderFallback == nil {
		return ""
	}
	return r.renderFallback.Name()
}

// Author produces a rendering instruction. It never fails.
func (r *Registry) Author(ctx context.Context, req PromptRequest) entity.RenderingInstruction {
	if r.prompt == nil {
		return LocalInstruction(req)
	}

	instr, err := r.prompt.Generate(ctx, req)
	if err == nil && strings.TrimSpace(instr.Text) != "" {
		if instr.Backend == "" {
			instr.Backend = r.prompt.Name()
		}
		return instr
	}
	if err == nil {
		err = fmt.Errorf("backend %s returned an empty instruction", r.prompt.Name())
	}

	r.logger.Warn("instruction authoring failed, using local template",
		slog.String("backend", r.prompt.Name()),
		slog.String("kind", string(entity.KindOf(err))),
		slog.Any("error", err))
	return LocalInstruction(req)
}

// Render renders req on the active backend. On a length failure the same
// request is retried once on the fallback backend; any other failure is
// returned as is.
func (r *Registry) Render(ctx context.Context, req RenderRequest) (*entity.GeneratedArtifact, error) {
	art, err := r.render.Render(ctx, req)
	if err == nil {
		return art, nil
	}

	kind := entity.KindOf(err)
	if kind != entity.FailureLength || r.renderFallback == nil {
		return nil, asBackendError(r.render.Name(), err)
	}

	r.logger.Warn("render rejected instruction length, retrying on fallback backend",
		slog.String("backend", r.render.Name()),
		slog.String("fallback", r.renderFallback.Name()),
		slog.Int("instruction_length", len([]rune(req.Instruction.Text))),
		slog.Any("error", err))
	metrics.RecordRenderFallback(r.render.Name(), r.renderFallback.Name())

	art, ferr := r.renderFallback.Render(ctx, req)
	if ferr != nil {
		return nil, fmt.Errorf("render fallback after %s length failure: %w",
			r.render.Name(), asBackendError(r.renderFallback.Name(), ferr))
	}
	return art, nil
}

func asBackendError(backend string, err error) error {
	var be *entity.BackendError
	if errors.As(err, &be) {
		return err
	}
	return entity.NewBackendError(backend, "", err)
}
