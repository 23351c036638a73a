package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/metrics"
	"ai-slovo/internal/resilience/retry"
)

// Result is the outcome of a chain fetch. Quote is nil when no source
// produced content.
type Result struct {
	Quote        *entity.Quote
	UsedFallback bool
	// Errors holds the failure of each consulted source, in order.
	Errors []error
}

// Empty reports whether no content was obtained.
func (r Result) Empty() bool { return r.Quote == nil }

// Err summarises why the result is empty.
func (r Result) Err() error {
	if !r.Empty() {
		return nil
	}
	return fmt.Errorf("%w: %w", entity.ErrNoContent, errors.Join(r.Errors...))
}

type link struct {
	id  ID
	src ContentSource
}

// Chain fetches from a primary source and, when it yields nothing, from at
// most one fallback source.
type Chain struct {
	primary  *link
	fallback *link
	retry    retry.Config
	now      func() time.Time
	logger   *slog.Logger
}

// ChainConfig names the sources to use.
type ChainConfig struct {
	Primary  string
	Fallback string
	// Default replaces unknown or unavailable identifiers.
	Default ID
	Retry   retry.Config
}

// NewChain resolves cfg against the registered sources. Unknown identifiers
// are replaced by cfg.Default with a warning; a fallback equal to the
// primary is dropped.
func NewChain(sources map[ID]ContentSource, cfg ChainConfig, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{
		retry:  cfg.Retry,
		now:    time.Now,
		logger: logger,
	}
	// an empty result is final; only failures are retried
	userRetryIf := c.retry.RetryIf
	c.retry.RetryIf = func(err error) bool {
		if errors.Is(err, entity.ErrEmptySource) {
			return false
		}
		return userRetryIf == nil || userRetryIf(err)
	}

	c.primary = resolve(sources, cfg.Primary, cfg.Default, "primary", logger)
	if strings.TrimSpace(cfg.Fallback) != "" {
		fb := resolve(sources, cfg.Fallback, cfg.Default, "fallback", logger)
		switch {
		case fb == nil:
		case c.primary != nil && fb.id == c.primary.id:
			logger.Warn("fallback source equals primary, fallback disabled",
				slog.String("source", string(fb.id)))
		default:
			c.fallback = fb
		}
	}

	attrs := []any{}
	if c.primary != nil {
		attrs = append(attrs, slog.String("primary", string(c.primary.id)))
	}
	if c.fallback != nil {
		attrs = append(attrs, slog.String("fallback", string(c.fallback.id)))
	}
	logger.Info("source chain configured", attrs...)
	return c
}

func resolve(sources map[ID]ContentSource, requested string, def ID, role string, logger *slog.Logger) *link {
	id, ok := ParseID(requested)
	if !ok {
		logger.Warn("unknown content source, using default",
			slog.String("role", role),
			slog.String("requested", requested),
			slog.String("default", string(def)))
		id = def
	}
	if src, ok := sources[id]; ok && src != nil {
		return &link{id: id, src: src}
	}
	if src, ok := sources[def]; ok && src != nil {
		logger.Warn("content source not configured, using default",
			slog.String("role", role),
			slog.String("requested", string(id)),
			slog.String("default", string(def)))
		return &link{id: def, src: src}
	}
	for _, known := range All {
		if src, ok := sources[known]; ok && src != nil {
			logger.Warn("content source not configured, using first available",
				slog.String("role", role),
				slog.String("requested", string(id)),
				slog.String("source", string(known)))
			return &link{id: known, src: src}
		}
	}
	logger.Error("no content source available", slog.String("role", role))
	return nil
}

// PrimaryID returns the resolved primary source, or "" when none.
func (c *Chain) PrimaryID() ID {
	if c.primary == nil {
		return ""
	}
	return c.primary.id
}

// FallbackID returns the resolved fallback source, or "" when none.
func (c *Chain) FallbackID() ID {
	if c.fallback == nil {
		return ""
	}
	return c.fallback.id
}

// Fetch returns content from the primary source, consulting the fallback
// only when the primary yields nothing. It never returns an error; an empty
// Result carries the causes.
func (c *Chain) Fetch(ctx context.Context) Result {
	var res Result

	if c.primary == nil {
		res.Errors = append(res.Errors, errors.New("no content source configured"))
		return res
	}

	q, err := c.fetchOne(ctx, c.primary)
	if err == nil {
		res.Quote = q
		return res
	}
	res.Errors = append(res.Errors, err)

	if c.fallback == nil {
		c.logger.Error("primary source yielded nothing and no fallback is configured",
			slog.String("source", string(c.primary.id)),
			slog.Any("error", err))
		return res
	}

	c.logger.Warn("primary source yielded nothing, trying fallback",
		slog.String("primary", string(c.primary.id)),
		slog.String("fallback", string(c.fallback.id)),
		slog.Any("error", err))
	metrics.RecordSourceFallback()
	res.UsedFallback = true

	q, err = c.fetchOne(ctx, c.fallback)
	if err != nil {
		res.Errors = append(res.Errors, err)
		c.logger.Error("fallback source yielded nothing",
			slog.String("source", string(c.fallback.id)),
			slog.Any("error", err))
		return res
	}
	res.Quote = q
	return res
}

func (c *Chain) fetchOne(ctx context.Context, l *link) (*entity.Quote, error) {
	text, err := retry.Fetch(ctx, c.retry, "source:"+string(l.id), func(ctx context.Context) (string, error) {
		t, err := l.src.Fetch(ctx)
		if err != nil {
			return "", err
		}
		t = strings.TrimSpace(t)
		if t == "" || !l.src.Valid(t) {
			return "", entity.ErrEmptySource
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", l.id, err)
	}

	c.logger.Info("quote fetched",
		slog.String("source", string(l.id)),
		slog.Int("length", len([]rune(text))))
	return &entity.Quote{Text: text, Source: string(l.id), FetchedAt: c.now()}, nil
}
