// Package quote implements the content sources that supply the daily quote.
package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
)

const (
	maxBodySize      = 5 * 1024 * 1024 // 5MB
	defaultUserAgent = "Mozilla/5.0 (compatible; ai-slovo/1.0; +https://bible21.cz)"
)

// getter performs GET requests through a per-source circuit breaker.
type getter struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	userAgent      string
}

func newGetter(name string, client *http.Client) *getter {
	if client == nil {
		client = http.DefaultClient
	}
	return &getter{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.SourceConfig(name)),
		userAgent:      defaultUserAgent,
	}
}

// get returns the response body of urlStr. Status codes >= 400 are returned
// as *retry.HTTPError.
func (g *getter) get(ctx context.Context, urlStr string) ([]byte, error) {
	if err := validateURL(urlStr); err != nil {
		return nil, err
	}

	result, err := g.circuitBreaker.Execute(func() (interface{}, error) {
		return g.doGet(ctx, urlStr)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("source circuit breaker open, request rejected",
				slog.String("circuit", g.circuitBreaker.Name()),
				slog.String("url", urlStr))
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (g *getter) doGet(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func validateURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %q (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}
