package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
	"ai-slovo/internal/usecase/provider"
)

// ClaudeConfig configures the claude authoring backend.
type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Retry     retry.Config
}

// DefaultClaudeConfig returns the default claude configuration.
func DefaultClaudeConfig(apiKey string) ClaudeConfig {
	return ClaudeConfig{
		APIKey:    apiKey,
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 500,
		Timeout:   60 * time.Second,
	}
}

// Claude authors instructions with Anthropic's Messages API.
type Claude struct {
	cfg    ClaudeConfig
	client anthropic.Client
	caller *caller
}

// NewClaude creates a claude backend. httpClient may be nil.
func NewClaude(cfg ClaudeConfig, httpClient *http.Client) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by the caller
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	name := string(provider.PromptClaude)
	return &Claude{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		caller: newCaller(capabilityPrompt, name, circuitbreaker.PromptBackendConfig(name), cfg.Retry),
	}
}

// Name implements provider.PromptBackend.
func (c *Claude) Name() string { return string(provider.PromptClaude) }

// Available implements provider.PromptBackend.
func (c *Claude) Available() error {
	if c.cfg.APIKey == "" {
		return errors.New("claude: api key not configured")
	}
	return nil
}

// Generate implements provider.PromptBackend.
func (c *Claude) Generate(ctx context.Context, req provider.PromptRequest) (entity.RenderingInstruction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := invoke(ctx, c.caller, func(ctx context.Context) (string, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		return entity.RenderingInstruction{}, fmt.Errorf("claude generate: %w", err)
	}
	return entity.RenderingInstruction{Text: out, Backend: c.Name()}, nil
}

func (c *Claude) complete(ctx context.Context, req provider.PromptRequest) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: provider.SystemPrompt(req.Style)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(provider.UserPrompt(req))),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("claude returned no text content")
	}
	return strings.TrimSpace(b.String()), nil
}
