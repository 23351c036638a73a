package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
	"ai-slovo/internal/usecase/provider"
	"ai-slovo/internal/utils/text"
)

// Groq defaults.
const (
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "llama-3.3-70b-versatile"
)

// DefaultPromptCharLimit is the instruction budget of the rendering backend
// fed by Groq.
const DefaultPromptCharLimit = 1500

// ChatConfig configures an OpenAI-compatible chat completion backend.
type ChatConfig struct {
	// Name is reported as the instruction backend.
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	// CharLimit enables budget enforcement on the returned text when > 0.
	CharLimit int
	Timeout   time.Duration
	Retry     retry.Config
}

// GroqConfig returns the configuration of the groq backend. Its output is
// fitted to charLimit.
func GroqConfig(apiKey string, charLimit int) ChatConfig {
	if charLimit <= 0 {
		charLimit = DefaultPromptCharLimit
	}
	return ChatConfig{
		Name:        string(provider.PromptGroq),
		APIKey:      apiKey,
		BaseURL:     GroqBaseURL,
		Model:       GroqModel,
		Temperature: 0.7,
		MaxTokens:   500,
		CharLimit:   charLimit,
		Timeout:     60 * time.Second,
	}
}

// OpenAIChatConfig returns the configuration of the openai backend. Its
// output is not budgeted.
func OpenAIChatConfig(apiKey string) ChatConfig {
	return ChatConfig{
		Name:        string(provider.PromptOpenAI),
		APIKey:      apiKey,
		Model:       openai.GPT4oMini,
		Temperature: 0.7,
		MaxTokens:   500,
		Timeout:     60 * time.Second,
	}
}

// Chat authors instructions through an OpenAI-compatible chat API.
type Chat struct {
	cfg    ChatConfig
	client *openai.Client
	caller *caller
	budget BudgetRecorder
}

// NewChat creates a chat backend. httpClient may be nil.
func NewChat(cfg ChatConfig, httpClient *http.Client) *Chat {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Chat{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		caller: newCaller(capabilityPrompt, cfg.Name, circuitbreaker.PromptBackendConfig(cfg.Name), cfg.Retry),
		budget: NewPrometheusBudgetMetrics(),
	}
}

// Name implements provider.PromptBackend.
func (c *Chat) Name() string { return c.cfg.Name }

// Available implements provider.PromptBackend.
func (c *Chat) Available() error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%s: api key not configured", c.cfg.Name)
	}
	return nil
}

// Generate implements provider.PromptBackend.
func (c *Chat) Generate(ctx context.Context, req provider.PromptRequest) (entity.RenderingInstruction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := invoke(ctx, c.caller, func(ctx context.Context) (string, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		return entity.RenderingInstruction{}, fmt.Errorf("%s generate: %w", c.cfg.Name, err)
	}

	instr := entity.RenderingInstruction{Text: out, Backend: c.cfg.Name}
	if c.cfg.CharLimit > 0 {
		instr = c.enforceBudget(ctx, instr)
	}
	return instr, nil
}

func (c *Chat) complete(ctx context.Context, req provider.PromptRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: provider.SystemPrompt(req.Style)},
			{Role: openai.ChatMessageRoleUser, Content: provider.UserPrompt(req)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Chat) enforceBudget(ctx context.Context, instr entity.RenderingInstruction) entity.RenderingInstruction {
	raw := text.CountRunes(instr.Text)
	fitted, truncated := text.Fit(instr.Text, c.cfg.CharLimit)

	c.budget.RecordRawLength(c.cfg.Name, raw)
	c.budget.RecordCompliance(c.cfg.Name, !truncated)
	if truncated {
		c.budget.RecordOverBudget(c.cfg.Name)
		slog.WarnContext(ctx, "instruction exceeded character budget, shortened",
			slog.String("backend", c.cfg.Name),
			slog.Int("length", raw),
			slog.Int("limit", c.cfg.CharLimit),
			slog.Int("fitted_length", text.CountRunes(fitted)))
	}

	instr.Text = fitted
	instr.Truncated = truncated
	return instr
}
