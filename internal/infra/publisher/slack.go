package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/usecase/publish"
	"ai-slovo/internal/utils/text"
)

// SlackConfig contains configuration for the Slack webhook channel.
type SlackConfig struct {
	Enabled bool

	// WebhookURL is the Incoming Webhook URL (includes authentication token).
	WebhookURL string

	Timeout time.Duration
}

// Slack posts a text notice of the daily post. Incoming webhooks cannot
// carry file uploads, so the image itself is not sent.
type Slack struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retryPolicy
}

// NewSlack creates the Slack channel. The webhook limit is one message per
// second.
func NewSlack(config SlackConfig) *Slack {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Slack{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter("slack", 1.0, 1),
		retry:       defaultRetryPolicy(),
	}
}

// SlackWebhookPayload is a Block Kit message.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block Kit limits.
const (
	maxSectionTextLength = 3000
	maxFallbackLength    = 150
)

// Name implements publish.Channel.
func (s *Slack) Name() string { return "slack" }

// IsEnabled implements publish.Channel.
func (s *Slack) IsEnabled() bool { return s.config.Enabled && s.config.WebhookURL != "" }

func (s *Slack) buildBlockKitPayload(artifact *entity.GeneratedArtifact, post publish.Post) SlackWebhookPayload {
	fallback, _ := text.Fit(post.Quote, maxFallbackLength)
	section := publish.PlainCaption(post, maxSectionTextLength)

	meta := fmt.Sprintf("%s • %s • %s",
		post.Style.DisplayName(), artifact.Backend, post.Date.Format("2006-01-02"))

	return SlackWebhookPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackTextObject{Type: "mrkdwn", Text: section}},
			{Type: "context", Elements: []SlackTextObject{{Type: "mrkdwn", Text: meta}}},
		},
	}
}

func (s *Slack) sendWebhookRequest(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	jsonData, err := json.Marshal(s.buildBlockKitPayload(artifact, post))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return statusError("Slack", resp, body)
}

// Publish implements publish.Channel.
func (s *Slack) Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	if artifact == nil {
		return publish.ErrNoArtifact
	}
	if !s.IsEnabled() {
		return publish.ErrChannelDisabled
	}

	logging.FromContext(ctx).Info("publishing to slack")

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return sendWithRetry(ctx, s.Name(), s.retry, func(ctx context.Context) error {
		return s.sendWebhookRequest(ctx, artifact, post)
	})
}
