package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/usecase/publish"
)

// DiscordConfig contains configuration for the Discord webhook channel.
type DiscordConfig struct {
	Enabled bool

	// WebhookURL includes the webhook token.
	WebhookURL string

	Timeout time.Duration
}

// Discord uploads the image to a channel webhook as a file attachment with
// an embed pointing at it.
type Discord struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retryPolicy
}

// NewDiscord creates the Discord channel.
//
// The webhook limit is 30 requests per minute, so the limiter allows
// 0.5 req/s with a burst of 3.
func NewDiscord(config DiscordConfig) *Discord {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Discord{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter("discord", 0.5, 3),
		retry:       defaultRetryPolicy(),
	}
}

// DiscordWebhookPayload is the payload_json part of the upload.
type DiscordWebhookPayload struct {
	Content     string              `json:"content"`
	Embeds      []DiscordEmbed      `json:"embeds,omitempty"`
	Attachments []DiscordAttachment `json:"attachments,omitempty"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title     string             `json:"title,omitempty"`
	Color     int                `json:"color"`
	Image     *DiscordEmbedImage `json:"image,omitempty"`
	Footer    DiscordEmbedFooter `json:"footer"`
	Timestamp string             `json:"timestamp"`
}

// DiscordEmbedImage references an uploaded attachment.
type DiscordEmbedImage struct {
	URL string `json:"url"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordAttachment describes files[n] in the multipart body.
type DiscordAttachment struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

const (
	maxEmbedTitleLength = 256

	// Discord blurple (#5865F2)
	discordBlueColor = 5793266
)

// Name implements publish.Channel.
func (d *Discord) Name() string { return "discord" }

// IsEnabled implements publish.Channel.
func (d *Discord) IsEnabled() bool { return d.config.Enabled && d.config.WebhookURL != "" }

func (d *Discord) buildPayload(artifact *entity.GeneratedArtifact, post publish.Post, filename string) DiscordWebhookPayload {
	title := post.Style.DisplayName()
	if r := []rune(title); len(r) > maxEmbedTitleLength {
		title = string(r[:maxEmbedTitleLength])
	}
	return DiscordWebhookPayload{
		Content: publish.PlainCaption(post, publish.DiscordContentLimit),
		Embeds: []DiscordEmbed{{
			Title:     title,
			Color:     discordBlueColor,
			Image:     &DiscordEmbedImage{URL: "attachment://" + filename},
			Footer:    DiscordEmbedFooter{Text: "rendered by " + artifact.Backend},
			Timestamp: artifact.CreatedAt.UTC().Format(time.RFC3339),
		}},
		Attachments: []DiscordAttachment{{ID: 0, Filename: filename}},
	}
}

func (d *Discord) sendWebhookRequest(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	filename := "image" + artifact.Extension()
	payload, err := json.Marshal(d.buildPayload(artifact, post, filename))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("write payload_json: %w", err)
	}
	part, err := mw.CreateFormFile("files[0]", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(artifact.Bytes()); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, &body)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return statusError("Discord", resp, respBody)
}

// Publish implements publish.Channel.
func (d *Discord) Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	if artifact == nil {
		return publish.ErrNoArtifact
	}
	if !d.IsEnabled() {
		return publish.ErrChannelDisabled
	}

	logging.FromContext(ctx).Info("publishing to discord",
		slog.Int("image_bytes", artifact.Size()))

	if err := d.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return sendWithRetry(ctx, d.Name(), d.retry, func(ctx context.Context) error {
		return d.sendWebhookRequest(ctx, artifact, post)
	})
}
