package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/usecase/publish"
)

// TelegramConfig contains the Telegram bot configuration.
type TelegramConfig struct {
	// Production selects the production token and chat over the test ones.
	Production bool

	Token      string
	ChatID     string
	TestToken  string
	TestChatID string

	// APIEndpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	APIEndpoint string
	Timeout     time.Duration
}

// ActiveToken returns the token for the selected environment.
func (c TelegramConfig) ActiveToken() string {
	if c.Production {
		return c.Token
	}
	return c.TestToken
}

// ActiveChatID returns the chat for the selected environment.
func (c TelegramConfig) ActiveChatID() string {
	if c.Production {
		return c.ChatID
	}
	return c.TestChatID
}

// Environment returns "production" or "test".
func (c TelegramConfig) Environment() string {
	if c.Production {
		return "production"
	}
	return "test"
}

// Validate reports missing credentials for the selected environment.
func (c TelegramConfig) Validate() error {
	var missing []string
	if c.Production {
		if c.Token == "" {
			missing = append(missing, "TELEGRAM_TOKEN")
		}
		if c.ChatID == "" {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	} else {
		if c.TestToken == "" {
			missing = append(missing, "TELEGRAM_TEST_TOKEN")
		}
		if c.TestChatID == "" {
			missing = append(missing, "TELEGRAM_TEST_CHAT_ID")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("telegram %s configuration missing: %s", c.Environment(), strings.Join(missing, ", "))
	}
	return nil
}

// Telegram posts the image with a caption through the Bot API. The bot is
// created on first use.
type Telegram struct {
	config      TelegramConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retryPolicy

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram creates the Telegram channel. httpClient may be nil.
func NewTelegram(config TelegramConfig, httpClient *http.Client) *Telegram {
	if config.APIEndpoint == "" {
		config.APIEndpoint = tgbotapi.APIEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Telegram{
		config:      config,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter("telegram", 1.0, 1),
		retry:       defaultRetryPolicy(),
	}
}

// Name implements publish.Channel.
func (t *Telegram) Name() string { return "telegram" }

// IsEnabled implements publish.Channel.
func (t *Telegram) IsEnabled() bool { return t.config.Validate() == nil }

// ctxClient binds outgoing bot requests to the publish context.
type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// Publish implements publish.Channel.
func (t *Telegram) Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	if artifact == nil {
		return publish.ErrNoArtifact
	}
	if err := t.config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", publish.ErrChannelDisabled, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	logger := logging.FromContext(ctx)
	logger.Info("publishing to telegram",
		slog.String("environment", t.config.Environment()),
		slog.String("chat_id", t.config.ActiveChatID()),
		slog.Int("image_bytes", artifact.Size()))

	if err := t.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	caption := publish.TelegramCaption(post)
	return sendWithRetry(ctx, t.Name(), t.retry, func(ctx context.Context) error {
		bot, err := t.botFor(ctx)
		if err != nil {
			return err
		}
		msg, err := t.photo(artifact, caption)
		if err != nil {
			return err
		}
		if _, err := bot.Send(msg); err != nil {
			return mapTelegramError(err)
		}
		return nil
	})
}

// botFor returns the bot with its client bound to ctx. Callers hold t.mu.
func (t *Telegram) botFor(ctx context.Context) (*tgbotapi.BotAPI, error) {
	client := ctxClient{ctx: ctx, client: t.httpClient}
	if t.bot != nil {
		t.bot.Client = client
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.config.ActiveToken(), t.config.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", mapTelegramError(err))
	}
	t.bot = bot
	return bot, nil
}

func (t *Telegram) photo(artifact *entity.GeneratedArtifact, caption string) (tgbotapi.PhotoConfig, error) {
	file := tgbotapi.FileBytes{Name: "image" + artifact.Extension(), Bytes: artifact.Bytes()}
	chat := t.config.ActiveChatID()
	if strings.HasPrefix(chat, "@") {
		msg := tgbotapi.NewPhotoToChannel(chat, file)
		msg.Caption = caption
		return msg, nil
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return tgbotapi.PhotoConfig{}, &ClientError{Message: fmt.Sprintf("invalid telegram chat id %q", chat)}
	}
	msg := tgbotapi.NewPhoto(id, file)
	msg.Caption = caption
	return msg, nil
}

// mapTelegramError converts Bot API errors to the retry error types.
func mapTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		retryAfter := 5 * time.Second
		if apiErr.RetryAfter > 0 {
			retryAfter = time.Duration(apiErr.RetryAfter) * time.Second
		}
		return &RateLimitError{Message: "Telegram rate limit exceeded", RetryAfter: retryAfter}
	case apiErr.Code >= 500:
		return &ServerError{StatusCode: apiErr.Code, Message: "Telegram API server error: " + apiErr.Message}
	case apiErr.Code >= 400:
		return &ClientError{StatusCode: apiErr.Code, Message: "Telegram API client error: " + apiErr.Message}
	}
	return err
}
