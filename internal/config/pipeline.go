// Package config assembles the pipeline configuration from the environment.
//
// Tunables fall back to their defaults with a warning and a metric. Missing
// credentials of the mandatory channel are a startup error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgconfig "ai-slovo/internal/pkg/config"
	"ai-slovo/internal/resilience/retry"
)

// Defaults.
const (
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 5 * time.Second
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultPromptCharLimit = 1500
	DefaultWeatherPlaceID  = "kutna-hora"

	DefaultBibleURL      = "https://bible21.cz"
	DefaultQuoteClass    = "daily-word__quote"
	DefaultVerseFeedURL  = "https://www.biblegateway.com/votd/get/?format=atom&version=B21"
	DefaultQuoteSource   = "bible21"
	DefaultQuoteFallback = "votd_feed"
	DefaultPromptBackend = "groq"
	DefaultRenderBackend = "together"
)

// PipelineConfig is the complete runtime configuration of one pipeline.
type PipelineConfig struct {
	// Production selects the production Telegram credentials.
	Production bool

	MaxRetries  int           `env:"MAX_RETRIES" validate:"min=1,max=10"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" validate:"min=0s,max=300s"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0s"`

	Quote     QuoteConfig
	Providers ProviderConfig
	Weather   WeatherConfig
	Channels  ChannelConfig

	StyleCatalogPath string `env:"STYLE_CATALOG_PATH"`
	DatabaseURL      string `env:"DATABASE_URL"`
}

// QuoteConfig selects and locates the content sources.
type QuoteConfig struct {
	Source   string `env:"QUOTE_SOURCE"`
	Fallback string `env:"QUOTE_FALLBACK_SOURCE"`
	BibleURL string `env:"BIBLE_URL" validate:"required,http_url"`
	Class    string `env:"QUOTE_CLASS" validate:"required"`
	FeedURL  string `env:"VOTD_FEED_URL" validate:"required,http_url"`
	PageURL  string `env:"QUOTE_PAGE_URL" validate:"omitempty,http_url"`
}

// ProviderConfig selects the authoring and rendering backends.
// Unknown identifiers are resolved by the provider registry.
type ProviderConfig struct {
	Prompt          string `env:"PROMPT_BACKEND"`
	Render          string `env:"RENDER_BACKEND"`
	RenderFallback  string `env:"RENDER_FALLBACK_BACKEND"`
	PromptCharLimit int    `env:"PROMPT_CHAR_LIMIT" validate:"min=100,max=5000"`

	GroqAPIKey      string `env:"GROQ_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	TogetherAPIKey  string `env:"TOGETHER_API_KEY"`
}

// WeatherConfig configures the forecast enrichment.
type WeatherConfig struct {
	Enabled bool
	APIKey  string `env:"WEATHER_API_KEY"`
	PlaceID string `env:"WEATHER_PLACE_ID" validate:"required"`
}

// ChannelConfig holds the credentials of every publishing channel.
type ChannelConfig struct {
	TelegramToken      string `env:"TELEGRAM_TOKEN" validate:"required_if=Production true"`
	TelegramChatID     string `env:"TELEGRAM_CHAT_ID" validate:"required_if=Production true"`
	TelegramTestToken  string `env:"TELEGRAM_TEST_TOKEN" validate:"required_if=Production false"`
	TelegramTestChatID string `env:"TELEGRAM_TEST_CHAT_ID" validate:"required_if=Production false"`
	// Production mirrors PipelineConfig.Production for the required_if rules.
	Production bool

	TwitterEnabled           bool
	TwitterAPIKey            string `env:"TWITTER_API_KEY"`
	TwitterAPISecret         string `env:"TWITTER_API_SECRET"`
	TwitterAccessToken       string `env:"TWITTER_ACCESS_TOKEN"`
	TwitterAccessTokenSecret string `env:"TWITTER_ACCESS_TOKEN_SECRET"`

	DiscordEnabled    bool
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL" validate:"omitempty,http_url"`

	SlackEnabled    bool
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL" validate:"omitempty,http_url"`
}

// Retry returns the fixed-delay policy shared by sources and enrichment.
func (c *PipelineConfig) Retry() retry.Config { return retry.Fixed(c.MaxRetries, c.RetryDelay) }

// JournalEnabled reports whether runs are journaled to Postgres.
func (c *PipelineConfig) JournalEnabled() bool { return c.DatabaseURL != "" }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// LoadPipelineConfig reads the pipeline configuration from the environment.
// metrics may be nil.
func LoadPipelineConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*PipelineConfig, error) {
	t := pkgconfig.NewTracker(metrics, logger)
	defer t.Finish()

	production := pkgconfig.LoadEnvStrictBool("PRODUCTION")
	cfg := &PipelineConfig{
		Production: production,
		MaxRetries: pkgconfig.Track(t, "max_retries",
			pkgconfig.LoadEnvInt("MAX_RETRIES", DefaultMaxRetries, intRange(1, 10))),
		RetryDelay: pkgconfig.Track(t, "retry_delay",
			pkgconfig.LoadEnvSeconds("RETRY_DELAY", DefaultRetryDelay, durationRange(0, 300*time.Second))),
		HTTPTimeout: pkgconfig.Track(t, "http_timeout",
			pkgconfig.LoadEnvSeconds("HTTP_TIMEOUT", DefaultHTTPTimeout, durationRange(time.Second, 5*time.Minute))),
		Quote: QuoteConfig{
			Source:   pkgconfig.LoadEnvString("QUOTE_SOURCE", DefaultQuoteSource),
			Fallback: pkgconfig.LoadEnvString("QUOTE_FALLBACK_SOURCE", DefaultQuoteFallback),
			BibleURL: pkgconfig.Track(t, "bible_url",
				pkgconfig.LoadEnvWithFallback("BIBLE_URL", DefaultBibleURL, pkgconfig.ValidateHTTPURL)),
			Class: pkgconfig.LoadEnvString("QUOTE_CLASS", DefaultQuoteClass),
			FeedURL: pkgconfig.Track(t, "votd_feed_url",
				pkgconfig.LoadEnvWithFallback("VOTD_FEED_URL", DefaultVerseFeedURL, pkgconfig.ValidateHTTPURL)),
			PageURL: pkgconfig.LoadEnvString("QUOTE_PAGE_URL", ""),
		},
		Providers: ProviderConfig{
			Prompt:         pkgconfig.LoadEnvString("PROMPT_BACKEND", DefaultPromptBackend),
			Render:         pkgconfig.LoadEnvString("RENDER_BACKEND", DefaultRenderBackend),
			RenderFallback: pkgconfig.LoadEnvString("RENDER_FALLBACK_BACKEND", ""),
			PromptCharLimit: pkgconfig.Track(t, "prompt_char_limit",
				pkgconfig.LoadEnvInt("PROMPT_CHAR_LIMIT", DefaultPromptCharLimit, intRange(100, 5000))),
			GroqAPIKey:      pkgconfig.LoadEnvString("GROQ_API_KEY", ""),
			OpenAIAPIKey:    pkgconfig.LoadEnvString("OPENAI_API_KEY", ""),
			AnthropicAPIKey: pkgconfig.LoadEnvString("ANTHROPIC_API_KEY", ""),
			GeminiAPIKey:    pkgconfig.LoadEnvString("GEMINI_API_KEY", ""),
			TogetherAPIKey:  pkgconfig.LoadEnvString("TOGETHER_API_KEY", ""),
		},
		Weather: WeatherConfig{
			Enabled: pkgconfig.LoadEnvFlag("WEATHER", true),
			APIKey:  pkgconfig.LoadEnvString("WEATHER_API_KEY", ""),
			PlaceID: pkgconfig.LoadEnvString("WEATHER_PLACE_ID", DefaultWeatherPlaceID),
		},
		Channels: ChannelConfig{
			Production:         production,
			TelegramToken:      pkgconfig.LoadEnvString("TELEGRAM_TOKEN", ""),
			TelegramChatID:     pkgconfig.LoadEnvString("TELEGRAM_CHAT_ID", ""),
			TelegramTestToken:  pkgconfig.LoadEnvString("TELEGRAM_TEST_TOKEN", ""),
			TelegramTestChatID: pkgconfig.LoadEnvString("TELEGRAM_TEST_CHAT_ID", ""),

			TwitterEnabled:           pkgconfig.LoadEnvFlag("TWITTER", true),
			TwitterAPIKey:            pkgconfig.LoadEnvString("TWITTER_API_KEY", ""),
			TwitterAPISecret:         pkgconfig.LoadEnvString("TWITTER_API_SECRET", ""),
			TwitterAccessToken:       pkgconfig.LoadEnvString("TWITTER_ACCESS_TOKEN", ""),
			TwitterAccessTokenSecret: pkgconfig.LoadEnvString("TWITTER_ACCESS_TOKEN_SECRET", ""),

			DiscordEnabled:    pkgconfig.LoadEnvFlag("DISCORD_ENABLED", false),
			DiscordWebhookURL: pkgconfig.LoadEnvString("DISCORD_WEBHOOK_URL", ""),
			SlackEnabled:      pkgconfig.LoadEnvFlag("SLACK_ENABLED", false),
			SlackWebhookURL:   pkgconfig.LoadEnvString("SLACK_WEBHOOK_URL", ""),
		},
		StyleCatalogPath: pkgconfig.LoadEnvString("STYLE_CATALOG_PATH", ""),
		DatabaseURL:      pkgconfig.LoadEnvString("DATABASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return cfg, nil
}

func intRange(min, max int) func(int) error {
	return func(v int) error { return pkgconfig.ValidateIntRange(v, min, max) }
}

func durationRange(min, max time.Duration) func(time.Duration) error {
	return func(d time.Duration) error { return pkgconfig.ValidateDuration(d, min, max) }
}

// Validate checks the struct rules. Every violated rule is reported by its
// environment variable name.
func (c *PipelineConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid %s", strings.Join(invalid, ", ")))
	}
	return errors.Join(errs...)
}
