package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ai-slovo/internal/config"
	"ai-slovo/internal/domain/entity"
	pgRepo "ai-slovo/internal/infra/adapter/persistence/postgres"
	"ai-slovo/internal/infra/db"
	"ai-slovo/internal/infra/generator"
	"ai-slovo/internal/infra/publisher"
	"ai-slovo/internal/infra/quote"
	"ai-slovo/internal/infra/weather"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/observability/tracing"
	"ai-slovo/internal/usecase/pipeline"
	"ai-slovo/internal/usecase/provider"
	"ai-slovo/internal/usecase/publish"
	"ai-slovo/internal/usecase/source"
	"ai-slovo/internal/usecase/style"
)

// app holds the wired pipeline and the resources it owns.
type app struct {
	pipeline *pipeline.Service
	publish  *publish.Service
	database *sql.DB
	tracer   *sdktrace.TracerProvider
}

// Close releases the database and flushes the tracer provider.
func (a *app) Close(ctx context.Context, logger *slog.Logger) {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}
}

// buildApp wires every pipeline component from cfg.
func buildApp(ctx context.Context, cfg *config.PipelineConfig, logger *slog.Logger) (*app, error) {
	a := &app{}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	// Provider calls carry their own per-request timeouts.
	providerClient := &http.Client{}

	a.tracer = sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(a.tracer)

	sources := buildSources(cfg, httpClient)
	chain := source.NewChain(sources, source.ChainConfig{
		Primary:  cfg.Quote.Source,
		Fallback: cfg.Quote.Fallback,
		Default:  source.Bible21,
		Retry:    cfg.Retry(),
	}, logger)

	catalog, err := loadCatalog(cfg.StyleCatalogPath, logger)
	if err != nil {
		a.Close(ctx, logger)
		return nil, fmt.Errorf("style catalog: %w", err)
	}
	selector := style.NewSelector(catalog, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	registry, err := buildRegistry(cfg, providerClient, logger)
	if err != nil {
		a.Close(ctx, logger)
		return nil, fmt.Errorf("provider registry: %w", err)
	}

	publishSvc, err := buildPublisher(cfg, httpClient, logger)
	if err != nil {
		a.Close(ctx, logger)
		return nil, err
	}
	a.publish = publishSvc

	svc := &pipeline.Service{
		Sources:   chain,
		Styles:    selector,
		Providers: registry,
		Publisher: publishSvc,
		Logger:    logger,
		Tracer:    a.tracer.Tracer(tracing.TracerName),
	}

	if cfg.Weather.Enabled {
		svc.Enricher = weather.NewClient(weather.Config{
			Enabled: true,
			APIKey:  cfg.Weather.APIKey,
			PlaceID: cfg.Weather.PlaceID,
			Retry:   cfg.Retry(),
		}, httpClient, logger)
	} else {
		logger.Info("weather enrichment disabled")
	}

	if cfg.JournalEnabled() {
		database, err := db.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			a.Close(ctx, logger)
			return nil, fmt.Errorf("run journal: %w", err)
		}
		if err := db.MigrateUp(ctx, database); err != nil {
			_ = database.Close()
			a.Close(ctx, logger)
			return nil, fmt.Errorf("run journal: %w", err)
		}
		a.database = database
		svc.Journal = pipeline.JournalRecorder{Repo: pgRepo.NewRunRepo(database)}
		logger.Info("run journal enabled")
	}

	a.pipeline = svc
	return a, nil
}

func buildSources(cfg *config.PipelineConfig, client *http.Client) map[source.ID]source.ContentSource {
	sources := map[source.ID]source.ContentSource{
		source.Bible21:   quote.NewBible21Scraper(client, cfg.Quote.BibleURL, cfg.Quote.Class),
		source.VerseFeed: quote.NewVerseFeed(client, cfg.Quote.FeedURL),
		source.Static:    quote.NewStatic(quote.DefaultStaticQuote),
	}
	if cfg.Quote.PageURL != "" {
		sources[source.Page] = quote.NewPageExtractor(client, cfg.Quote.PageURL, quote.DefaultPageQuoteLimit)
	}
	return sources
}

func loadCatalog(path string, logger *slog.Logger) ([]entity.StyleEntry, error) {
	if path == "" {
		return style.DefaultCatalog()
	}
	catalog, err := style.LoadCatalog(path)
	if err != nil {
		logger.Warn("failed to load style catalog, using embedded default",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return style.DefaultCatalog()
	}
	logger.Info("style catalog loaded", slog.String("path", path), slog.Int("styles", len(catalog)))
	return catalog, nil
}

// buildRegistry registers every backend. Backends without credentials
// report themselves unavailable and are skipped by the registry.
func buildRegistry(cfg *config.PipelineConfig, client *http.Client, logger *slog.Logger) (*provider.Registry, error) {
	p := cfg.Providers
	google := generator.DefaultGoogleConfig(p.GeminiAPIKey)
	prompts := map[provider.PromptBackendID]provider.PromptBackend{
		provider.PromptGroq:   generator.NewChat(generator.GroqConfig(p.GroqAPIKey, p.PromptCharLimit), client),
		provider.PromptOpenAI: generator.NewChat(generator.OpenAIChatConfig(p.OpenAIAPIKey), client),
		provider.PromptClaude: generator.NewClaude(generator.DefaultClaudeConfig(p.AnthropicAPIKey), client),
		provider.PromptGemini: generator.NewGemini(google, client),
	}
	renders := map[provider.RenderBackendID]provider.RenderBackend{
		provider.RenderTogether: generator.NewTogether(generator.DefaultTogetherConfig(p.TogetherAPIKey), client),
		provider.RenderDalle:    generator.NewDalle(generator.DefaultDalleConfig(p.OpenAIAPIKey), client),
		provider.RenderImagen:   generator.NewImagen(google, client),
	}

	logger.Info("provider backends registered",
		slog.Int("prompt_backends", len(prompts)),
		slog.Int("render_backends", len(renders)))

	return provider.NewRegistry(prompts, renders, provider.Config{
		Prompt:         p.Prompt,
		Render:         p.Render,
		RenderFallback: p.RenderFallback,
	}, logger)
}

func buildPublisher(cfg *config.PipelineConfig, client *http.Client, logger *slog.Logger) (*publish.Service, error) {
	ch := cfg.Channels
	tgCfg := publisher.TelegramConfig{
		Production: cfg.Production,
		Token:      ch.TelegramToken,
		ChatID:     ch.TelegramChatID,
		TestToken:  ch.TelegramTestToken,
		TestChatID: ch.TelegramTestChatID,
	}
	if err := tgCfg.Validate(); err != nil {
		return nil, err
	}
	telegram := publisher.NewTelegram(tgCfg, client)
	logger.Info("telegram channel configured", slog.String("environment", tgCfg.Environment()))

	optional := []publish.Channel{
		publisher.NewTwitter(publisher.TwitterConfig{
			Enabled:           ch.TwitterEnabled,
			APIKey:            ch.TwitterAPIKey,
			APISecret:         ch.TwitterAPISecret,
			AccessToken:       ch.TwitterAccessToken,
			AccessTokenSecret: ch.TwitterAccessTokenSecret,
		}, client),
		publisher.NewDiscord(publisher.DiscordConfig{
			Enabled:    ch.DiscordEnabled,
			WebhookURL: ch.DiscordWebhookURL,
		}),
		publisher.NewSlack(publisher.SlackConfig{
			Enabled:    ch.SlackEnabled,
			WebhookURL: ch.SlackWebhookURL,
		}),
	}
	for _, c := range optional {
		logger.Info("optional channel configured",
			slog.String("channel", c.Name()),
			slog.Bool("enabled", c.IsEnabled()))
	}

	svc, err := publish.NewService(telegram, optional, publish.DefaultConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("publish service: %w", err)
	}
	return svc, nil
}

// runPipeline is the scheduled job. It logs the sanitized failure reason.
func runPipeline(svc *pipeline.Service) func(ctx context.Context) *entity.RunResult {
	return func(ctx context.Context) *entity.RunResult {
		result := svc.Run(ctx)
		if !result.Success && errors.Is(result.Err, context.DeadlineExceeded) {
			logging.FromContext(ctx).Warn("run hit the run timeout",
				slog.String("run_id", result.RunID),
				slog.String("stage", result.Stage))
		}
		return result
	}
}
