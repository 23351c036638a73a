package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
	"ai-slovo/internal/usecase/provider"
)

// Google model defaults.
const (
	GeminiModel = "gemini-2.0-flash"
	ImagenModel = "imagen-3.0-generate-002"
)

// GoogleConfig configures the gemini and imagen backends.
type GoogleConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature float32
	Timeout     time.Duration
	Retry       retry.Config
}

// DefaultGoogleConfig returns the default Google AI configuration.
func DefaultGoogleConfig(apiKey string) GoogleConfig {
	return GoogleConfig{
		APIKey:      apiKey,
		TextModel:   GeminiModel,
		ImageModel:  ImagenModel,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}

// googleClient creates the genai client on first use.
type googleClient struct {
	cfg        GoogleConfig
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

func (g *googleClient) get(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = c
	return c, nil
}

func (g *googleClient) available(name string) error {
	if g.cfg.APIKey == "" {
		return fmt.Errorf("%s: api key not configured", name)
	}
	return nil
}

// Gemini authors instructions with the Gemini API.
type Gemini struct {
	google *googleClient
	caller *caller
}

// NewGemini creates a gemini backend. httpClient may be nil.
func NewGemini(cfg GoogleConfig, httpClient *http.Client) *Gemini {
	if cfg.TextModel == "" {
		cfg.TextModel = GeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	name := string(provider.PromptGemini)
	return &Gemini{
		google: &googleClient{cfg: cfg, httpClient: httpClient},
		caller: newCaller(capabilityPrompt, name, circuitbreaker.PromptBackendConfig(name), cfg.Retry),
	}
}

// Name implements provider.PromptBackend.
func (g *Gemini) Name() string { return string(provider.PromptGemini) }

// Available implements provider.PromptBackend.
func (g *Gemini) Available() error { return g.google.available(g.Name()) }

// Generate implements provider.PromptBackend.
func (g *Gemini) Generate(ctx context.Context, req provider.PromptRequest) (entity.RenderingInstruction, error) {
	ctx, cancel := context.WithTimeout(ctx, g.google.cfg.Timeout)
	defer cancel()

	client, err := g.google.get(ctx)
	if err != nil {
		return entity.RenderingInstruction{}, entity.NewBackendError(g.Name(), entity.FailureOther, err)
	}

	out, err := invoke(ctx, g.caller, func(ctx context.Context) (string, error) {
		temperature := g.google.cfg.Temperature
		resp, err := client.Models.GenerateContent(ctx, g.google.cfg.TextModel,
			genai.Text(provider.UserPrompt(req)),
			&genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{
					Parts: []*genai.Part{{Text: provider.SystemPrompt(req.Style)}},
				},
				Temperature: &temperature,
			})
		if err != nil {
			return "", err
		}
		return candidateText(resp)
	})
	if err != nil {
		return entity.RenderingInstruction{}, fmt.Errorf("gemini generate: %w", err)
	}
	return entity.RenderingInstruction{Text: out, Backend: g.Name()}, nil
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini returned no text")
	}
	return strings.TrimSpace(b.String()), nil
}

// Imagen renders images with Google's Imagen models.
type Imagen struct {
	google *googleClient
	caller *caller
}

// NewImagen creates an imagen backend. httpClient may be nil.
func NewImagen(cfg GoogleConfig, httpClient *http.Client) *Imagen {
	if cfg.ImageModel == "" {
		cfg.ImageModel = ImagenModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	name := string(provider.RenderImagen)
	return &Imagen{
		google: &googleClient{cfg: cfg, httpClient: httpClient},
		caller: newCaller(capabilityRender, name, circuitbreaker.RenderBackendConfig(name), cfg.Retry),
	}
}

// Name implements provider.RenderBackend.
func (i *Imagen) Name() string { return string(provider.RenderImagen) }

// Available implements provider.RenderBackend.
func (i *Imagen) Available() error { return i.google.available(i.Name()) }

// Render implements provider.RenderBackend.
func (i *Imagen) Render(ctx context.Context, req provider.RenderRequest) (*entity.GeneratedArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, i.google.cfg.Timeout)
	defer cancel()

	client, err := i.google.get(ctx)
	if err != nil {
		return nil, entity.NewBackendError(i.Name(), entity.FailureOther, err)
	}

	return invoke(ctx, i.caller, func(ctx context.Context) (*entity.GeneratedArtifact, error) {
		resp, err := client.Models.GenerateImages(ctx, i.google.cfg.ImageModel, req.Instruction.Text, nil)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.GeneratedImages) == 0 ||
			resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return nil, errors.New("imagen returned no image")
		}
		img := resp.GeneratedImages[0].Image
		mime := img.MIMEType
		if mime == "" {
			mime = http.DetectContentType(img.ImageBytes)
		}
		return entity.NewGeneratedArtifact(img.ImageBytes, mime, i.Name(), req.Instruction), nil
	})
}
