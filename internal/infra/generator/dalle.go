package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
	"ai-slovo/internal/usecase/provider"
	"ai-slovo/internal/utils/text"
)

// DalleMaxPromptChars is the prompt limit of dall-e-3.
const DalleMaxPromptChars = 4000

// DalleConfig configures the dalle rendering backend.
type DalleConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	// MaxPromptChars rejects longer instructions before calling the API.
	MaxPromptChars int
	Timeout        time.Duration
	Retry          retry.Config
}

// DefaultDalleConfig returns the default dalle configuration.
func DefaultDalleConfig(apiKey string) DalleConfig {
	return DalleConfig{
		APIKey:         apiKey,
		Model:          openai.CreateImageModelDallE3,
		Size:           openai.CreateImageSize1792x1024,
		MaxPromptChars: DalleMaxPromptChars,
		Timeout:        120 * time.Second,
	}
}

// Dalle renders images with OpenAI's image API.
type Dalle struct {
	cfg    DalleConfig
	client *openai.Client
	caller *caller
}

// NewDalle creates a dalle backend. httpClient may be nil.
func NewDalle(cfg DalleConfig, httpClient *http.Client) *Dalle {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	name := string(provider.RenderDalle)
	return &Dalle{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		caller: newCaller(capabilityRender, name, circuitbreaker.RenderBackendConfig(name), cfg.Retry),
	}
}

// Name implements provider.RenderBackend.
func (d *Dalle) Name() string { return string(provider.RenderDalle) }

// Available implements provider.RenderBackend.
func (d *Dalle) Available() error {
	if d.cfg.APIKey == "" {
		return errors.New("dalle: api key not configured")
	}
	return nil
}

// Render implements provider.RenderBackend.
func (d *Dalle) Render(ctx context.Context, req provider.RenderRequest) (*entity.GeneratedArtifact, error) {
	if n := text.CountRunes(req.Instruction.Text); d.cfg.MaxPromptChars > 0 && n > d.cfg.MaxPromptChars {
		return nil, entity.NewBackendError(d.Name(), entity.FailureLength,
			fmt.Errorf("instruction too long: %d characters, limit %d", n, d.cfg.MaxPromptChars))
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	return invoke(ctx, d.caller, func(ctx context.Context) (*entity.GeneratedArtifact, error) {
		resp, err := d.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         req.Instruction.Text,
			Model:          d.cfg.Model,
			N:              1,
			Size:           d.cfg.Size,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
			return nil, errors.New("dalle returned no image data")
		}
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return entity.NewGeneratedArtifact(data, http.DetectContentType(data), d.Name(), req.Instruction), nil
	})
}
