package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
	"ai-slovo/internal/usecase/provider"
)

// Together defaults.
const (
	TogetherBaseURL = "https://api.together.xyz"
	TogetherModel   = "black-forest-labs/FLUX.1-schnell-Free"
)

const maxImageSize = 20 * 1024 * 1024 // 20MB

// TogetherConfig configures the together rendering backend.
type TogetherConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Width   int
	Height  int
	Steps   int
	Timeout time.Duration
	Retry   retry.Config
}

// DefaultTogetherConfig returns the default together configuration.
func DefaultTogetherConfig(apiKey string) TogetherConfig {
	return TogetherConfig{
		APIKey:  apiKey,
		BaseURL: TogetherBaseURL,
		Model:   TogetherModel,
		Width:   1024,
		Height:  768,
		Steps:   4,
		Timeout: 120 * time.Second,
	}
}

// Together renders images with the Together AI images API and downloads
// the returned URL.
type Together struct {
	cfg    TogetherConfig
	client *http.Client
	caller *caller
}

// NewTogether creates a together backend. httpClient may be nil.
func NewTogether(cfg TogetherConfig, httpClient *http.Client) *Together {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TogetherBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	name := string(provider.RenderTogether)
	return &Together{
		cfg:    cfg,
		client: httpClient,
		caller: newCaller(capabilityRender, name, circuitbreaker.RenderBackendConfig(name), cfg.Retry),
	}
}

// Name implements provider.RenderBackend.
func (t *Together) Name() string { return string(provider.RenderTogether) }

// Available implements provider.RenderBackend.
func (t *Together) Available() error {
	if t.cfg.APIKey == "" {
		return errors.New("together: api key not configured")
	}
	return nil
}

type togetherRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Steps  int    `json:"steps,omitempty"`
	N      int    `json:"n"`
}

type togetherResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type togetherError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Render implements provider.RenderBackend.
func (t *Together) Render(ctx context.Context, req provider.RenderRequest) (*entity.GeneratedArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	return invoke(ctx, t.caller, func(ctx context.Context) (*entity.GeneratedArtifact, error) {
		imageURL, err := t.generate(ctx, req.Instruction.Text)
		if err != nil {
			return nil, err
		}
		data, err := t.download(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		return entity.NewGeneratedArtifact(data, http.DetectContentType(data), t.Name(), req.Instruction), nil
	})
}

func (t *Together) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(togetherRequest{
		Model:  t.cfg.Model,
		Prompt: prompt,
		Width:  t.cfg.Width,
		Height: t.cfg.Height,
		Steps:  t.cfg.Steps,
		N:      1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/v1/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("together request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		var te togetherError
		if json.Unmarshal(raw, &te) == nil && te.Error.Message != "" {
			msg = te.Error.Message
		}
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out togetherResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", errors.New("together returned no image URL")
	}
	return out.Data[0].URL, nil
}

func (t *Together) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "image download: " + resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("downloaded image is empty")
	}
	return data, nil
}
