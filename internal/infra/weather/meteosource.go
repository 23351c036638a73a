// Package weather fetches the daily forecast used to enrich the authoring
// prompt and the caption icon.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/circuitbreaker"
	"ai-slovo/internal/resilience/retry"
)

// DefaultBaseURL is the Meteosource free-tier point endpoint.
const DefaultBaseURL = "https://www.meteosource.com/api/v1/free/point"

const maxResponseSize = 1 * 1024 * 1024 // 1MB

// Config configures the Meteosource client.
type Config struct {
	Enabled bool
	APIKey  string
	PlaceID string
	BaseURL string
	Retry   retry.Config
}

// Client is an enrichment source backed by the Meteosource daily forecast.
type Client struct {
	cfg            Config
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *slog.Logger
}

// NewClient creates a client. A nil http client gets a 10 second timeout.
func NewClient(cfg Config, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PlaceID == "" {
		cfg.PlaceID = "kutna-hora"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:            cfg,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.SourceConfig("weather")),
		logger:         logger,
	}
}

// Fetch returns today's enrichment. It returns nil, nil when weather is
// disabled or the response carries no daily data.
func (c *Client) Fetch(ctx context.Context) (*entity.Enrichment, error) {
	if !c.cfg.Enabled {
		c.logger.Info("weather fetching is disabled")
		return nil, nil
	}
	if c.cfg.APIKey == "" {
		c.logger.Warn("weather enabled but WEATHER_API_KEY is not set")
		return nil, nil
	}

	fc, err := retry.Fetch(ctx, c.cfg.Retry, "weather", c.fetchOnce)
	if err != nil {
		return nil, err
	}
	day, ok := fc.today()
	if !ok {
		c.logger.Warn("weather data not found in response")
		return nil, nil
	}

	c.logger.Info("fetched weather data", slog.String("place_id", c.cfg.PlaceID))
	return &entity.Enrichment{
		PromptContext: day.PromptContext(),
		CaptionIcon:   Icon(day.Weather),
	}, nil
}

func (c *Client) fetchOnce(ctx context.Context) (*forecast, error) {
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.Warn("weather circuit breaker open, request rejected",
				slog.String("circuit", c.circuitBreaker.Name()))
		}
		return nil, err
	}
	return result.(*forecast), nil
}

func (c *Client) doRequest(ctx context.Context) (*forecast, error) {
	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("place_id", c.cfg.PlaceID)
	q.Set("sections", "daily")
	q.Set("timezone", "UTC")
	q.Set("language", "en")
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error embeds the query string, which holds the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("weather request: %w", uerr.Err)
		}
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var fc forecast
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	return &fc, nil
}

type forecast struct {
	Daily *struct {
		Data []Day `json:"data"`
	} `json:"daily"`
}

func (f *forecast) today() (Day, bool) {
	if f == nil || f.Daily == nil || len(f.Daily.Data) == 0 {
		return Day{}, false
	}
	return f.Daily.Data[0], true
}

// Day is one entry of the daily forecast.
type Day struct {
	Weather string `json:"weather"`
	Summary string `json:"summary"`
	AllDay  struct {
		Temperature    *float64   `json:"temperature"`
		TemperatureMin *float64   `json:"temperature_min"`
		TemperatureMax *float64   `json:"temperature_max"`
		Wind           wind       `json:"wind"`
		CloudCover     cloudCover `json:"cloud_cover"`
	} `json:"all_day"`
}

type wind struct {
	Speed *float64 `json:"speed"`
	Dir   string   `json:"dir"`
}

// cloudCover accepts both {"total": n} and a bare number.
type cloudCover struct {
	Total *float64
}

func (c *cloudCover) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var obj struct {
		Total *float64 `json:"total"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		c.Total = obj.Total
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("cloud_cover: %w", err)
	}
	c.Total = &n
	return nil
}

// PromptContext renders the day for the authoring prompt.
func (d Day) PromptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily weather forecast: %s, %s\n", d.Weather, d.Summary)
	fmt.Fprintf(&b, "Temperature: %s°C (min: %s°C, max: %s°C)\n",
		num(d.AllDay.Temperature), num(d.AllDay.TemperatureMin), num(d.AllDay.TemperatureMax))
	fmt.Fprintf(&b, "Wind: %s m/s from %s\n", num(d.AllDay.Wind.Speed), d.AllDay.Wind.Dir)
	fmt.Fprintf(&b, "Cloud cover: %s%%", num(d.AllDay.CloudCover.Total))
	return b.String()
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
