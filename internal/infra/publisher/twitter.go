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
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/observability/logging"
	"ai-slovo/internal/usecase/publish"
)

// X API endpoints.
const (
	DefaultTwitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultTwitterTweetURL  = "https://api.twitter.com/2/tweets"
)

// TwitterConfig contains OAuth 1.0a user credentials for X.
type TwitterConfig struct {
	Enabled           bool
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string

	UploadURL string
	TweetURL  string
	Timeout   time.Duration
}

func (c TwitterConfig) complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Twitter uploads the image through the v1.1 media endpoint and posts a v2
// tweet referencing it.
type Twitter struct {
	config      TwitterConfig
	baseClient  *http.Client
	rateLimiter *RateLimiter
	retry       retryPolicy
}

// NewTwitter creates the X channel. baseClient is the transport the OAuth
// client signs requests on and may be nil.
func NewTwitter(config TwitterConfig, baseClient *http.Client) *Twitter {
	if config.UploadURL == "" {
		config.UploadURL = DefaultTwitterUploadURL
	}
	if config.TweetURL == "" {
		config.TweetURL = DefaultTwitterTweetURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if baseClient == nil {
		baseClient = &http.Client{Timeout: config.Timeout}
	}
	return &Twitter{
		config:      config,
		baseClient:  baseClient,
		rateLimiter: NewRateLimiter("twitter", 0.2, 1),
		retry:       defaultRetryPolicy(),
	}
}

// Name implements publish.Channel.
func (t *Twitter) Name() string { return "twitter" }

// IsEnabled implements publish.Channel.
func (t *Twitter) IsEnabled() bool { return t.config.Enabled && t.config.complete() }

// Publish implements publish.Channel.
func (t *Twitter) Publish(ctx context.Context, artifact *entity.GeneratedArtifact, post publish.Post) error {
	if artifact == nil {
		return publish.ErrNoArtifact
	}
	if !t.IsEnabled() {
		return publish.ErrChannelDisabled
	}
	logger := logging.FromContext(ctx)

	upload := artifact
	if optimized, err := optimizeForTweet(artifact); err != nil {
		logger.Warn("image optimization failed, uploading original",
			slog.Any("error", err))
	} else {
		upload = optimized
		logger.Info("image optimized for upload",
			slog.Int("original_bytes", artifact.Size()),
			slog.Int("optimized_bytes", optimized.Size()))
	}

	if err := t.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	ctx = context.WithValue(ctx, oauth1.HTTPClient, t.baseClient)
	client := oauth1.NewConfig(t.config.APIKey, t.config.APISecret).
		Client(ctx, oauth1.NewToken(t.config.AccessToken, t.config.AccessTokenSecret))

	var mediaID string
	err := sendWithRetry(ctx, t.Name(), t.retry, func(ctx context.Context) error {
		id, err := t.uploadMedia(ctx, client, upload)
		mediaID = id
		return err
	})
	if err != nil {
		return fmt.Errorf("media upload: %w", err)
	}

	text := publish.TweetText(post)
	var tweetID string
	err = sendWithRetry(ctx, t.Name(), t.retry, func(ctx context.Context) error {
		id, err := t.createTweet(ctx, client, text, mediaID)
		tweetID = id
		return err
	})
	if err != nil {
		return fmt.Errorf("create tweet: %w", err)
	}

	logger.Info("tweet posted",
		slog.String("tweet_id", tweetID),
		slog.String("media_id", mediaID))
	return nil
}

func (t *Twitter) uploadMedia(ctx context.Context, client *http.Client, a *entity.GeneratedArtifact) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", "image"+a.Extension())
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(a.Bytes()); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.UploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := doJSON(client, req, "X media", &out); err != nil {
		return "", err
	}
	if out.MediaIDString == "" {
		return "", &ClientError{Message: "X media upload returned no media id"}
	}
	return out.MediaIDString, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

func (t *Twitter) createTweet(ctx context.Context, client *http.Client, text, mediaID string) (string, error) {
	payload := tweetRequest{Text: text}
	if mediaID != "" {
		payload.Media = &tweetMedia{MediaIDs: []string{mediaID}}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.TweetURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(client, req, "X tweets", &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

// doJSON executes req and decodes a 2xx JSON body into out.
func doJSON(client *http.Client, req *http.Request, service string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(service, resp, body)
	}
	if out == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
