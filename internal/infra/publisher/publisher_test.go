package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/usecase/publish"
)

var (
	_ publish.Channel = (*Telegram)(nil)
	_ publish.Channel = (*Twitter)(nil)
	_ publish.Channel = (*Discord)(nil)
	_ publish.Channel = (*Slack)(nil)
)

func fastRetry() retryPolicy {
	return retryPolicy{maxAttempts: 2, baseDelay: time.Millisecond, maxRetryAfter: 10 * time.Millisecond}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testArtifact(t *testing.T) *entity.GeneratedArtifact {
	t.Helper()
	return entity.NewGeneratedArtifact(testPNG(t, 16, 8), "image/png", "imagen",
		entity.RenderingInstruction{Text: "a calm field", Backend: "groq"})
}

func testPost() publish.Post {
	return publish.Post{
		Quote:       "Pán je můj pastýř, nebudu mít nedostatek.",
		Style:       entity.StyleEntry{Name: "van_gogh", Shortcut: "VG"},
		WeatherIcon: "☀️",
		Date:        time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC),
	}
}

// --- sendWithRetry ---

func TestSendWithRetry(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		var calls int32
		err := sendWithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return &ClientError{StatusCode: 400, Message: "bad request"}
		})
		var clientErr *ClientError
		if !errors.As(err, &clientErr) {
			t.Fatalf("expected ClientError, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls int32
		err := sendWithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return &ServerError{StatusCode: 502, Message: "bad gateway"}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("exhausted attempts wrap last error", func(t *testing.T) {
		err := sendWithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			return &ServerError{StatusCode: 503, Message: "unavailable"}
		})
		if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
			t.Fatalf("expected exhausted error, got %v", err)
		}
	})

	t.Run("rate limit within cap waits and retries", func(t *testing.T) {
		var calls int32
		err := sendWithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return &RateLimitError{RetryAfter: time.Millisecond}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("rate limit above cap gives up", func(t *testing.T) {
		var calls int32
		err := sendWithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return &RateLimitError{RetryAfter: time.Hour}
		})
		if _, ok := is429Error(err); !ok {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("canceled context stops backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := retryPolicy{maxAttempts: 3, baseDelay: time.Hour}
		err := sendWithRetry(ctx, "test", policy, func(context.Context) error {
			cancel()
			return &ServerError{StatusCode: 500, Message: "boom"}
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "429 with json retry_after",
			status: http.StatusTooManyRequests,
			body:   `{"retry_after": 2.5}`,
			check: func(t *testing.T, err error) {
				rl, ok := is429Error(err)
				if !ok {
					t.Fatalf("expected RateLimitError, got %T", err)
				}
				if rl.RetryAfter != 2500*time.Millisecond {
					t.Errorf("expected 2.5s, got %v", rl.RetryAfter)
				}
			},
		},
		{
			name:   "429 with header",
			status: http.StatusTooManyRequests,
			header: "7",
			check: func(t *testing.T, err error) {
				rl, _ := is429Error(err)
				if rl == nil || rl.RetryAfter != 7*time.Second {
					t.Errorf("expected 7s, got %v", err)
				}
			},
		},
		{
			name:   "404 is client error",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var ce *ClientError
				if !errors.As(err, &ce) || ce.StatusCode != 404 {
					t.Errorf("expected ClientError 404, got %v", err)
				}
			},
		},
		{
			name:   "500 is server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				if !isRetryableError(err) {
					t.Errorf("expected retryable, got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			tt.check(t, statusError("Test", resp, []byte(tt.body)))
		})
	}
}

func TestRateLimiter_CanceledContext(t *testing.T) {
	rl := NewRateLimiter("test", 0.001, 1)
	if err := rl.Allow(context.Background()); err != nil {
		t.Fatalf("first token should be immediate: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Allow(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// --- Telegram ---

func telegramServer(t *testing.T, sendPhoto http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var photoCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"slovo","username":"slovo_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
			atomic.AddInt32(&photoCalls, 1)
			sendPhoto(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &photoCalls
}

func newTestTelegram(srv *httptest.Server, cfg TelegramConfig) *Telegram {
	cfg.APIEndpoint = srv.URL + "/bot%s/%s"
	tg := NewTelegram(cfg, srv.Client())
	tg.retry = fastRetry()
	return tg
}

func TestTelegram_Publish(t *testing.T) {
	t.Run("sends photo with caption to channel username", func(t *testing.T) {
		var gotChat, gotCaption, gotPath string
		var gotFile []byte
		srv, calls := telegramServer(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			gotChat = r.FormValue("chat_id")
			gotCaption = r.FormValue("caption")
			if f, _, err := r.FormFile("photo"); err == nil {
				gotFile, _ = io.ReadAll(f)
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"channel"}}}`)
		})

		tg := newTestTelegram(srv, TelegramConfig{TestToken: "test-token", TestChatID: "@slovo_test"})
		artifact := testArtifact(t)
		post := testPost()

		if err := tg.Publish(context.Background(), artifact, post); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if *calls != 1 {
			t.Errorf("expected 1 sendPhoto call, got %d", *calls)
		}
		if !strings.Contains(gotPath, "test-token") {
			t.Errorf("expected test token in path, got %q", gotPath)
		}
		if gotChat != "@slovo_test" {
			t.Errorf("expected chat @slovo_test, got %q", gotChat)
		}
		if gotCaption != publish.TelegramCaption(post) {
			t.Errorf("unexpected caption %q", gotCaption)
		}
		if !bytes.Equal(gotFile, artifact.Bytes()) {
			t.Errorf("uploaded bytes differ from artifact")
		}
	})

	t.Run("numeric chat id in production", func(t *testing.T) {
		var gotChat string
		srv, _ := telegramServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			gotChat = r.FormValue("chat_id")
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100123,"type":"channel"}}}`)
		})
		tg := newTestTelegram(srv, TelegramConfig{Production: true, Token: "prod", ChatID: "-100123"})
		if err := tg.Publish(context.Background(), testArtifact(t), testPost()); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if gotChat != "-100123" {
			t.Errorf("expected -100123, got %q", gotChat)
		}
	})

	t.Run("bad request is not retried", func(t *testing.T) {
		srv, calls := telegramServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
		})
		tg := newTestTelegram(srv, TelegramConfig{TestToken: "t", TestChatID: "@x"})
		err := tg.Publish(context.Background(), testArtifact(t), testPost())
		var ce *ClientError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ClientError, got %v", err)
		}
		if *calls != 1 {
			t.Errorf("expected 1 call, got %d", *calls)
		}
	})

	t.Run("server error is retried", func(t *testing.T) {
		srv, calls := telegramServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
		})
		tg := newTestTelegram(srv, TelegramConfig{TestToken: "t", TestChatID: "@x"})
		if err := tg.Publish(context.Background(), testArtifact(t), testPost()); err == nil {
			t.Fatal("expected error")
		}
		if *calls != 2 {
			t.Errorf("expected 2 calls, got %d", *calls)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		tg := NewTelegram(TelegramConfig{Production: true}, nil)
		if tg.IsEnabled() {
			t.Error("expected disabled")
		}
		err := tg.Publish(context.Background(), testArtifact(t), testPost())
		if !errors.Is(err, publish.ErrChannelDisabled) {
			t.Fatalf("expected ErrChannelDisabled, got %v", err)
		}
		if !strings.Contains(err.Error(), "TELEGRAM_TOKEN") || !strings.Contains(err.Error(), "TELEGRAM_CHAT_ID") {
			t.Errorf("expected missing variable names, got %v", err)
		}
	})

	t.Run("nil artifact", func(t *testing.T) {
		tg := NewTelegram(TelegramConfig{TestToken: "t", TestChatID: "@x"}, nil)
		if err := tg.Publish(context.Background(), nil, testPost()); !errors.Is(err, publish.ErrNoArtifact) {
			t.Fatalf("expected ErrNoArtifact, got %v", err)
		}
	})
}

func TestMapTelegramError_RateLimit(t *testing.T) {
	srv, _ := telegramServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3600}}`)
	})
	tg := newTestTelegram(srv, TelegramConfig{TestToken: "t", TestChatID: "@x"})
	err := tg.Publish(context.Background(), testArtifact(t), testPost())
	rl, ok := is429Error(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != time.Hour {
		t.Errorf("expected 1h, got %v", rl.RetryAfter)
	}
}

// --- Twitter ---

func TestTwitter_Publish(t *testing.T) {
	var uploadAuth, tweetAuth string
	var uploaded []byte
	var tweet tweetRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		uploadAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 22); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if f, _, err := r.FormFile("media"); err == nil {
			uploaded, _ = io.ReadAll(f)
		}
		_, _ = io.WriteString(w, `{"media_id":42,"media_id_string":"42"}`)
	})
	mux.HandleFunc("/tweets", func(w http.ResponseWriter, r *http.Request) {
		tweetAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&tweet)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"1001","text":"ok"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(TwitterConfig{
		Enabled:           true,
		APIKey:            "ck",
		APISecret:         "cs",
		AccessToken:       "at",
		AccessTokenSecret: "as",
		UploadURL:         srv.URL + "/upload",
		TweetURL:          srv.URL + "/tweets",
	}, srv.Client())
	tw.retry = fastRetry()

	post := testPost()
	if err := tw.Publish(context.Background(), testArtifact(t), post); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if !strings.HasPrefix(uploadAuth, "OAuth ") || !strings.HasPrefix(tweetAuth, "OAuth ") {
		t.Errorf("expected OAuth authorization, got %q / %q", uploadAuth, tweetAuth)
	}
	if !strings.Contains(uploadAuth, `oauth_consumer_key="ck"`) {
		t.Errorf("expected consumer key in header, got %q", uploadAuth)
	}
	if !bytes.HasPrefix(uploaded, []byte{0xFF, 0xD8}) {
		t.Errorf("expected jpeg upload")
	}
	if tweet.Text != publish.TweetText(post) {
		t.Errorf("unexpected tweet text %q", tweet.Text)
	}
	if tweet.Media == nil || len(tweet.Media.MediaIDs) != 1 || tweet.Media.MediaIDs[0] != "42" {
		t.Errorf("expected media id 42, got %+v", tweet.Media)
	}
}

func TestTwitter_UploadFailure(t *testing.T) {
	var tweets int32
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"errors":[{"message":"forbidden"}]}`)
	})
	mux.HandleFunc("/tweets", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tweets, 1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(TwitterConfig{
		Enabled: true, APIKey: "a", APISecret: "b", AccessToken: "c", AccessTokenSecret: "d",
		UploadURL: srv.URL + "/upload", TweetURL: srv.URL + "/tweets",
	}, srv.Client())
	tw.retry = fastRetry()

	err := tw.Publish(context.Background(), testArtifact(t), testPost())
	var ce *ClientError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 ClientError, got %v", err)
	}
	if tweets != 0 {
		t.Errorf("tweet must not be created after failed upload")
	}
}

func TestTwitter_IsEnabled(t *testing.T) {
	if NewTwitter(TwitterConfig{Enabled: true, APIKey: "a"}, nil).IsEnabled() {
		t.Error("incomplete credentials must disable the channel")
	}
	if NewTwitter(TwitterConfig{APIKey: "a", APISecret: "b", AccessToken: "c", AccessTokenSecret: "d"}, nil).IsEnabled() {
		t.Error("channel must be explicitly enabled")
	}
}

func TestOptimizeForTweet(t *testing.T) {
	src := entity.NewGeneratedArtifact(testPNG(t, 2100, 1050), "image/png", "dalle", entity.RenderingInstruction{})
	out, err := optimizeForTweet(src)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if out.MimeType != "image/jpeg" || out.Backend != "dalle" {
		t.Errorf("unexpected artifact %s/%s", out.MimeType, out.Backend)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 2048 || cfg.Height != 1024 {
		t.Errorf("expected 2048x1024, got %dx%d", cfg.Width, cfg.Height)
	}
	if src.MimeType != "image/png" {
		t.Error("source artifact must not change")
	}

	if _, err := optimizeForTweet(entity.NewGeneratedArtifact([]byte("nope"), "image/png", "x", entity.RenderingInstruction{})); err == nil {
		t.Error("expected decode error")
	}
}

// --- Discord ---

func TestDiscord_Publish(t *testing.T) {
	var payload DiscordWebhookPayload
	var file []byte
	var filename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		_ = json.Unmarshal([]byte(r.FormValue("payload_json")), &payload)
		if f, h, err := r.FormFile("files[0]"); err == nil {
			filename = h.Filename
			file, _ = io.ReadAll(f)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{Enabled: true, WebhookURL: srv.URL})
	d.retry = fastRetry()
	artifact := testArtifact(t)
	post := testPost()

	if err := d.Publish(context.Background(), artifact, post); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if payload.Content != publish.PlainCaption(post, publish.DiscordContentLimit) {
		t.Errorf("unexpected content %q", payload.Content)
	}
	if len(payload.Embeds) != 1 || payload.Embeds[0].Image == nil {
		t.Fatalf("expected one embed with image, got %+v", payload.Embeds)
	}
	if payload.Embeds[0].Image.URL != "attachment://image.png" || filename != "image.png" {
		t.Errorf("attachment mismatch: %q / %q", payload.Embeds[0].Image.URL, filename)
	}
	if payload.Embeds[0].Title != "Van Gogh" {
		t.Errorf("expected title Van Gogh, got %q", payload.Embeds[0].Title)
	}
	if !bytes.Equal(file, artifact.Bytes()) {
		t.Error("uploaded file differs from artifact")
	}
}

func TestDiscord_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d := NewDiscord(DiscordConfig{Enabled: true})
		if err := d.Publish(context.Background(), testArtifact(t), testPost()); !errors.Is(err, publish.ErrChannelDisabled) {
			t.Fatalf("expected ErrChannelDisabled, got %v", err)
		}
	})

	t.Run("5xx retried then fails", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		d := NewDiscord(DiscordConfig{Enabled: true, WebhookURL: srv.URL})
		d.retry = fastRetry()
		if err := d.Publish(context.Background(), testArtifact(t), testPost()); err == nil {
			t.Fatal("expected error")
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})
}

// --- Slack ---

func TestSlack_Publish(t *testing.T) {
	var payload SlackWebhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{Enabled: true, WebhookURL: srv.URL})
	s.retry = fastRetry()
	post := testPost()

	if err := s.Publish(context.Background(), testArtifact(t), post); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("unexpected content type %q", contentType)
	}
	if payload.Text != post.Quote {
		t.Errorf("expected fallback text to be the quote, got %q", payload.Text)
	}
	if len(payload.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "section" || payload.Blocks[0].Text == nil ||
		!strings.Contains(payload.Blocks[0].Text.Text, post.Quote) {
		t.Errorf("unexpected section block %+v", payload.Blocks[0])
	}
	if got := payload.Blocks[1].Elements[0].Text; got != "Van Gogh • imagen • 2025-03-14" {
		t.Errorf("unexpected context %q", got)
	}
}

func TestSlack_FallbackTruncated(t *testing.T) {
	s := NewSlack(SlackConfig{Enabled: true, WebhookURL: "http://unused"})
	post := testPost()
	post.Quote = strings.Repeat("slovo ", 100)
	payload := s.buildBlockKitPayload(testArtifact(t), post)
	if n := len([]rune(payload.Text)); n > maxFallbackLength {
		t.Errorf("fallback text has %d runes, limit %d", n, maxFallbackLength)
	}
}

func TestSlack_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no_service")
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{Enabled: true, WebhookURL: srv.URL})
	s.retry = fastRetry()
	err := s.Publish(context.Background(), testArtifact(t), testPost())
	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
