package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

func failing(err error) func() (interface{}, error) {
	return func() (interface{}, error) { return nil, err }
}

func TestNew(t *testing.T) {
	cb := New(SourceConfig("bible21"))

	if cb.Name() != "source-bible21" {
		t.Errorf("expected name='source-bible21', got %q", cb.Name())
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state=Closed, got %v", cb.State())
	}
	if got := testutil.ToFloat64(stateGauge.WithLabelValues("source-bible21")); got != 0 {
		t.Errorf("expected state gauge 0, got %v", got)
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := New(PromptBackendConfig("groq"))

	result, err := cb.Execute(func() (interface{}, error) { return "instruction", nil })
	if err != nil || result != "instruction" {
		t.Errorf("expected instruction/nil, got %v/%v", result, err)
	}

	backendErr := errors.New("upstream 502")
	if _, err := cb.Execute(failing(backendErr)); !errors.Is(err, backendErr) {
		t.Errorf("expected backend error passed through, got %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected state=Closed after one failure, got %v", cb.State())
	}
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	cfg := RenderBackendConfig("dalle")
	cfg.Timeout = time.Hour
	cb := New(cfg)

	renderErr := errors.New("render failed")
	for i := 0; i < int(cfg.MinRequests); i++ {
		if _, err := cb.Execute(failing(renderErr)); !errors.Is(err, renderErr) {
			t.Errorf("request %d: expected render error, got %v", i, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("expected Open after %d failures, got %v", cfg.MinRequests, cb.State())
	}
	if got := testutil.ToFloat64(stateGauge.WithLabelValues("render-dalle")); got != float64(gobreaker.StateOpen) {
		t.Errorf("expected state gauge %d, got %v", gobreaker.StateOpen, got)
	}

	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function should not be called when circuit is open")
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cfg := Config{
		Name:             "test-half-open",
		MaxRequests:      2,
		Interval:         10 * time.Second,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
	cb := New(cfg)

	for i := 0; i < 6; i++ {
		_, _ = cb.Execute(failing(errors.New("x")))
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("circuit should be open, got %v", cb.State())
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := cb.Execute(func() (interface{}, error) { return "ok", nil }); err != nil {
		t.Errorf("expected success in half-open state, got %v", err)
	}
	if cb.State() == gobreaker.StateOpen {
		t.Errorf("circuit should not be open after a successful probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_MinRequests(t *testing.T) {
	cfg := DefaultConfig("test-min-requests")
	cfg.MinRequests = 10
	cb := New(cfg)

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(failing(errors.New("x")))
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected state=Closed below MinRequests, got %v", cb.State())
	}
}

func TestCircuitBreaker_IsSuccessful(t *testing.T) {
	empty := errors.New("nothing today")
	cfg := DefaultConfig("test-is-successful")
	cfg.MinRequests = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, empty) }
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		if _, err := cb.Execute(failing(empty)); !errors.Is(err, empty) {
			t.Fatalf("expected error to be returned, got %v", err)
		}
	}
	if cb.IsOpen() {
		t.Error("errors classified as successful must not trip the circuit")
	}
}

func TestBackendConfigs(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantName    string
		wantMinReqs uint32
	}{
		{name: "default", cfg: DefaultConfig("x"), wantName: "x", wantMinReqs: 5},
		{name: "prompt backend", cfg: PromptBackendConfig("groq"), wantName: "prompt-groq", wantMinReqs: 5},
		{name: "render backend", cfg: RenderBackendConfig("together"), wantName: "render-together", wantMinReqs: 3},
		{name: "content source", cfg: SourceConfig("bible21"), wantName: "source-bible21", wantMinReqs: 5},
		{name: "journal", cfg: JournalConfig(), wantName: "journal", wantMinReqs: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Name != tt.wantName {
				t.Errorf("expected Name=%q, got %q", tt.wantName, tt.cfg.Name)
			}
			if tt.cfg.MinRequests != tt.wantMinReqs {
				t.Errorf("expected MinRequests=%d, got %d", tt.wantMinReqs, tt.cfg.MinRequests)
			}
		})
	}
}
