package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-slovo/internal/usecase/publish"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ChannelHealthResponse represents the health status of all publishing channels.
type ChannelHealthResponse struct {
	Healthy  bool                          `json:"healthy"`
	Channels []publish.ChannelHealthStatus `json:"channels"`
}

// channelHealthSource is implemented by publish.Service.
type channelHealthSource interface {
	GetChannelHealth() []publish.ChannelHealthStatus
}

// newMetricsMux builds the metrics server routes:
//   - GET /metrics - Prometheus metrics
//   - GET /health - liveness, always 200
//   - GET /health/channels - per-channel circuit breaker state; 503 when the
//     mandatory channel is unconfigured or an enabled channel is tripped
func newMetricsMux(channels channelHealthSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	if channels != nil {
		mux.HandleFunc("/health/channels", channelHealthHandler(channels))
	} else {
		mux.HandleFunc("/health/channels", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "publish service not initialized",
			})
		})
	}
	return mux
}

// runMetricsServer serves newMetricsMux on port until ctx is canceled, then
// shuts down within 5 seconds.
func runMetricsServer(ctx context.Context, logger *slog.Logger, port int, channels channelHealthSource) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMetricsMux(channels),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("metrics server shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return err
		}
		logger.Info("metrics server stopped")
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// healthHandler handles GET /health requests (liveness probe).
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}

// channelHealthHandler reports 503 when the mandatory channel is disabled or
// any enabled channel has its circuit breaker open.
func channelHealthHandler(channels channelHealthSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := channels.GetChannelHealth()

		healthy := true
		for _, status := range statuses {
			if status.Mandatory && !status.Enabled {
				healthy = false
			}
			if status.Enabled && status.CircuitBreakerOpen {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(ChannelHealthResponse{
			Healthy:  healthy,
			Channels: statuses,
		})
	}
}
