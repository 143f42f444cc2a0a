package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/pawcare-booking-chat/internal/http/middleware"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/internal/webchat"
	"github.com/wolfman30/pawcare-booking-chat/internal/webhook"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

type noopSender struct{}

func (noopSender) Send(context.Context, webhook.Request) (webhook.Response, error) {
	return webhook.Response{Message: "ok"}, nil
}

func newTestRouter(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	registry := webchat.NewRegistry(func() *orchestrator.Orchestrator {
		return orchestrator.New(noopSender{}, logger, orchestrator.WithMetrics(m))
	}, 0, webchat.WithRegistryMetrics(m), webchat.WithRegistryLogger(logger))

	cfg := &Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(registry, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"https://book.pawcare.test"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthDegraded(t *testing.T) {
	router := newTestRouter(t, func(cfg *Config) {
		cfg.HealthChecks = map[string]func(context.Context) error{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "degraded" || resp["redis"] != "connection refused" {
		t.Errorf("unexpected health response %v", resp)
	}
}

func TestRouterChatAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected request id header")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "pawcare_chat_active_sessions 1") {
		t.Errorf("expected active session gauge in metrics output")
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat/sessions", nil)
	req.Header.Set("Origin", "https://book.pawcare.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://book.pawcare.test" {
		t.Errorf("expected allow origin header, got %q", got)
	}
}

func TestRouterRateLimitsChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := newTestRouter(t, func(cfg *Config) {
		cfg.RateLimiter = middleware.NewRateLimiter(ctx, 0, 1)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat/sessions", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rr.Code)
	}

	// Health stays outside the limit.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
