package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/wolfman30/pawcare-booking-chat/internal/http/middleware"
	"github.com/wolfman30/pawcare-booking-chat/internal/webchat"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

const healthCheckTimeout = 2 * time.Second

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter, when set, limits the chat API per client address.
	RateLimiter *httpmiddleware.RateLimiter

	// HealthChecks are probed by /health; any error reports degraded.
	HealthChecks map[string]func(context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			if cfg.RateLimiter != nil {
				chat.Use(httpmiddleware.RateLimit(cfg.RateLimiter, nil))
			}
			chat.Mount("/", cfg.ChatHandler.Routes())
		})
	}

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{"status": "ok"}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				response[name] = err.Error()
				response["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			response[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}
}
