// Package bootstrap wires booking conversations from configuration. Both the
// API server and the terminal client build their conversations here.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/pawcare-booking-chat/internal/config"
	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/internal/session"
	"github.com/wolfman30/pawcare-booking-chat/internal/webhook"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; transcripts stay in memory", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildTranscriptStore mirrors transcripts to Redis when a client is given and
// to process memory otherwise.
func BuildTranscriptStore(redisClient *redis.Client, cfg *appconfig.Config) session.TranscriptStore {
	var limit int64
	if cfg != nil {
		limit = cfg.TranscriptMaxMessages
	}
	if store := session.NewRedisTranscriptStore(redisClient, limit); store != nil {
		return store
	}
	return session.NewMemoryTranscriptStore(int(limit))
}

// BuildWebhookClient creates the workflow webhook client.
func BuildWebhookClient(cfg *appconfig.Config, m *metrics.BookingMetrics, logger *logging.Logger) *webhook.Client {
	opts := []webhook.ClientOption{webhook.WithLogger(logger), webhook.WithMetrics(m)}
	if cfg.WebhookTimeout > 0 {
		opts = append(opts, webhook.WithTimeout(cfg.WebhookTimeout))
	}
	if strings.TrimSpace(cfg.BookingWebhookURL) == "" && logger != nil {
		logger.Warn("BOOKING_WEBHOOK_URL not set; every send will fail with the apology message")
	}
	return webhook.NewClient(cfg.BookingWebhookURL, opts...)
}

// Deps are the shared collaborators of every conversation.
type Deps struct {
	Sender  webhook.Sender
	Store   session.TranscriptStore
	Metrics *metrics.BookingMetrics
	Logger  *logging.Logger
}

// ConversationFactory returns a constructor for conversations configured from
// cfg. The classifier is built once and shared.
func ConversationFactory(cfg *appconfig.Config, deps Deps) func() *orchestrator.Orchestrator {
	classifier := directive.NewClassifier(cfg.SchedulingPhrases...)
	return func() *orchestrator.Orchestrator {
		opts := []orchestrator.Option{
			orchestrator.WithClassifier(classifier),
			orchestrator.WithApology(cfg.ApologyMessage),
			orchestrator.WithMetrics(deps.Metrics),
		}
		if cfg.GreetingMessage != "" {
			opts = append(opts, orchestrator.WithGreeting(cfg.GreetingMessage))
		}
		if deps.Store != nil {
			opts = append(opts, orchestrator.WithTranscriptStore(deps.Store))
		}
		return orchestrator.New(deps.Sender, deps.Logger, opts...)
	}
}
