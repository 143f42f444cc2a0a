package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGreeting = "Hi there! I'm your pet-care booking assistant. Choose an option below to get started."
	defaultApology  = "Sorry, I'm having trouble reaching the booking service right now. Please try again in a moment."
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Booking workflow webhook
	BookingWebhookURL string
	WebhookTimeout    time.Duration

	// Transcript mirror
	RedisAddr             string
	RedisPassword         string
	RedisTLS              bool
	TranscriptMaxMessages int64

	// Conversation copy
	GreetingMessage string
	ApologyMessage  string

	// Extra plain-text phrases that open the date/time panel.
	SchedulingPhrases []string

	CORSAllowedOrigins []string
	SessionIdleTTL     time.Duration

	// Per-client request limit on the chat API; zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		BookingWebhookURL:     getEnv("BOOKING_WEBHOOK_URL", ""),
		WebhookTimeout:        getEnvAsDuration("WEBHOOK_TIMEOUT", 0),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisTLS:              getEnvAsBool("REDIS_TLS", false),
		TranscriptMaxMessages: int64(getEnvAsInt("TRANSCRIPT_MAX_MESSAGES", 250)),
		GreetingMessage:       getEnv("GREETING_MESSAGE", defaultGreeting),
		ApologyMessage:        getEnv("APOLOGY_MESSAGE", defaultApology),
		SchedulingPhrases:     getEnvAsList("SCHEDULING_PHRASES"),
		CORSAllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),
		SessionIdleTTL:        getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		RateLimitRPS:          getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
