package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	Port string
	Env  string

	DatabaseURL string

	// Messaging provider
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// RabbitMQ lifecycle event bus; empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string

	JWTSecret string

	// OTLP trace collector endpoint; empty disables tracing export.
	OTLPEndpoint string

	TokenTTL   time.Duration
	ChannelTTL time.Duration
}

// Load reads configuration from environment variables. In development it loads
// from a .env file if present; in production missing required variables panic.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8083"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ProviderBaseURL: getEnv("CHAT_PROVIDER_URL", "http://localhost:9090"),
		ProviderAPIKey:  os.Getenv("CHAT_PROVIDER_API_KEY"),
		ProviderTimeout: getDuration("CHAT_PROVIDER_TIMEOUT", 10*time.Second),
		AMQPURL:         os.Getenv("RABBITMQ_URL"),
		AMQPExchange:    getEnv("RABBITMQ_EXCHANGE", "chat.lifecycle"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TokenTTL:        getDuration("TOKEN_CACHE_TTL", 5*time.Minute),
		ChannelTTL:      getDuration("CHANNEL_CACHE_TTL", 15*time.Minute),
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.ProviderAPIKey == "" {
			panic("CHAT_PROVIDER_API_KEY is required in production")
		}
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
