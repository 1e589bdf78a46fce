// Package config builds the server configuration from environment variables
// so main stays lean. Everything is read once at startup and injected;
// nothing in the codebase reads the environment after boot.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	AppURL        string
	JWTSigningKey string
	SessionTTL    time.Duration

	CollabAPIKey string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	Moltbook MoltbookConfig
	LinkedIn LinkedInConfig
	Resend   ResendConfig
}

// SecureCookies reports whether session cookies should carry the Secure
// attribute, based on the public application URL scheme.
func (s Server) SecureCookies() bool {
	return strings.HasPrefix(s.AppURL, "https://")
}

// PostgresConfig holds the relational store settings. An empty DSN selects
// the in-memory stores (dev mode).
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds connection settings for the shared Redis instance.
// An empty URL disables Redis and falls back to in-process rate limiting.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit publishing settings. Empty brokers disable the
// Kafka publisher (events go to the log only).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MoltbookConfig holds the content-platform read API settings.
type MoltbookConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// LinkedInConfig holds the OAuth identity provider settings.
type LinkedInConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	Timeout      time.Duration
}

// ResendConfig holds the email dispatch service settings.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	BaseURL   string
	Timeout   time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("AGENTSID_ADDR", ":8080"),
		AppURL:        envOr("AGENTSID_APP_URL", "http://localhost:8080"),
		JWTSigningKey: envOr("JWT_SECRET", "dev-secret-key-change-in-production"),
		SessionTTL:    30 * 24 * time.Hour,
		CollabAPIKey:  os.Getenv("COLLAB_API_KEY"),
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "agentsid.audit"),
		},
		Moltbook: MoltbookConfig{
			BaseURL: envOr("MOLTBOOK_BASE_URL", "https://www.moltbook.com/api/v1"),
			APIKey:  os.Getenv("MOLTBOOK_API_KEY"),
			Timeout: 10 * time.Second,
		},
		LinkedIn: LinkedInConfig{
			ClientID:     os.Getenv("LINKEDIN_CLIENT_ID"),
			ClientSecret: os.Getenv("LINKEDIN_CLIENT_SECRET"),
			AuthorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
			UserInfoURL:  "https://api.linkedin.com/v2/userinfo",
			Timeout:      10 * time.Second,
		},
		Resend: ResendConfig{
			APIKey:    os.Getenv("RESEND_API_KEY"),
			FromEmail: envOr("RESEND_FROM_EMAIL", "AgentSid <onboarding@resend.dev>"),
			BaseURL:   "https://api.resend.com",
			Timeout:   10 * time.Second,
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
