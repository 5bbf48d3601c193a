package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Route names with their own rate limit
const (
	RateLimitAsk       = "ask"
	RateLimitWebSocket = "websocket"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		RateLimitAsk: {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_ASK", 60), // 60 requests per minute
			Window:  time.Minute,
		},
		RateLimitWebSocket: {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_WS", 30), // 30 connections per minute
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
