package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Accept modes select which inbound documents count as homework attempts.
const (
	AcceptModeHashtag = "hashtag"
	AcceptModeReply   = "reply"
	AcceptModeCaption = "caption"
)

// Config holds runtime configuration values for the bot service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NatsURL             string
	JWTSecret           string
	SuperAdminID        int64
	InitialAdminIDs     []int64
	BroadcastChatID     int64
	AcceptMode          string
	ValidHashtags       []string
	AllowedExtensions   []string
	LeaderboardCacheTTL time.Duration
	FeedbackSessionTTL  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DARSBOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Darsbot API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("accept.mode", AcceptModeHashtag)
	v.SetDefault("accept.hashtags", "#homework,#uyishi,#vazifa,#hw")
	v.SetDefault("accept.extensions", ".py,.txt")
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("feedback.session_ttl", "10m")

	cacheTTL, err := time.ParseDuration(v.GetString("leaderboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	sessionTTL, err := time.ParseDuration(v.GetString("feedback.session_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid feedback session ttl: %w", err)
	}

	admins, err := parseIDList(v.GetString("admin.ids"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid admin id list: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NatsURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		SuperAdminID:        v.GetInt64("super_admin_id"),
		InitialAdminIDs:     admins,
		BroadcastChatID:     v.GetInt64("broadcast_chat_id"),
		AcceptMode:          strings.ToLower(v.GetString("accept.mode")),
		ValidHashtags:       splitList(v.GetString("accept.hashtags")),
		AllowedExtensions:   splitList(v.GetString("accept.extensions")),
		LeaderboardCacheTTL: cacheTTL,
		FeedbackSessionTTL:  sessionTTL,
	}

	switch cfg.AcceptMode {
	case AcceptModeHashtag, AcceptModeReply, AcceptModeCaption:
	default:
		return Config{}, fmt.Errorf("unknown accept mode %q", cfg.AcceptMode)
	}

	if cfg.SuperAdminID == 0 {
		return Config{}, fmt.Errorf("super admin id must be provided")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", trimmed, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
