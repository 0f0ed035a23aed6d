package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	HTTPAddress string
	DatabaseURL string

	JWTSecret       string
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	CacheBackend string
	RedisURL     string

	// DevMode bypasses the credential store on login and issues tokens for
	// any email. Demo fixture only, never production.
	DevMode bool

	AllowedOrigins   []string
	AllowCredentials bool

	AuthServiceURL          string
	CoreServiceURL          string
	ChatServiceURL          string
	AnalyticsServiceURL     string
	NotificationsServiceURL string
	UpstreamTimeout         time.Duration
}

var envKeys = []string{
	"HTTP_ADDRESS",
	"DATABASE_URL",
	"JWT_SECRET",
	"JWT_ISSUER",
	"JWT_AUDIENCE",
	"ACCESS_TOKEN_TTL",
	"REFRESH_TOKEN_TTL",
	"RESET_TOKEN_TTL",
	"CACHE_BACKEND",
	"REDIS_URL",
	"DEV_MODE",
	"ALLOWED_ORIGINS",
	"ALLOW_CREDENTIALS",
	"AUTH_SERVICE_URL",
	"CORE_SERVICE_URL",
	"CHAT_SERVICE_URL",
	"ANALYTICS_SERVICE_URL",
	"NOTIFICATIONS_SERVICE_URL",
	"UPSTREAM_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetDefault("HTTP_ADDRESS", ":4001")
	v.SetDefault("JWT_ISSUER", "wellio-auth")
	v.SetDefault("JWT_AUDIENCE", "wellio-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "24h")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("AUTH_SERVICE_URL", "http://localhost:4001")
	v.SetDefault("CORE_SERVICE_URL", "http://localhost:4005")
	v.SetDefault("CHAT_SERVICE_URL", "http://localhost:4002")
	v.SetDefault("ANALYTICS_SERVICE_URL", "http://localhost:4003")
	v.SetDefault("NOTIFICATIONS_SERVICE_URL", "http://localhost:4004")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")

	cfg := &Config{
		HTTPAddress:             v.GetString("HTTP_ADDRESS"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		Issuer:                  v.GetString("JWT_ISSUER"),
		Audience:                v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:          v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:         v.GetDuration("REFRESH_TOKEN_TTL"),
		ResetTokenTTL:           v.GetDuration("RESET_TOKEN_TTL"),
		CacheBackend:            v.GetString("CACHE_BACKEND"),
		RedisURL:                v.GetString("REDIS_URL"),
		DevMode:                 v.GetBool("DEV_MODE"),
		AllowedOrigins:          v.GetStringSlice("ALLOWED_ORIGINS"),
		AllowCredentials:        v.GetBool("ALLOW_CREDENTIALS"),
		AuthServiceURL:          v.GetString("AUTH_SERVICE_URL"),
		CoreServiceURL:          v.GetString("CORE_SERVICE_URL"),
		ChatServiceURL:          v.GetString("CHAT_SERVICE_URL"),
		AnalyticsServiceURL:     v.GetString("ANALYTICS_SERVICE_URL"),
		NotificationsServiceURL: v.GetString("NOTIFICATIONS_SERVICE_URL"),
		UpstreamTimeout:         v.GetDuration("UPSTREAM_TIMEOUT"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.CacheBackend != CacheBackendMemory && cfg.CacheBackend != CacheBackendRedis {
		return nil, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q",
			CacheBackendMemory, CacheBackendRedis, cfg.CacheBackend)
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	return cfg, nil
}
