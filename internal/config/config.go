package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	PublicURL string `yaml:"public_url"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	QuizCacheTTL  string `yaml:"quiz_cache_ttl"`

	AuthHMACSecret string `yaml:"auth_hmac_secret"`
	TokenTTL       string `yaml:"token_ttl"`

	AssetDir string `yaml:"asset_dir"`

	CORSOrigins []string `yaml:"cors_origins"`

	AttemptPurgeEvery string `yaml:"attempt_purge_every"`
}

// FromEnv builds the config from environment variables with dev-friendly
// defaults.
func FromEnv() Config {
	return Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: os.Getenv("PUBLIC_URL"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       0,
		QuizCacheTTL:  envOr("QUIZ_CACHE_TTL", "10m"),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:       envOr("TOKEN_TTL", "8h"),

		AssetDir: envOr("ASSET_DIR", "./assets"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		AttemptPurgeEvery: envOr("ATTEMPT_PURGE_EVERY", "15m"),
	}
}

// Load starts from FromEnv and overlays a YAML file when path is non-empty.
// Environment values win only where the file leaves a field empty.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
