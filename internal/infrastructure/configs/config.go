package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/liveshare/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Room        RoomConfig        `koanf:"room"`
	Store       StoreConfig       `koanf:"store"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Turnstile   TurnstileConfig   `koanf:"turnstile"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RoomConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxViewers int           `koanf:"max_viewers"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

// RateLimiterConfig bounds room creation per client IP.
type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
}

type TurnstileConfig struct {
	Secret string `koanf:"secret"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Only return error if file was explicitly provided but failed to load
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply defaults and environment variable overrides
	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{})

	// Room defaults
	setDefault(k, "room.ttl", time.Hour)
	setDefault(k, "room.max_viewers", 50)

	// Store defaults
	setDefault(k, "store.path", "./data/liveshare.db")

	// Rate limiter defaults: room creations per IP per hour
	setDefault(k, "rateLimiter.requestsPerTimeFrame", 20)
	setDefault(k, "rateLimiter.timeFrame", time.Hour)

	// Turnstile is off unless a secret is configured
	setDefault(k, "turnstile.secret", "")
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if origins := env.GetString("ALLOWED_ORIGINS", ""); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		k.Set("http.allowed_origins", list)
	}

	// Room config from env
	if ttl := env.GetInt("ROOM_TTL_SECONDS", 0); ttl > 0 {
		k.Set("room.ttl", time.Duration(ttl)*time.Second)
	}
	if maxViewers := env.GetInt("MAX_VIEWERS", 0); maxViewers > 0 {
		k.Set("room.max_viewers", maxViewers)
	}

	// Store config from env
	if path := env.GetString("STORE_PATH", ""); path != "" {
		k.Set("store.path", path)
	}

	// Rate limiter config from env
	if limit := env.GetInt("CREATE_LIMIT_PER_HOUR", 0); limit > 0 {
		k.Set("rateLimiter.requestsPerTimeFrame", limit)
		k.Set("rateLimiter.timeFrame", time.Hour)
	}

	// Turnstile config from env
	if secret := env.GetString("TURNSTILE_SECRET_KEY", ""); secret != "" {
		k.Set("turnstile.secret", secret)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
