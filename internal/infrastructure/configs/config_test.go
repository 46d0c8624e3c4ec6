package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Room.TTL != time.Hour {
		t.Errorf("expected default TTL 1h, got %v", cfg.Room.TTL)
	}
	if cfg.Room.MaxViewers != 50 {
		t.Errorf("expected default max viewers 50, got %d", cfg.Room.MaxViewers)
	}
	if cfg.Store.Path != "./data/liveshare.db" {
		t.Errorf("unexpected default store path %q", cfg.Store.Path)
	}
	if cfg.RateLimiter.RequestsPerTimeFrame != 20 || cfg.RateLimiter.TimeFrame != time.Hour {
		t.Errorf("unexpected rate limiter defaults: %+v", cfg.RateLimiter)
	}
	if cfg.Turnstile.Secret != "" {
		t.Error("turnstile should be off by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  host: "127.0.0.1"
  port: 9090
  allowed_origins:
    - "https://example.com"
room:
  ttl: 30m
  max_viewers: 5
store:
  path: "/tmp/test.db"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Host != "127.0.0.1" || cfg.HTTP.Port != 9090 {
		t.Errorf("file values not applied: %+v", cfg.HTTP)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("unexpected allowed origins: %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Room.TTL != 30*time.Minute || cfg.Room.MaxViewers != 5 {
		t.Errorf("room config not applied: %+v", cfg.Room)
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("store path not applied: %q", cfg.Store.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for an explicit path that does not exist")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9001")
	t.Setenv("ROOM_TTL_SECONDS", "120")
	t.Setenv("MAX_VIEWERS", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CREATE_LIMIT_PER_HOUR", "5")
	t.Setenv("TURNSTILE_SECRET_KEY", "sek")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 9001 {
		t.Errorf("HTTP_PORT not applied: %d", cfg.HTTP.Port)
	}
	if cfg.Room.TTL != 2*time.Minute {
		t.Errorf("ROOM_TTL_SECONDS not applied: %v", cfg.Room.TTL)
	}
	if cfg.Room.MaxViewers != 7 {
		t.Errorf("MAX_VIEWERS not applied: %d", cfg.Room.MaxViewers)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[0] != want[0] || cfg.HTTP.AllowedOrigins[1] != want[1] {
		t.Errorf("ALLOWED_ORIGINS not applied: %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.RateLimiter.RequestsPerTimeFrame != 5 {
		t.Errorf("CREATE_LIMIT_PER_HOUR not applied: %d", cfg.RateLimiter.RequestsPerTimeFrame)
	}
	if cfg.Turnstile.Secret != "sek" {
		t.Error("TURNSTILE_SECRET_KEY not applied")
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("room:\n  max_viewers: 5\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MAX_VIEWERS", "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Room.MaxViewers != 9 {
		t.Errorf("env should beat the file, got %d", cfg.Room.MaxViewers)
	}
}
