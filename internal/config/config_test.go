package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGO_URI", "REDIS_URI", "NATS_URL", "JWT_SECRET", "LIVEPOLL_STRICT_PRESENTER", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.MongoURI != "" || cfg.RedisURI != "" || cfg.NATSURL != "" {
		t.Errorf("backends should be disabled by default: %+v", cfg)
	}
	if cfg.StrictPresenter {
		t.Error("strict presenter mode should be off by default")
	}
	if !cfg.UsesDefaultSecret() {
		t.Error("expected built-in JWT secret")
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LIVEPOLL_STRICT_PRESENTER", "true")
	t.Setenv("LIVEPOLL_RATING_MAX", "10")
	t.Setenv("SESSION_CODE_TTL", "2h")
	t.Setenv("WS_SEND_BUFFER", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.StrictPresenter {
		t.Error("StrictPresenter = false")
	}
	if cfg.RatingMax != 10 {
		t.Errorf("RatingMax = %v", cfg.RatingMax)
	}
	if cfg.CodeTTL != 2*time.Hour {
		t.Errorf("CodeTTL = %v", cfg.CodeTTL)
	}
	if cfg.WSSendBuffer != 256 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.WSSendBuffer)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if cfg.UsesDefaultSecret() {
		t.Error("UsesDefaultSecret = true with JWT_SECRET set")
	}
}
