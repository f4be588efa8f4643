package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/booking")
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.JWTAccessTTL != time.Hour {
		t.Fatalf("expected access ttl 1h, got %v", cfg.JWTAccessTTL)
	}
	if cfg.JWTRefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected refresh ttl 7d, got %v", cfg.JWTRefreshTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.BcryptCost)
	}
	if cfg.RateLimitMax != 3 || cfg.RateLimitWindow != 10*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %d / %v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production by default")
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for missing required env")
	}
}

func TestLoadConfig_RejectsSharedSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_REFRESH_SECRET", "access-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when access and refresh secrets match")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		JWTAccessSecret:  "a",
		JWTRefreshSecret: "b",
		JWTAccessTTL:     time.Minute,
		JWTRefreshTTL:    time.Hour,
		BcryptCost:       12,
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
	})

	t.Run("refresh shorter than access", func(t *testing.T) {
		cfg := base
		cfg.JWTRefreshTTL = 30 * time.Second
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("bcrypt cost too high", func(t *testing.T) {
		cfg := base
		cfg.BcryptCost = 40
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
}
