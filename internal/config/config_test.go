package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEFAULT_COUNTRY_CODE", "")
	t.Setenv("REMINDER_PAUSE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DefaultCountryCode != "57" {
		t.Fatalf("expected default country code 57, got %s", cfg.DefaultCountryCode)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Fatalf("expected default provider timeout, got %s", cfg.ProviderTimeout)
	}
	if cfg.ReminderPause != 2*time.Second {
		t.Fatalf("expected default reminder pause, got %s", cfg.ReminderPause)
	}
	if cfg.RelaySIPExtension != "" {
		t.Fatalf("expected relay sip extension empty by default, got %s", cfg.RelaySIPExtension)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("DEFAULT_COUNTRY_CODE", "34")
	t.Setenv("REMINDER_PAUSE", "5s")
	t.Setenv("RELAY_SIP_EXTENSION", "100")
	t.Setenv("RATE_LIMIT_PER_SECOND", "0.5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.DefaultCountryCode != "34" {
		t.Fatalf("expected country code override, got %s", cfg.DefaultCountryCode)
	}
	if cfg.ReminderPause != 5*time.Second {
		t.Fatalf("expected reminder pause override, got %s", cfg.ReminderPause)
	}
	if cfg.RelaySIPExtension != "100" {
		t.Fatalf("expected sip extension override, got %s", cfg.RelaySIPExtension)
	}
	if cfg.RateLimitPerSecond != 0.5 {
		t.Fatalf("expected rate limit override, got %f", cfg.RateLimitPerSecond)
	}
}
