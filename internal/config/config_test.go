package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ReminderSweepInterval != time.Minute {
		t.Fatalf("expected default sweep interval, got %s", cfg.ReminderSweepInterval)
	}
	if cfg.DefaultSubServiceMins != 30 || cfg.DefaultExtraServiceMins != 15 || cfg.SessionBufferMins != 5 {
		t.Fatalf("unexpected scheduling defaults: %d/%d/%d",
			cfg.DefaultSubServiceMins, cfg.DefaultExtraServiceMins, cfg.SessionBufferMins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "30s")
	t.Setenv("REMINDER_HOUR_WINDOW", "2h")
	t.Setenv("EMAIL_PROVIDER", "sendgrid")
	t.Setenv("SESSION_BUFFER_MINS", "10")
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
	if cfg.ReminderSweepInterval != 30*time.Second {
		t.Fatalf("expected sweep interval override, got %s", cfg.ReminderSweepInterval)
	}
	if cfg.ReminderHourWindow != 2*time.Hour {
		t.Fatalf("expected hour window override, got %s", cfg.ReminderHourWindow)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected email provider override, got %s", cfg.EmailProvider)
	}
	if cfg.SessionBufferMins != 10 {
		t.Fatalf("expected buffer override, got %d", cfg.SessionBufferMins)
	}
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard default, got %v", cfg.CORSAllowedOrigins)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	cfg = Load()
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("expected parsed origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("REMINDER_SWEEP_INTERVAL", "not-a-duration")
	cfg := Load()
	if cfg.ReminderSweepInterval != time.Minute {
		t.Fatalf("expected fallback interval, got %s", cfg.ReminderSweepInterval)
	}
}
