package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "AUDIT_DATABASE_URL", "SLOT_WIDTH_MINUTES", "EMAIL_PROVIDER", "CORS_ALLOWED_ORIGINS", "SCHEDULE_TIMEZONE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SlotWidthMinutes != 30 {
		t.Fatalf("expected default slot width 30, got %d", cfg.SlotWidthMinutes)
	}
	if cfg.EmailProvider != "stub" {
		t.Fatalf("expected stub email provider, got %s", cfg.EmailProvider)
	}
	if cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("expected default outbox interval, got %s", cfg.OutboxPollInterval)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("AUDIT_DATABASE_URL", "")
	t.Setenv("SLOT_WIDTH_MINUTES", "15")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "5s")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("SCHEDULE_TIMEZONE", "Nowhere/Invalid")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.AuditDatabaseURL != cfg.DatabaseURL {
		t.Fatalf("expected audit db to fall back to DATABASE_URL, got %s", cfg.AuditDatabaseURL)
	}
	if cfg.SlotWidthMinutes != 15 {
		t.Fatalf("expected slot width 15, got %d", cfg.SlotWidthMinutes)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.OutboxPollInterval != 5*time.Second {
		t.Fatalf("expected outbox interval override, got %s", cfg.OutboxPollInterval)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected lowercased provider, got %s", cfg.EmailProvider)
	}
	if cfg.ScheduleTimezone != "Nowhere/Invalid" || cfg.Location() != time.UTC {
		t.Fatalf("expected unknown timezone to resolve to UTC, got %s", cfg.Location())
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SLOT_WIDTH_MINUTES", "half-hour")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	cfg := Load()
	if cfg.SlotWidthMinutes != 30 {
		t.Fatalf("expected fallback slot width, got %d", cfg.SlotWidthMinutes)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected fallback shutdown timeout, got %s", cfg.ShutdownTimeout)
	}
}
