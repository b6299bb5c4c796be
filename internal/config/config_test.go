package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.AccountBackend != BackendSandbox {
		t.Fatalf("expected sandbox backend, got %s", cfg.AccountBackend)
	}
	if cfg.SessionSecret == "" {
		t.Fatal("expected development session secret")
	}
	if cfg.OTPFallbackCode != "123456" {
		t.Fatalf("expected development OTP fallback, got %q", cfg.OTPFallbackCode)
	}
	if cfg.OTPResendCooldown != time.Minute {
		t.Fatalf("expected 60s cooldown, got %s", cfg.OTPResendCooldown)
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short session secret")
	}
}

func TestLoadProductionRejectsDemoIssuer(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CREDENTIAL_ISSUER", "demo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for demo issuer in production")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ACCOUNT_BACKEND", "mainframe")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestAddressKeepsColonPrefix(t *testing.T) {
	cfg := Config{Port: ":9000"}
	if cfg.Address() != ":9000" {
		t.Fatalf("expected :9000, got %s", cfg.Address())
	}
}
