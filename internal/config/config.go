package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// BackendSandbox serves the account contract from process memory.
	BackendSandbox = "sandbox"
	// BackendRemote forwards the account contract to ACCOUNT_API_URL.
	BackendRemote = "remote"

	// IssuerSecure draws credentials from crypto/rand.
	IssuerSecure = "secure"
	// IssuerDemo draws credentials from math/rand. Never use it in production.
	IssuerDemo = "demo"

	devSessionSecret = "dev-only-session-secret-change-me"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"Ouverture de compte"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	SessionSecret string `env:"SESSION_SECRET"`

	AccountBackend    string        `env:"ACCOUNT_BACKEND" envDefault:"sandbox"`
	AccountAPIURL     string        `env:"ACCOUNT_API_URL" envDefault:"http://localhost:8080/api"`
	AccountAPITimeout time.Duration `env:"ACCOUNT_API_TIMEOUT" envDefault:"10s"`
	CredentialIssuer  string        `env:"CREDENTIAL_ISSUER" envDefault:"secure"`

	// OTPExposeCode returns the issued OTP to the browser. Test builds only.
	OTPExposeCode     bool          `env:"OTP_EXPOSE_CODE"`
	OTPFallbackCode   string        `env:"OTP_FALLBACK_CODE"`
	OTPResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" envDefault:"60s"`

	WizardTTL      time.Duration `env:"WIZARD_TTL" envDefault:"2h"`
	LoginRateLimit int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.AccountBackend = strings.ToLower(strings.TrimSpace(cfg.AccountBackend))
	cfg.CredentialIssuer = strings.ToLower(strings.TrimSpace(cfg.CredentialIssuer))
	cfg.AccountAPIURL = strings.TrimRight(cfg.AccountAPIURL, "/")

	switch cfg.AccountBackend {
	case BackendSandbox, BackendRemote:
	default:
		return Config{}, fmt.Errorf("invalid ACCOUNT_BACKEND %q", cfg.AccountBackend)
	}

	switch cfg.CredentialIssuer {
	case IssuerSecure, IssuerDemo:
	default:
		return Config{}, fmt.Errorf("invalid CREDENTIAL_ISSUER %q", cfg.CredentialIssuer)
	}

	if cfg.IsDev() {
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = devSessionSecret
		}
		if cfg.OTPFallbackCode == "" {
			cfg.OTPFallbackCode = "123456"
		}
	} else {
		if len(cfg.SessionSecret) < 32 {
			return Config{}, fmt.Errorf("SESSION_SECRET must be at least 32 characters when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.CredentialIssuer == IssuerDemo {
			return Config{}, fmt.Errorf("CREDENTIAL_ISSUER=demo is not allowed when APP_ENV=%s", cfg.AppEnv)
		}
	}

	if cfg.OTPFallbackCode != "" && len(cfg.OTPFallbackCode) != 6 {
		return Config{}, fmt.Errorf("OTP_FALLBACK_CODE must be 6 characters")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
