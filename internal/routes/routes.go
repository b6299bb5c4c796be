package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/accountapi"
	"github.com/bankportal/onboarding/internal/config"
	"github.com/bankportal/onboarding/internal/logging"
	"github.com/bankportal/onboarding/internal/middleware"
	"github.com/bankportal/onboarding/internal/notification"
	"github.com/bankportal/onboarding/internal/onboarding"
	"github.com/bankportal/onboarding/internal/portal"
	"github.com/bankportal/onboarding/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Cache  *redis.Client
	Logger *slog.Logger
	// Accounts overrides the backend selected by Cfg.AccountBackend.
	Accounts account.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger, "/healthz"))

	sessions, err := session.NewCookieStore(d.Cfg.SessionSecret, d.Cfg.IsProduction(), d.Logger)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger, idempotencyScope(sessions)))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	accounts := d.Accounts
	if accounts == nil {
		accounts = accountService(d)
	}

	var drafts onboarding.Repository
	if d.Cache != nil {
		drafts = onboarding.NewRedisRepository(d.Cache, d.Cfg.WizardTTL)
	} else {
		drafts = onboarding.NewMemoryRepository(d.Cfg.WizardTTL)
	}
	wizardSvc := onboarding.NewService(drafts, accounts, onboarding.Options{
		ExposeOTP:      d.Cfg.OTPExposeCode,
		FallbackOTP:    d.Cfg.OTPFallbackCode,
		ResendCooldown: d.Cfg.OTPResendCooldown,
	}, d.Logger)
	wizardHandler := onboarding.NewHandler(wizardSvc, sessions, d.Cfg.WizardTTL, d.Cfg.IsProduction(), d.Logger)
	portalHandler := portal.NewHandler(portal.NewService(accounts, d.Logger), sessions)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWizardRoutes(api, wizardHandler)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterPortalRoutes(api, portalHandler, middleware.RequireSession(sessions), rateLimiter)

	return nil
}

// idempotencyScope keys replays to the wizard draft, else the portal
// account, else the client address.
func idempotencyScope(sessions session.Repository) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if id := c.Cookies(onboarding.CookieName); id != "" {
			return "wizard:" + id
		}
		if s := sessions.Get(c); s != nil && s.LoggedIn {
			return "account:" + s.AccountNumber
		}
		return "ip:" + c.IP()
	}
}

func accountService(d Deps) account.Service {
	if d.Cfg.AccountBackend == config.BackendRemote {
		return accountapi.New(d.Cfg.AccountAPIURL, d.Cfg.AccountAPITimeout, d.Logger)
	}
	var issuer account.CredentialIssuer = account.SecureIssuer{}
	if d.Cfg.CredentialIssuer == config.IssuerDemo {
		issuer = account.DemoIssuer{}
	}
	// the sandbox runs in-process; whether codes reach the browser is the
	// wizard's decision
	return account.NewSandbox(issuer, notification.NewLoggerNotifier(d.Logger), true)
}
