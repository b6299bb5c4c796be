package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/session"
)

// SessionExpired is returned by RequireSession for anonymous requests.
const SessionExpired = "Session expirée"

const sessionLocal = "portal.session"

// RequireSession rejects requests without a logged-in portal session and
// exposes the snapshot through CurrentSession.
func RequireSession(store session.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := store.Get(c)
		if session.StateOf(s) == session.Anonymous {
			return fiber.NewError(http.StatusUnauthorized, SessionExpired)
		}
		c.Locals(sessionLocal, *s)
		return c.Next()
	}
}

// CurrentSession returns the snapshot loaded by RequireSession.
func CurrentSession(c *fiber.Ctx) (session.UserSession, bool) {
	s, ok := c.Locals(sessionLocal).(session.UserSession)
	return s, ok
}
