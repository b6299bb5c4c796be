package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/portal"
)

// RegisterPortalRoutes wires the client space.
func RegisterPortalRoutes(r fiber.Router, h *portal.Handler, requireSession, rateLimiter fiber.Handler) {
	group := r.Group("/client-space")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/logout", h.Logout)
	group.Post("/activate", requireSession, h.Activate)
	group.Post("/change-password", h.ChangePassword)
	group.Get("/session", h.Session)
	group.Get("/dashboard", h.Dashboard)
}
