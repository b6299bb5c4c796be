package portal

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/middleware"
	"github.com/bankportal/onboarding/internal/respond"
	"github.com/bankportal/onboarding/internal/session"
)

// Handler exposes the client-space endpoints.
type Handler struct {
	service  *Service
	sessions session.Repository
}

// NewHandler constructs the client-space HTTP handler.
func NewHandler(service *Service, sessions session.Repository) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var redirect *RedirectError
	switch {
	case errors.As(err, &redirect):
		status := http.StatusForbidden
		if redirect.To == RouteLogin {
			status = http.StatusUnauthorized
		}
		return c.Status(status).JSON(fiber.Map{
			"success":  false,
			"message":  redirect.Reason,
			"redirect": redirect.To,
		})
	case errors.Is(err, ErrSessionExpired):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success":  false,
			"message":  middleware.SessionExpired,
			"redirect": RouteLogin,
		})
	default:
		return respond.Backend(err)
	}
}

// Login authenticates a client and opens the portal session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	if errs := check(req); errs != nil {
		return respond.Invalid(c, errs)
	}
	out, err := h.service.Login(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.Set(c, out.Session); err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, fiber.Map{
		"message":                 out.Message,
		"redirect":                out.Redirect,
		"isTemporaryPasswordUsed": out.Session.IsTemporaryPasswordUsed,
		"session":                 Public(out.Session),
	})
}

// Logout always leaves the client anonymous.
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.sessions.Delete(c)
	return respond.OK(c, http.StatusOK, fiber.Map{
		"message":  "Déconnexion réussie",
		"redirect": RouteLogin,
	})
}

// Session returns the current snapshot without the password, plus the
// account opened from this browser when its record cookie is present.
func (h *Handler) Session(c *fiber.Ctx) error {
	current := h.sessions.Get(c)
	state := session.StateOf(current)
	payload := fiber.Map{"state": state.String()}
	if state == session.Anonymous {
		payload["session"] = session.UserSession{LoggedIn: false}
	} else {
		payload["session"] = Public(*current)
	}
	if r := h.sessions.GetRecord(c); r != nil {
		payload["openedAccount"] = fiber.Map{
			"accountNumber": r.AccountNumber,
			"firstName":     r.FirstName,
			"lastName":      r.LastName,
			"accountType":   r.AccountType,
		}
	}
	return respond.OK(c, http.StatusOK, payload)
}

// Activate submits the activation code. It runs behind RequireSession.
func (h *Handler) Activate(c *fiber.Ctx) error {
	current, ok := middleware.CurrentSession(c)
	if !ok {
		return h.fail(c, ErrSessionExpired)
	}
	var req ActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	if errs := check(req); errs != nil {
		return respond.Invalid(c, errs)
	}
	next, res, err := h.service.Activate(c.UserContext(), current, req.ActivationCode)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.Set(c, next); err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, fiber.Map{
		"message":  res.Message,
		"redirect": RouteDashboard,
	})
}

// ChangePassword replaces the temporary password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	if req.NewPassword == req.ConfirmPassword {
		if errs := check(req); errs != nil {
			return respond.Invalid(c, errs)
		}
	}
	next, res, err := h.service.ChangePassword(c.UserContext(), h.sessions.Get(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.Set(c, next); err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, fiber.Map{
		"message":  res.Message,
		"redirect": RouteDashboard,
	})
}

// Dashboard renders the client home or a redirect hint.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	dash, err := h.service.Dashboard(c.UserContext(), h.sessions.Get(c))
	if err != nil {
		return h.fail(c, err)
	}
	payload := fiber.Map{"dashboard": dash}
	if dash.NeedsActivation {
		payload["activate"] = RouteActivate
	}
	return respond.OK(c, http.StatusOK, payload)
}
