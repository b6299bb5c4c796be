package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/account"
)

// ValidationMessage heads every 422 response.
const ValidationMessage = "Veuillez corriger les champs invalides"

// OK writes {success:true, ...payload}.
func OK(c *fiber.Ctx, status int, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// Invalid writes a 422 with field errors.
func Invalid(c *fiber.Ctx, errs map[string]string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"message": ValidationMessage,
		"errors":  errs,
	})
}

// Backend maps an account.Service error to an HTTP error. Business
// rejections keep the backend message; transport failures get the generic one.
func Backend(err error) error {
	var failure *account.Failure
	switch {
	case errors.As(err, &failure):
		return fiber.NewError(http.StatusBadRequest, account.Message(err))
	case errors.Is(err, account.ErrUnavailable):
		return fiber.NewError(http.StatusBadGateway, account.UnavailableMessage)
	default:
		return err
	}
}

// ErrorHandler renders every error as {success:false, message}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := "Erreur interne du serveur"

		var fe *fiber.Error
		if !errors.As(err, &fe) {
			fe, _ = Backend(err).(*fiber.Error)
		}
		if fe != nil {
			status = fe.Code
			message = fe.Message
		}

		if status >= http.StatusInternalServerError && logger != nil {
			requestID, _ := c.Locals("X-Request-ID").(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
	}
}
