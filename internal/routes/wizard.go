package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/onboarding"
)

// RegisterWizardRoutes wires the account opening wizard.
func RegisterWizardRoutes(r fiber.Router, h *onboarding.Handler) {
	group := r.Group("/wizard")
	group.Post("", h.Start)
	group.Get("", h.Show)
	group.Patch("/form", h.Update)
	group.Post("/next", h.Next)
	group.Post("/back", h.Back)

	group.Put("/documents/:slot", h.PutDocument)
	group.Delete("/documents/:slot", h.DeleteDocument)

	group.Put("/biometrics/photo", h.PutPhoto)
	group.Put("/biometrics/signature", h.PutSignature)
	group.Delete("/biometrics/signature", h.DeleteSignature)

	group.Post("/otp/send", h.SendOTP)
	group.Post("/otp/verify", h.VerifyOTP)

	group.Post("/contract/sign", h.SignContract)
	group.Get("/contract.pdf", h.ContractPDF)
	group.Get("/contract.txt", h.ContractText)

	group.Post("/account", h.GenerateAccount)
	group.Get("/summary.txt", h.Summary)
}
