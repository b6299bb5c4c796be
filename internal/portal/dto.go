package portal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoginRequest is the client-space login form. The password may be sent as
// temporaryPassword, as the first-login form does.
type LoginRequest struct {
	AccountNumber     string `json:"accountNumber" validate:"required,numeric"`
	AccessCode        string `json:"accessCode" validate:"required,numeric"`
	Password          string `json:"password" validate:"required_without=TemporaryPassword"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// Secret returns the submitted password.
func (r LoginRequest) Secret() string {
	if r.Password != "" {
		return r.Password
	}
	return r.TemporaryPassword
}

// ActivateRequest carries the activation code printed on the summary.
type ActivateRequest struct {
	ActivationCode string `json:"activationCode" validate:"required"`
}

// ChangePasswordRequest replaces the temporary password.
type ChangePasswordRequest struct {
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a request and returns French messages keyed by JSON field.
func check(req any) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": "Requête invalide"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Tag() == "required_without" {
			field = "password"
		}
		out[field] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "Ce champ est requis"
	case "numeric":
		return "Ce champ doit contenir uniquement des chiffres"
	case "min":
		return fmt.Sprintf("Doit contenir au moins %s caractères", fe.Param())
	default:
		return "Valeur invalide"
	}
}
