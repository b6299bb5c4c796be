package account

import (
	"context"
	"errors"
)

// UnavailableMessage is shown to users when the backend cannot be reached.
const UnavailableMessage = "Erreur de connexion au serveur"

// ErrUnavailable marks transport failures talking to the account backend.
var ErrUnavailable = errors.New("account backend unavailable")

// Failure is a business-rule rejection reported by the backend. Its message
// is shown to the user verbatim.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Reject builds a Failure with the given message.
func Reject(message string) error {
	return &Failure{Message: message}
}

// Message returns the user-facing text for an error returned by a Service.
func Message(err error) string {
	var failure *Failure
	if errors.As(err, &failure) && failure.Message != "" {
		return failure.Message
	}
	return UnavailableMessage
}

// Service is the account backend contract. Implementations never retry;
// callers surface failures and leave their own state unchanged.
type Service interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (AccountInfo, error)
	Login(ctx context.Context, req LoginRequest) (Profile, error)
	SendOTP(ctx context.Context, phoneNumber string) (OTPDispatch, error)
	Activate(ctx context.Context, accountNumber, activationCode string) (Result, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (Result, error)
	UserInfo(ctx context.Context, accountNumber string) (UserInfo, error)
	UploadFile(ctx context.Context, category string, file Upload) (string, error)
}

// ValidCategory reports whether the upload category is known.
func ValidCategory(category string) bool {
	switch category {
	case CategoryProfilePhoto, CategoryCINPhoto, CategorySignature, CategoryDocument:
		return true
	default:
		return false
	}
}
