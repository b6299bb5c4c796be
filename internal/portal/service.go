package portal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/logging"
	"github.com/bankportal/onboarding/internal/session"
)

// Client-space pages returned as redirect hints.
const (
	RouteLogin          = "/client-space/login"
	RouteChangePassword = "/client-space/change-password"
	RouteActivate       = "/client-space/activate-account"
	RouteDashboard      = "/client-space/dashboard"
)

// ErrPasswordMismatch is returned when the confirmation differs.
var ErrPasswordMismatch = account.Reject("Les mots de passe ne correspondent pas.")

// ErrSessionExpired is returned when an operation needs a session and none
// is present.
var ErrSessionExpired = errors.New("portal session expired")

// ErrAlreadyActivated is returned when activating an active account.
var ErrAlreadyActivated = account.Reject("Compte déjà activé")

// RedirectError sends the caller to another client-space page.
type RedirectError struct {
	To     string
	Reason string
}

func (e *RedirectError) Error() string {
	return "redirect to " + e.To + ": " + e.Reason
}

// LoginOutcome is the session written after a successful login and the page
// the client should open next.
type LoginOutcome struct {
	Session  session.UserSession
	Message  string
	Redirect string
}

// UserView is the flattened profile rendered by the dashboard.
type UserView struct {
	AccountNumber         string    `json:"accountNumber"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Email                 string    `json:"email"`
	PhoneNumber           string    `json:"phoneNumber"`
	CIN                   string    `json:"cin"`
	DateOfBirth           string    `json:"dateOfBirth"`
	PlaceOfBirth          string    `json:"placeOfBirth"`
	Nationality           string    `json:"nationality"`
	AccountType           string    `json:"accountType"`
	IBAN                  string    `json:"iban"`
	AccountActivated      bool      `json:"accountActivated"`
	TemporaryPasswordUsed bool      `json:"temporaryPasswordUsed"`
	ActivationCode        string    `json:"activationCode"`
	ProfilePhotoPath      *string   `json:"profilePhotoPath"`
	SignaturePath         *string   `json:"signaturePath"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Dashboard is the client-space home.
type Dashboard struct {
	Session         session.UserSession `json:"session"`
	User            *UserView           `json:"userInfo"`
	NeedsActivation bool                `json:"needsActivation"`
}

// Service runs the client-space flows against the account backend. Session
// snapshots are passed in and returned; persisting them is up to the caller.
type Service struct {
	accounts account.Service
	logger   *slog.Logger
}

// NewService constructs the portal service.
func NewService(accounts account.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{accounts: accounts, logger: logger}
}

// Login authenticates and returns the session to store. The submitted
// password becomes the current password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginOutcome, error) {
	password := req.Secret()
	profile, err := s.accounts.Login(ctx, account.LoginRequest{
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		AccessCode:    strings.TrimSpace(req.AccessCode),
		Password:      password,
	})
	if err != nil {
		return LoginOutcome{}, err
	}
	out := LoginOutcome{
		Session:  session.FromLogin(profile, password),
		Message:  "Connexion réussie",
		Redirect: RouteDashboard,
	}
	if !profile.IsTemporaryPasswordUsed {
		out.Redirect = RouteChangePassword
	}
	s.logger.Info("client logged in", slog.String("account_number", profile.AccountNumber))
	return out, nil
}

// Activate submits the activation code for the session account.
func (s *Service) Activate(ctx context.Context, current session.UserSession, code string) (session.UserSession, account.Result, error) {
	if current.IsAccountActivated {
		return current, account.Result{}, ErrAlreadyActivated
	}
	res, err := s.accounts.Activate(ctx, current.AccountNumber, strings.TrimSpace(code))
	if err != nil {
		return current, account.Result{}, err
	}
	return current.WithActivation(), res, nil
}

// ChangePassword replaces the password of the session account. The
// confirmation is compared before the session is looked at.
func (s *Service) ChangePassword(ctx context.Context, sess *session.UserSession, req ChangePasswordRequest) (session.UserSession, account.Result, error) {
	if req.NewPassword != req.ConfirmPassword {
		return session.UserSession{}, account.Result{}, ErrPasswordMismatch
	}
	if session.StateOf(sess) == session.Anonymous {
		return session.UserSession{}, account.Result{}, ErrSessionExpired
	}
	current := *sess
	res, err := s.accounts.ChangePassword(ctx, account.ChangePasswordRequest{
		AccountNumber:   current.AccountNumber,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return current, account.Result{}, err
	}
	return current.WithPasswordChanged(req.NewPassword), res, nil
}

// Dashboard gates the home page on the session state and loads the profile.
// A profile that cannot be loaded leaves User nil instead of failing the page.
func (s *Service) Dashboard(ctx context.Context, current *session.UserSession) (Dashboard, error) {
	switch session.StateOf(current) {
	case session.Anonymous:
		return Dashboard{}, &RedirectError{To: RouteLogin, Reason: "Veuillez vous connecter"}
	case session.TemporaryPasswordActive:
		return Dashboard{}, &RedirectError{To: RouteChangePassword, Reason: "Veuillez changer votre mot de passe temporaire"}
	}

	out := Dashboard{Session: Public(*current), NeedsActivation: !current.IsAccountActivated}
	if current.AccountNumber == "" {
		return out, nil
	}
	info, err := s.accounts.UserInfo(ctx, current.AccountNumber)
	if err != nil {
		s.logger.Warn("load user info", slog.String("account_number", current.AccountNumber), slog.Any("error", err))
		return out, nil
	}
	out.User = viewOf(info)
	return out, nil
}

// Public strips the current password from a snapshot.
func Public(s session.UserSession) session.UserSession {
	s.CurrentPassword = ""
	return s
}

func viewOf(info account.UserInfo) *UserView {
	optional := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	p, a := info.PersonalInfo, info.AccountInfo
	return &UserView{
		AccountNumber:    a.AccountNumber,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		PhoneNumber:      p.PhoneNumber,
		CIN:              p.CIN,
		DateOfBirth:      p.DateOfBirth,
		PlaceOfBirth:     p.PlaceOfBirth,
		Nationality:      p.Nationality,
		AccountType:      a.AccountType,
		IBAN:             a.IBAN,
		AccountActivated: a.IsAccountActivated,
		// reaching the dashboard implies the temporary password was replaced
		TemporaryPasswordUsed: true,
		ActivationCode:        a.ActivationCode,
		ProfilePhotoPath:      optional(info.Biometrics.Photo),
		SignaturePath:         optional(info.Biometrics.Signature),
		CreatedAt:             info.History.CreatedAt,
		UpdatedAt:             info.History.UpdatedAt,
	}
}
