package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/notification"
	"github.com/bankportal/onboarding/internal/session"
)

func newSandbox(t *testing.T) (*account.Sandbox, account.AccountInfo) {
	t.Helper()
	sandbox := account.NewSandbox(account.DemoIssuer{}, &notification.Recorder{}, true)
	info, err := sandbox.CreateAccount(context.Background(), account.CreateAccountRequest{
		FirstName:   "Amira",
		LastName:    "Ben Salah",
		CIN:         "12345678",
		PhoneNumber: "+21620123456",
		Email:       "amira@example.tn",
		AccountType: "courant",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return sandbox, info
}

func TestLoginWithTemporaryPassword(t *testing.T) {
	sandbox, info := newSandbox(t)
	svc := NewService(sandbox, nil)

	out, err := svc.Login(context.Background(), LoginRequest{
		AccountNumber:     info.AccountNumber,
		AccessCode:        info.AccessCode,
		TemporaryPassword: info.TemporaryPassword,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.Redirect != RouteChangePassword {
		t.Fatalf("expected change-password redirect, got %s", out.Redirect)
	}
	if out.Session.CurrentPassword != info.TemporaryPassword || session.StateOf(&out.Session) != session.TemporaryPasswordActive {
		t.Fatalf("unexpected session %+v", out.Session)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: "wrong"}); account.Message(err) != "Identifiants incorrects" {
		t.Fatalf("expected rejected login, got %v", err)
	}
}

func TestChangePasswordChecksMismatchFirst(t *testing.T) {
	sandbox, _ := newSandbox(t)
	svc := NewService(sandbox, nil)

	_, _, err := svc.ChangePassword(context.Background(), nil, ChangePasswordRequest{NewPassword: "abcdefgh", ConfirmPassword: "abcdefgX"})
	if !errors.Is(err, ErrPasswordMismatch) || account.Message(err) != "Les mots de passe ne correspondent pas." {
		t.Fatalf("expected mismatch, got %v", err)
	}
	_, _, err = svc.ChangePassword(context.Background(), nil, ChangePasswordRequest{NewPassword: "abcdefgh", ConfirmPassword: "abcdefgh"})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestPortalLifecycle(t *testing.T) {
	sandbox, info := newSandbox(t)
	svc := NewService(sandbox, nil)
	ctx := context.Background()

	out, err := svc.Login(ctx, LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: info.TemporaryPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	current := out.Session

	var redirect *RedirectError
	if _, err := svc.Dashboard(ctx, &current); !errors.As(err, &redirect) || redirect.To != RouteChangePassword {
		t.Fatalf("expected change-password redirect, got %v", err)
	}

	current, res, err := svc.ChangePassword(ctx, &current, ChangePasswordRequest{NewPassword: "n0uveauMdp", ConfirmPassword: "n0uveauMdp"})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if res.Message != "Mot de passe modifié avec succès" || current.CurrentPassword != "n0uveauMdp" || session.StateOf(&current) != session.PasswordSet {
		t.Fatalf("unexpected result %+v %+v", res, current)
	}

	if _, _, err := svc.Activate(ctx, current, "WRONG123"); account.Message(err) != "Code d'activation incorrect" {
		t.Fatalf("expected wrong code, got %v", err)
	}
	current, _, err = svc.Activate(ctx, current, info.ActivationCode)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if session.StateOf(&current) != session.Activated {
		t.Fatalf("expected activated, got %s", session.StateOf(&current))
	}
	if _, _, err := svc.Activate(ctx, current, info.ActivationCode); !errors.Is(err, ErrAlreadyActivated) {
		t.Fatalf("expected already activated, got %v", err)
	}

	dash, err := svc.Dashboard(ctx, &current)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Session.CurrentPassword != "" {
		t.Fatal("dashboard must not expose the password")
	}
	if dash.User == nil || dash.User.IBAN != info.IBAN || !dash.User.AccountActivated || !dash.User.TemporaryPasswordUsed {
		t.Fatalf("unexpected user view %+v", dash.User)
	}
	if dash.NeedsActivation {
		t.Fatal("account is active")
	}

	if _, err := svc.Login(ctx, LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: "n0uveauMdp"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestDashboardAnonymous(t *testing.T) {
	svc := NewService(account.NewSandbox(account.DemoIssuer{}, nil, false), nil)
	var redirect *RedirectError
	if _, err := svc.Dashboard(context.Background(), nil); !errors.As(err, &redirect) || redirect.To != RouteLogin {
		t.Fatalf("expected login redirect, got %v", err)
	}
}

func TestCheckMessages(t *testing.T) {
	errs := check(LoginRequest{AccountNumber: "abc"})
	if errs["accountNumber"] != "Ce champ doit contenir uniquement des chiffres" {
		t.Fatalf("unexpected account number error %q", errs["accountNumber"])
	}
	if errs["accessCode"] != "Ce champ est requis" || errs["password"] != "Ce champ est requis" {
		t.Fatalf("unexpected errors %v", errs)
	}
	if errs := check(LoginRequest{AccountNumber: "1", AccessCode: "2", TemporaryPassword: "x"}); errs != nil {
		t.Fatalf("temporaryPassword should satisfy the password rule, got %v", errs)
	}
	if errs := check(ChangePasswordRequest{NewPassword: "short", ConfirmPassword: "short"}); errs["newPassword"] != "Doit contenir au moins 8 caractères" {
		t.Fatalf("unexpected errors %v", errs)
	}
}
