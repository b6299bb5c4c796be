package account

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/bankportal/onboarding/internal/notification"
)

func newTestSandbox() (*Sandbox, *notification.Recorder) {
	rec := &notification.Recorder{}
	sb := NewSandbox(DemoIssuer{}, rec, true)
	sb.cost = bcrypt.MinCost
	return sb, rec
}

func sampleRequest() CreateAccountRequest {
	return CreateAccountRequest{
		FirstName:   "Amira",
		LastName:    "Ben Salah",
		DateOfBirth: "1990-04-12",
		Nationality: "tunisienne",
		CIN:         "12345678",
		Email:       "amira@example.tn",
		PhoneNumber: "+216 20 123 456",
		AccountType: "courant",
	}
}

func TestSandboxAccountLifecycle(t *testing.T) {
	sb, rec := newTestSandbox()
	ctx := context.Background()

	dispatch, err := sb.SendOTP(ctx, "+216 20 123 456")
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if dispatch.Code == "" {
		t.Fatal("expected exposed otp code")
	}
	if msg, ok := rec.Last(notification.KindOTP); !ok || msg.Destination != "+21620123456" {
		t.Fatalf("expected otp notification, got %+v", msg)
	}

	req := sampleRequest()
	req.OTPCode = dispatch.Code
	info, err := sb.CreateAccount(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	profile, err := sb.Login(ctx, LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: info.TemporaryPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if profile.IsTemporaryPasswordUsed || profile.IsAccountActivated {
		t.Fatalf("unexpected flags: %+v", profile)
	}

	if _, err := sb.ChangePassword(ctx, ChangePasswordRequest{AccountNumber: info.AccountNumber, NewPassword: "nouveau-secret", ConfirmPassword: "nouveau-secret"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := sb.Login(ctx, LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: info.TemporaryPassword}); err == nil {
		t.Fatal("expected temporary password to be rejected after change")
	}

	if _, err := sb.Activate(ctx, info.AccountNumber, info.ActivationCode); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := sb.Activate(ctx, info.AccountNumber, info.ActivationCode); Message(err) != "Compte déjà activé" {
		t.Fatalf("expected already activated, got %v", err)
	}

	profile, err = sb.Login(ctx, LoginRequest{AccountNumber: info.AccountNumber, AccessCode: info.AccessCode, Password: "nouveau-secret"})
	if err != nil {
		t.Fatalf("login after change: %v", err)
	}
	if !profile.IsTemporaryPasswordUsed || !profile.IsAccountActivated {
		t.Fatalf("expected flags set, got %+v", profile)
	}

	user, err := sb.UserInfo(ctx, info.AccountNumber)
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if user.AccountInfo.IBAN != info.IBAN || user.PersonalInfo.CIN != "12345678" {
		t.Fatalf("unexpected user info: %+v", user)
	}
}

func TestSandboxRejectsWrongOTP(t *testing.T) {
	sb, _ := newTestSandbox()
	ctx := context.Background()

	if _, err := sb.SendOTP(ctx, "+21620123456"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	req := sampleRequest()
	req.OTPCode = "not-it"
	_, err := sb.CreateAccount(ctx, req)
	var failure *Failure
	if !errors.As(err, &failure) || failure.Message != "Code OTP incorrect" {
		t.Fatalf("expected otp failure, got %v", err)
	}
}

func TestSandboxRejectsDuplicateCIN(t *testing.T) {
	sb, _ := newTestSandbox()
	ctx := context.Background()

	if _, err := sb.CreateAccount(ctx, sampleRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sb.CreateAccount(ctx, sampleRequest()); Message(err) != "Un compte existe déjà avec ce numéro CIN" {
		t.Fatalf("expected duplicate failure, got %v", err)
	}
}

func TestSandboxPasswordRules(t *testing.T) {
	sb, _ := newTestSandbox()
	ctx := context.Background()
	info, err := sb.CreateAccount(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = sb.ChangePassword(ctx, ChangePasswordRequest{AccountNumber: info.AccountNumber, NewPassword: "abcdefgh", ConfirmPassword: "abcdefgx"})
	if Message(err) != "Les mots de passe ne correspondent pas." {
		t.Fatalf("expected mismatch, got %v", err)
	}
	_, err = sb.ChangePassword(ctx, ChangePasswordRequest{AccountNumber: info.AccountNumber, NewPassword: "abc", ConfirmPassword: "abc"})
	if err == nil {
		t.Fatal("expected short password rejection")
	}
}

func TestSandboxUpload(t *testing.T) {
	sb, _ := newTestSandbox()
	ctx := context.Background()

	p, err := sb.UploadFile(ctx, CategorySignature, Upload{Filename: "signature.png", ContentType: "image/png", Data: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(p, "sandbox/signature/") || !strings.HasSuffix(p, ".png") {
		t.Fatalf("unexpected path %s", p)
	}
	if _, ok := sb.File(p); !ok {
		t.Fatal("expected stored file")
	}
	if _, err := sb.UploadFile(ctx, "selfie", Upload{Data: []byte{1}}); err == nil {
		t.Fatal("expected unknown category rejection")
	}
}
