package account

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bankportal/onboarding/internal/notification"
)

const minPasswordLength = 8

type sandboxAccount struct {
	info         AccountInfo
	personal     PersonalInfo
	accountType  string
	accessHash   []byte
	passwordHash []byte
	tempUsed     bool
	activated    bool
	photoPath    string
	signature    string
	createdAt    time.Time
	updatedAt    time.Time
}

// Sandbox is an in-process account backend. It keeps everything in memory and
// is meant for development and tests.
type Sandbox struct {
	issuer    CredentialIssuer
	notifier  notification.Notifier
	exposeOTP bool
	cost      int
	now       func() time.Time

	mu       sync.RWMutex
	accounts map[string]*sandboxAccount
	byCIN    map[string]string
	otps     map[string]string
	files    map[string]Upload
}

// NewSandbox builds a sandbox backend. When exposeOTP is set, SendOTP returns
// the issued code to the caller.
func NewSandbox(issuer CredentialIssuer, notifier notification.Notifier, exposeOTP bool) *Sandbox {
	if issuer == nil {
		issuer = SecureIssuer{}
	}
	return &Sandbox{
		issuer:    issuer,
		notifier:  notifier,
		exposeOTP: exposeOTP,
		cost:      bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
		accounts:  make(map[string]*sandboxAccount),
		byCIN:     make(map[string]string),
		otps:      make(map[string]string),
		files:     make(map[string]Upload),
	}
}

// CreateAccount issues credentials for a new holder.
func (s *Sandbox) CreateAccount(ctx context.Context, req CreateAccountRequest) (AccountInfo, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" ||
		strings.TrimSpace(req.CIN) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return AccountInfo{}, Reject("Données incomplètes")
	}

	s.mu.RLock()
	_, duplicate := s.byCIN[req.CIN]
	issued, hasOTP := s.otps[normalizePhone(req.PhoneNumber)]
	s.mu.RUnlock()
	if duplicate {
		return AccountInfo{}, Reject("Un compte existe déjà avec ce numéro CIN")
	}
	if hasOTP && issued != req.OTPCode {
		return AccountInfo{}, Reject("Code OTP incorrect")
	}

	info, err := s.issueUnique()
	if err != nil {
		return AccountInfo{}, err
	}
	accessHash, err := bcrypt.GenerateFromPassword([]byte(info.AccessCode), s.cost)
	if err != nil {
		return AccountInfo{}, err
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(info.TemporaryPassword), s.cost)
	if err != nil {
		return AccountInfo{}, err
	}

	now := s.now()
	acct := &sandboxAccount{
		info: info,
		personal: PersonalInfo{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			CIN:          req.CIN,
			DateOfBirth:  req.DateOfBirth,
			PlaceOfBirth: req.PlaceOfBirth,
			Nationality:  req.Nationality,
		},
		accountType:  req.AccountType,
		accessHash:   accessHash,
		passwordHash: passwordHash,
		photoPath:    req.ProfilePhotoPath,
		signature:    req.SignaturePath,
		createdAt:    now,
		updatedAt:    now,
	}

	s.mu.Lock()
	if _, exists := s.byCIN[req.CIN]; exists {
		s.mu.Unlock()
		return AccountInfo{}, Reject("Un compte existe déjà avec ce numéro CIN")
	}
	s.accounts[info.AccountNumber] = acct
	s.byCIN[req.CIN] = info.AccountNumber
	delete(s.otps, normalizePhone(req.PhoneNumber))
	s.mu.Unlock()

	s.notify(ctx, notification.Message{
		Kind:        notification.KindAccountCreated,
		Destination: req.Email,
		Body:        fmt.Sprintf("Compte %s ouvert. Code d'activation: %s", info.AccountNumber, info.ActivationCode),
	})
	return info, nil
}

func (s *Sandbox) issueUnique() (AccountInfo, error) {
	for range 5 {
		info, err := s.issuer.Issue()
		if err != nil {
			return AccountInfo{}, fmt.Errorf("issue credentials: %w", err)
		}
		s.mu.RLock()
		_, taken := s.accounts[info.AccountNumber]
		s.mu.RUnlock()
		if !taken {
			return info, nil
		}
	}
	return AccountInfo{}, fmt.Errorf("issue credentials: account number space exhausted")
}

// Login verifies the account number, access code and current password.
func (s *Sandbox) Login(_ context.Context, req LoginRequest) (Profile, error) {
	s.mu.RLock()
	stored, ok := s.accounts[req.AccountNumber]
	var acct sandboxAccount
	if ok {
		acct = *stored
	}
	s.mu.RUnlock()
	if !ok {
		return Profile{}, Reject("Identifiants incorrects")
	}
	if err := bcrypt.CompareHashAndPassword(acct.accessHash, []byte(req.AccessCode)); err != nil {
		return Profile{}, Reject("Identifiants incorrects")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)); err != nil {
		return Profile{}, Reject("Identifiants incorrects")
	}

	return Profile{
		FirstName:               acct.personal.FirstName,
		LastName:                acct.personal.LastName,
		AccountNumber:           acct.info.AccountNumber,
		AccountType:             acct.accountType,
		Email:                   acct.personal.Email,
		IsAccountActivated:      acct.activated,
		IsTemporaryPasswordUsed: acct.tempUsed,
		ActivationCode:          acct.info.ActivationCode,
	}, nil
}

// SendOTP issues a phone verification code and hands it to the notifier.
func (s *Sandbox) SendOTP(ctx context.Context, phoneNumber string) (OTPDispatch, error) {
	phone := normalizePhone(phoneNumber)
	if phone == "" {
		return OTPDispatch{}, Reject("Le numéro de téléphone est requis")
	}
	code, err := s.issuer.IssueOTP()
	if err != nil {
		return OTPDispatch{}, fmt.Errorf("issue otp: %w", err)
	}

	s.mu.Lock()
	s.otps[phone] = code
	s.mu.Unlock()

	s.notify(ctx, notification.Message{Kind: notification.KindOTP, Destination: phone, Body: code})

	dispatch := OTPDispatch{Message: "Code OTP envoyé"}
	if s.exposeOTP {
		dispatch.Code = code
	}
	return dispatch, nil
}

// Activate marks the account active when the activation code matches.
func (s *Sandbox) Activate(ctx context.Context, accountNumber, activationCode string) (Result, error) {
	s.mu.Lock()
	acct, ok := s.accounts[accountNumber]
	if !ok {
		s.mu.Unlock()
		return Result{}, Reject("Compte introuvable")
	}
	if acct.activated {
		s.mu.Unlock()
		return Result{}, Reject("Compte déjà activé")
	}
	if acct.info.ActivationCode != strings.TrimSpace(activationCode) {
		s.mu.Unlock()
		return Result{}, Reject("Code d'activation incorrect")
	}
	acct.activated = true
	acct.updatedAt = s.now()
	email := acct.personal.Email
	s.mu.Unlock()

	s.notify(ctx, notification.Message{Kind: notification.KindAccountActivated, Destination: email, Body: accountNumber})
	return Result{Message: "Compte activé avec succès"}, nil
}

// ChangePassword replaces the current password.
func (s *Sandbox) ChangePassword(_ context.Context, req ChangePasswordRequest) (Result, error) {
	if req.NewPassword != req.ConfirmPassword {
		return Result{}, Reject("Les mots de passe ne correspondent pas.")
	}
	if len(req.NewPassword) < minPasswordLength {
		return Result{}, Reject(fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[req.AccountNumber]
	if !ok {
		return Result{}, Reject("Compte introuvable")
	}
	acct.passwordHash = hash
	acct.tempUsed = true
	acct.updatedAt = s.now()
	return Result{Message: "Mot de passe modifié avec succès"}, nil
}

// UserInfo returns the dashboard profile of an account.
func (s *Sandbox) UserInfo(_ context.Context, accountNumber string) (UserInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountNumber]
	if !ok {
		return UserInfo{}, Reject("Compte introuvable")
	}
	return UserInfo{
		PersonalInfo: acct.personal,
		AccountInfo: AccountState{
			AccountNumber:      acct.info.AccountNumber,
			AccountType:        acct.accountType,
			IBAN:               acct.info.IBAN,
			IsAccountActivated: acct.activated,
			ActivationCode:     acct.info.ActivationCode,
		},
		Biometrics: Biometrics{Photo: acct.photoPath, Signature: acct.signature},
		History:    History{CreatedAt: acct.createdAt, UpdatedAt: acct.updatedAt},
	}, nil
}

// UploadFile keeps the file in memory and returns its sandbox path.
func (s *Sandbox) UploadFile(_ context.Context, category string, file Upload) (string, error) {
	if !ValidCategory(category) {
		return "", Reject("Type de fichier inconnu")
	}
	if len(file.Data) == 0 {
		return "", Reject("Fichier vide")
	}
	p := "sandbox/" + category + "/" + uuid.NewString() + path.Ext(file.Filename)

	s.mu.Lock()
	s.files[p] = file
	s.mu.Unlock()
	return p, nil
}

// File returns an uploaded file by path.
func (s *Sandbox) File(p string) (Upload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[p]
	return f, ok
}

func (s *Sandbox) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, msg)
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
