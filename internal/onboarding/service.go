package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/logging"
)

var (
	// ErrStepOrder is returned when an operation does not belong to the
	// current step.
	ErrStepOrder = errors.New("operation not available at the current step")
	// ErrOTPCooldown is returned when a code is requested again too soon.
	ErrOTPCooldown = errors.New("otp resend cooldown active")
	// ErrGenerationInProgress is returned while another request is creating
	// the account of the same draft.
	ErrGenerationInProgress = errors.New("account generation already in progress")
	// ErrAccountLocked is returned when editing a draft whose account exists.
	ErrAccountLocked = errors.New("account already generated")
	// ErrFieldLocked is returned when a patch touches a step already passed.
	ErrFieldLocked = errors.New("field belongs to a completed step")
)

// ValidationError carries the field errors that blocked an operation.
type ValidationError struct {
	Step   Step
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d has %d invalid fields", e.Step, len(e.Errors))
}

func invalid(step Step, field, message string) error {
	return &ValidationError{Step: step, Errors: FieldErrors{field: message}}
}

// Options tunes OTP behaviour.
type Options struct {
	// ExposeOTP returns issued codes to the caller. Test builds only.
	ExposeOTP bool
	// FallbackOTP is used when the backend cannot be reached.
	FallbackOTP    string
	ResendCooldown time.Duration
}

// OTPIssue describes a sent code.
type OTPIssue struct {
	Code     string
	Message  string
	ResendIn time.Duration
}

// Acknowledgement captures the three contract checkboxes.
type Acknowledgement struct {
	Read           bool `json:"read"`
	AcceptTerms    bool `json:"acceptTerms"`
	DataProcessing bool `json:"acceptDataProcessing"`
}

// Service drives wizard drafts through the steps.
type Service struct {
	repo     Repository
	accounts account.Service
	seq      *Sequencer
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// generationLockTTL bounds how long a crashed request can block generation.
const generationLockTTL = 2 * time.Minute

// NewService wires the draft store to the account backend.
func NewService(repo Repository, accounts account.Service, opts Options, logger *slog.Logger) *Service {
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = time.Minute
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:     repo,
		accounts: accounts,
		seq:      NewSequencer(nil),
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new draft at step 1.
func (s *Service) Start(ctx context.Context) (Draft, error) {
	now := s.now()
	d := Draft{ID: uuid.NewString(), Step: StepPersonalInfo, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Get loads a draft.
func (s *Service) Get(ctx context.Context, id string) (Draft, error) {
	if id == "" {
		return Draft{}, ErrDraftNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) save(ctx context.Context, d Draft) (Draft, error) {
	d.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *Service) load(ctx context.Context, id string, step Step) (Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if step != 0 && d.Step != step {
		return Draft{}, ErrStepOrder
	}
	return d, nil
}

// Update merges a partial form into the draft. Fields of a step already
// passed are editable only after going back to it. Changing the phone number
// discards any issued OTP.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Draft, error) {
	d, err := s.load(ctx, id, 0)
	if err != nil {
		return Draft{}, err
	}
	if d.Form.AccountInfo != nil {
		return Draft{}, ErrAccountLocked
	}
	if owner := p.Owner(); owner != 0 && owner < d.Step {
		return Draft{}, ErrFieldLocked
	}
	phoneChanged := p.PhoneNumber != nil && compactPhone(*p.PhoneNumber) != compactPhone(d.Form.PhoneNumber)
	d.Form.Merge(p)
	if phoneChanged {
		d.IssuedOTP = ""
		d.OTPSentAt = time.Time{}
		d.Form.OTPCode = ""
	}
	return s.save(ctx, d)
}

// Next advances the draft when its current step is satisfied.
func (s *Service) Next(ctx context.Context, id string) (Draft, error) {
	return s.Advance(ctx, id, nil)
}

// Advance is Next with a hook run on the advanced draft before it is saved.
// A hook error leaves the stored draft on its previous step.
func (s *Service) Advance(ctx context.Context, id string, beforeSave func(Draft) error) (Draft, error) {
	d, err := s.load(ctx, id, 0)
	if err != nil {
		return Draft{}, err
	}
	errs, err := s.seq.Advance(&d)
	if err != nil {
		return Draft{}, err
	}
	if len(errs) > 0 {
		return Draft{}, &ValidationError{Step: d.Step, Errors: errs}
	}
	if beforeSave != nil {
		if err := beforeSave(d); err != nil {
			return Draft{}, err
		}
	}
	return s.save(ctx, d)
}

// Back moves the draft one step back. It is a no-op on step 1.
func (s *Service) Back(ctx context.Context, id string) (Draft, error) {
	d, err := s.load(ctx, id, 0)
	if err != nil {
		return Draft{}, err
	}
	if !s.seq.Retreat(&d) {
		return d, nil
	}
	return s.save(ctx, d)
}

// AttachDocument validates a file, uploads it and stores it in a slot.
func (s *Service) AttachDocument(ctx context.Context, id, slot string, file account.Upload) (Draft, error) {
	d, err := s.load(ctx, id, StepDocuments)
	if err != nil {
		return Draft{}, err
	}
	target := d.Form.Documents.slot(slot)
	if target == nil {
		return Draft{}, invalid(StepDocuments, "slot", "Emplacement de document inconnu")
	}
	kind, err := CheckDocument(file.ContentType, file.Data)
	if err != nil {
		return Draft{}, invalid(StepDocuments, slot, err.Error())
	}

	category := account.CategoryDocument
	if slot == SlotCINFront || slot == SlotCINBack {
		category = account.CategoryCINPhoto
	}
	name := strings.TrimSpace(file.Filename)
	if name == "" {
		name = slot + extensionFor(kind)
	}
	path, err := s.accounts.UploadFile(ctx, category, account.Upload{Filename: name, ContentType: kind, Data: file.Data})
	if err != nil {
		return Draft{}, err
	}

	*target = &Document{Filename: name, ContentType: kind, Size: len(file.Data), Path: path}
	return s.save(ctx, d)
}

// RemoveDocument empties a slot.
func (s *Service) RemoveDocument(ctx context.Context, id, slot string) (Draft, error) {
	d, err := s.load(ctx, id, StepDocuments)
	if err != nil {
		return Draft{}, err
	}
	target := d.Form.Documents.slot(slot)
	if target == nil {
		return Draft{}, invalid(StepDocuments, "slot", "Emplacement de document inconnu")
	}
	*target = nil
	return s.save(ctx, d)
}

// SetPhoto stores the captured photo.
func (s *Service) SetPhoto(ctx context.Context, id, dataURL string) (Draft, error) {
	d, err := s.load(ctx, id, StepBiometrics)
	if err != nil {
		return Draft{}, err
	}
	if _, err := ParseDataURL(dataURL); err != nil {
		return Draft{}, invalid(StepBiometrics, "photo", err.Error())
	}
	d.Form.Biometrics.Photo = dataURL
	d.Form.Biometrics.PhotoPath = ""
	return s.save(ctx, d)
}

// SetSignature stores the drawn signature.
func (s *Service) SetSignature(ctx context.Context, id, dataURL string) (Draft, error) {
	d, err := s.load(ctx, id, StepBiometrics)
	if err != nil {
		return Draft{}, err
	}
	if _, err := ParseDataURL(dataURL); err != nil {
		return Draft{}, invalid(StepBiometrics, "signature", err.Error())
	}
	d.Form.Biometrics.Signature = dataURL
	d.Form.Biometrics.SignaturePath = ""
	return s.save(ctx, d)
}

// ClearSignature removes the drawn signature.
func (s *Service) ClearSignature(ctx context.Context, id string) (Draft, error) {
	d, err := s.load(ctx, id, StepBiometrics)
	if err != nil {
		return Draft{}, err
	}
	d.Form.Biometrics.Signature = ""
	d.Form.Biometrics.SignaturePath = ""
	return s.save(ctx, d)
}

// ResendIn returns how long until a new code may be requested.
func (s *Service) ResendIn(d Draft) time.Duration {
	if !d.OTPSent() {
		return 0
	}
	left := s.opts.ResendCooldown - s.now().Sub(d.OTPSentAt)
	if left < 0 {
		return 0
	}
	return left
}

// SendOTP requests a verification code for the draft phone number. A resend
// clears the previously submitted code.
func (s *Service) SendOTP(ctx context.Context, id string) (Draft, OTPIssue, error) {
	d, err := s.load(ctx, id, StepOTP)
	if err != nil {
		return Draft{}, OTPIssue{}, err
	}
	if s.ResendIn(d) > 0 {
		return Draft{}, OTPIssue{ResendIn: s.ResendIn(d)}, ErrOTPCooldown
	}

	message := "Code OTP envoyé"
	dispatch, err := s.accounts.SendOTP(ctx, compactPhone(d.Form.PhoneNumber))
	if err == nil && dispatch.Code == "" {
		// a code the wizard cannot compare against is never accepted
		err = fmt.Errorf("otp dispatch without code: %w", account.ErrUnavailable)
	}
	var code string
	switch {
	case err == nil:
		code = dispatch.Code
		if dispatch.Message != "" {
			message = dispatch.Message
		}
	case errors.Is(err, account.ErrUnavailable) && s.opts.FallbackOTP != "":
		s.logger.Warn("otp backend unavailable, using fallback code", slog.String("wizard_id", d.ID), slog.Any("error", err))
		code = s.opts.FallbackOTP
	default:
		return Draft{}, OTPIssue{}, err
	}

	d.IssuedOTP = code
	d.OTPSentAt = s.now()
	d.Form.OTPCode = ""
	d, err = s.save(ctx, d)
	if err != nil {
		return Draft{}, OTPIssue{}, err
	}

	issue := OTPIssue{Message: message, ResendIn: s.opts.ResendCooldown}
	if s.opts.ExposeOTP {
		issue.Code = code
	}
	return d, issue, nil
}

// VerifyOTP checks the submitted code and advances on success. A wrong code
// leaves the draft unchanged.
func (s *Service) VerifyOTP(ctx context.Context, id, code string) (Draft, error) {
	d, err := s.load(ctx, id, StepOTP)
	if err != nil {
		return Draft{}, err
	}
	d.Form.OTPCode = strings.TrimSpace(code)
	errs, err := s.seq.Advance(&d)
	if err != nil {
		return Draft{}, err
	}
	if len(errs) > 0 {
		return Draft{}, &ValidationError{Step: StepOTP, Errors: errs}
	}
	return s.save(ctx, d)
}

// SignContract records the signature once all acknowledgements are given
// and advances.
func (s *Service) SignContract(ctx context.Context, id string, ack Acknowledgement) (Draft, error) {
	d, err := s.load(ctx, id, StepContract)
	if err != nil {
		return Draft{}, err
	}
	errs := FieldErrors{}
	if !ack.Read {
		errs["read"] = "Veuillez lire le contrat"
	}
	if !ack.AcceptTerms {
		errs["acceptTerms"] = "Vous devez accepter les conditions générales"
	}
	if !ack.DataProcessing {
		errs["acceptDataProcessing"] = "Vous devez accepter le traitement de vos données"
	}
	if len(errs) > 0 {
		return Draft{}, &ValidationError{Step: StepContract, Errors: errs}
	}

	d.Form.ContractSigned = true
	if errs, err := s.seq.Advance(&d); err != nil || len(errs) > 0 {
		if err == nil {
			err = &ValidationError{Step: StepContract, Errors: errs}
		}
		return Draft{}, err
	}
	return s.save(ctx, d)
}

// GenerateAccount creates the account once. Later calls return the stored
// credentials without contacting the backend.
func (s *Service) GenerateAccount(ctx context.Context, id string) (Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d.Form.AccountInfo != nil {
		return d, nil
	}
	if d.Step != StepAccountGeneration {
		return Draft{}, ErrStepOrder
	}
	if step, errs := s.seq.ValidateThrough(StepAccountGeneration, d); len(errs) > 0 {
		return Draft{}, &ValidationError{Step: step, Errors: errs}
	}

	locked, err := s.repo.Lock(ctx, id, generationLockTTL)
	if err != nil {
		return Draft{}, err
	}
	if !locked {
		return Draft{}, ErrGenerationInProgress
	}
	defer s.unlock(ctx, id)

	// another request may have finished between the first read and the lock
	if d, err = s.Get(ctx, id); err != nil {
		return Draft{}, err
	}
	if d.Form.AccountInfo != nil {
		return d, nil
	}

	if err := s.uploadBiometrics(ctx, &d); err != nil {
		return Draft{}, err
	}

	info, err := s.accounts.CreateAccount(ctx, createRequest(d))
	if err != nil {
		return Draft{}, err
	}
	d.Form.AccountInfo = &info
	s.logger.Info("account generated", slog.String("wizard_id", d.ID), slog.String("account_type", d.Form.AccountType))
	return s.save(ctx, d)
}

func (s *Service) uploadBiometrics(ctx context.Context, d *Draft) error {
	b := &d.Form.Biometrics
	if b.PhotoPath == "" {
		p, err := s.uploadImage(ctx, account.CategoryProfilePhoto, "photo", b.Photo)
		if err != nil {
			return err
		}
		b.PhotoPath = p
	}
	if b.SignaturePath == "" {
		p, err := s.uploadImage(ctx, account.CategorySignature, "signature", b.Signature)
		if err != nil {
			return err
		}
		b.SignaturePath = p
	}
	return nil
}

func (s *Service) uploadImage(ctx context.Context, category, name, dataURL string) (string, error) {
	img, err := ParseDataURL(dataURL)
	if err != nil {
		return "", invalid(StepBiometrics, name, err.Error())
	}
	return s.accounts.UploadFile(ctx, category, account.Upload{
		Filename:    name + extensionFor(img.ContentType),
		ContentType: img.ContentType,
		Data:        img.Data,
	})
}

func createRequest(d Draft) account.CreateAccountRequest {
	f := d.Form
	req := account.CreateAccountRequest{
		FirstName:        strings.TrimSpace(f.FirstName),
		LastName:         strings.TrimSpace(f.LastName),
		DateOfBirth:      f.DateOfBirth,
		PlaceOfBirth:     strings.TrimSpace(f.PlaceOfBirth),
		Nationality:      f.Nationality,
		CIN:              strings.TrimSpace(f.CIN),
		Email:            f.Email,
		PhoneNumber:      compactPhone(f.PhoneNumber),
		AccountType:      f.AccountType,
		OTPCode:          f.OTPCode,
		ProfilePhotoPath: f.Biometrics.PhotoPath,
		SignaturePath:    f.Biometrics.SignaturePath,
	}
	if doc := f.Documents.CINFront; doc != nil {
		req.CINPhotoPath = doc.Path
	}
	for _, doc := range []*Document{f.Documents.ProofOfAddress, f.Documents.ProofOfIncome} {
		if doc != nil {
			req.AdditionalDocumentsPath = doc.Path
			break
		}
	}
	return req
}

func (s *Service) unlock(ctx context.Context, id string) {
	if err := s.repo.Unlock(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("release generation lock", slog.String("wizard_id", id), slog.Any("error", err))
	}
}

func compactPhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
