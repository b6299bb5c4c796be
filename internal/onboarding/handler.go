package onboarding

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/contract"
	"github.com/bankportal/onboarding/internal/respond"
	"github.com/bankportal/onboarding/internal/session"
)

// CookieName holds the id of the wizard draft in progress.
const CookieName = "wizardId"

// Handler exposes the wizard endpoints.
type Handler struct {
	service   *Service
	sessions  session.Repository
	cookieTTL time.Duration
	secure    bool
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler constructs the wizard HTTP handler.
func NewHandler(service *Service, sessions session.Repository, cookieTTL time.Duration, secure bool, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		cookieTTL: cookieTTL,
		secure:    secure,
		logger:    logger,
		now:       time.Now,
	}
}

type view struct {
	ID          string   `json:"id"`
	Step        Step     `json:"step"`
	StepLabel   string   `json:"stepLabel"`
	TotalSteps  int      `json:"totalSteps"`
	Form        FormData `json:"form"`
	OTPSent     bool     `json:"otpSent"`
	OTPResendIn int      `json:"otpResendIn"`
}

func (h *Handler) view(d Draft) view {
	return view{
		ID:          d.ID,
		Step:        d.Step,
		StepLabel:   d.Step.Label(),
		TotalSteps:  TotalSteps,
		Form:        d.Form,
		OTPSent:     d.OTPSent(),
		OTPResendIn: int(h.service.ResendIn(d).Round(time.Second).Seconds()),
	}
}

func (h *Handler) render(c *fiber.Ctx, d Draft, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	return respond.OK(c, http.StatusOK, fiber.Map{"wizard": h.view(d)})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return respond.Invalid(c, verr.Errors)
	case errors.Is(err, ErrDraftNotFound):
		return fiber.NewError(http.StatusNotFound, "Aucun dossier d'ouverture en cours")
	case errors.Is(err, ErrStepOrder):
		return fiber.NewError(http.StatusConflict, "Action non disponible à cette étape")
	case errors.Is(err, ErrTerminalStep):
		return fiber.NewError(http.StatusConflict, "Le dossier est déjà finalisé")
	case errors.Is(err, ErrOTPCooldown):
		return fiber.NewError(http.StatusTooManyRequests, "Veuillez patienter avant de renvoyer le code")
	case errors.Is(err, ErrGenerationInProgress):
		return fiber.NewError(http.StatusConflict, "Création du compte en cours")
	case errors.Is(err, ErrAccountLocked):
		return fiber.NewError(http.StatusConflict, "Le compte a déjà été généré")
	case errors.Is(err, ErrFieldLocked):
		return fiber.NewError(http.StatusConflict, "Revenez à l'étape concernée pour modifier ce champ")
	default:
		return respond.Backend(err)
	}
}

func (h *Handler) draftID(c *fiber.Ctx) string {
	return c.Cookies(CookieName)
}

// Start opens a new draft and binds it to the browser.
func (h *Handler) Start(c *fiber.Ctx) error {
	d, err := h.service.Start(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	session.WriteCookie(c, CookieName, d.ID, h.cookieTTL, h.secure)
	return respond.OK(c, http.StatusCreated, fiber.Map{"wizard": h.view(d)})
}

// Show returns the current draft.
func (h *Handler) Show(c *fiber.Ctx) error {
	d, err := h.service.Get(c.UserContext(), h.draftID(c))
	return h.render(c, d, err)
}

// Update merges a partial form.
func (h *Handler) Update(c *fiber.Ctx) error {
	var p Patch
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	d, err := h.service.Update(c.UserContext(), h.draftID(c), p)
	return h.render(c, d, err)
}

// Next advances the draft. Reaching the confirmation step opens the client
// session.
func (h *Handler) Next(c *fiber.Ctx) error {
	d, err := h.service.Advance(c.UserContext(), h.draftID(c), func(next Draft) error {
		if next.Step == StepConfirmation && next.Form.AccountInfo != nil {
			return h.openSession(c, next)
		}
		return nil
	})
	return h.render(c, d, err)
}

func (h *Handler) openSession(c *fiber.Ctx, d Draft) error {
	f := d.Form
	record := session.NewRecord(*f.AccountInfo, f.FirstName, f.LastName, f.AccountType, f.Email)
	if err := h.sessions.SetRecord(c, record); err != nil {
		return err
	}
	return h.sessions.Set(c, session.FromRecord(record))
}

// Back moves the draft one step back.
func (h *Handler) Back(c *fiber.Ctx) error {
	d, err := h.service.Back(c.UserContext(), h.draftID(c))
	return h.render(c, d, err)
}

// PutDocument stores the multipart "file" field in a document slot.
func (h *Handler) PutDocument(c *fiber.Ctx) error {
	slot := c.Params("slot")
	header, err := c.FormFile("file")
	if err != nil {
		return respond.Invalid(c, map[string]string{slot: "Aucun fichier reçu"})
	}
	upload, err := readUpload(header)
	if errors.Is(err, errFileTooLarge) {
		return respond.Invalid(c, map[string]string{slot: msgFileTooLarge})
	}
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Fichier illisible")
	}
	d, err := h.service.AttachDocument(c.UserContext(), h.draftID(c), slot, upload)
	return h.render(c, d, err)
}

func readUpload(header *multipart.FileHeader) (account.Upload, error) {
	if header.Size > MaxUploadSize {
		return account.Upload{}, errFileTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return account.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return account.Upload{}, err
	}
	declared := header.Header.Get(fiber.HeaderContentType)
	if declared == fiber.MIMEOctetStream {
		// browsers send this when they cannot tell; sniffing decides
		declared = ""
	}
	return account.Upload{
		Filename:    header.Filename,
		ContentType: declared,
		Data:        data,
	}, nil
}

// DeleteDocument empties a document slot.
func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	d, err := h.service.RemoveDocument(c.UserContext(), h.draftID(c), c.Params("slot"))
	return h.render(c, d, err)
}

type imageRequest struct {
	DataURL string `json:"dataUrl"`
}

// PutPhoto stores the captured photo.
func (h *Handler) PutPhoto(c *fiber.Ctx) error {
	var req imageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	d, err := h.service.SetPhoto(c.UserContext(), h.draftID(c), req.DataURL)
	return h.render(c, d, err)
}

// PutSignature stores the drawn signature.
func (h *Handler) PutSignature(c *fiber.Ctx) error {
	var req imageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	d, err := h.service.SetSignature(c.UserContext(), h.draftID(c), req.DataURL)
	return h.render(c, d, err)
}

// DeleteSignature clears the drawn signature.
func (h *Handler) DeleteSignature(c *fiber.Ctx) error {
	d, err := h.service.ClearSignature(c.UserContext(), h.draftID(c))
	return h.render(c, d, err)
}

// SendOTP requests a verification code.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	d, issue, err := h.service.SendOTP(c.UserContext(), h.draftID(c))
	if err != nil {
		if errors.Is(err, ErrOTPCooldown) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(issue.ResendIn.Round(time.Second).Seconds())))
		}
		return h.fail(c, err)
	}
	payload := fiber.Map{
		"message":  issue.Message,
		"resendIn": int(issue.ResendIn.Seconds()),
		"wizard":   h.view(d),
	}
	if issue.Code != "" {
		payload["otpCode"] = issue.Code
	}
	return respond.OK(c, http.StatusOK, payload)
}

type verifyRequest struct {
	OTPCode string `json:"otpCode"`
}

// VerifyOTP checks the submitted code and advances on success.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	d, err := h.service.VerifyOTP(c.UserContext(), h.draftID(c), req.OTPCode)
	return h.render(c, d, err)
}

// SignContract records the contract signature.
func (h *Handler) SignContract(c *fiber.Ctx) error {
	var ack Acknowledgement
	if err := c.BodyParser(&ack); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Requête invalide")
	}
	d, err := h.service.SignContract(c.UserContext(), h.draftID(c), ack)
	return h.render(c, d, err)
}

// GenerateAccount creates the account once and returns its credentials.
func (h *Handler) GenerateAccount(c *fiber.Ctx) error {
	d, err := h.service.GenerateAccount(c.UserContext(), h.draftID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return respond.OK(c, http.StatusOK, fiber.Map{
		"message":     "Compte créé avec succès",
		"accountInfo": d.Form.AccountInfo,
		"wizard":      h.view(d),
	})
}

// ContractPDF downloads the contract as PDF.
func (h *Handler) ContractPDF(c *fiber.Ctx) error {
	d, err := h.service.Get(c.UserContext(), h.draftID(c))
	if err != nil {
		return h.fail(c, err)
	}
	holder := holderOf(d.Form)
	doc, err := contract.PDF(holder, imageOf(d.Form.Biometrics.Photo), imageOf(d.Form.Biometrics.Signature), h.now())
	if err != nil {
		return err
	}
	attach(c, contract.Filename(holder, "pdf"), "application/pdf")
	return c.Send(doc)
}

// ContractText downloads the contract as plain text.
func (h *Handler) ContractText(c *fiber.Ctx) error {
	d, err := h.service.Get(c.UserContext(), h.draftID(c))
	if err != nil {
		return h.fail(c, err)
	}
	holder := holderOf(d.Form)
	attach(c, contract.Filename(holder, "txt"), fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(contract.Text(holder, h.now()))
}

// Summary downloads the account summary once the account exists.
func (h *Handler) Summary(c *fiber.Ctx) error {
	d, err := h.service.Get(c.UserContext(), h.draftID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if d.Form.AccountInfo == nil {
		return fiber.NewError(http.StatusConflict, "Le compte n'a pas encore été généré")
	}
	attach(c, contract.SummaryFilename, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(contract.Summary(holderOf(d.Form), *d.Form.AccountInfo, h.now()))
}

func attach(c *fiber.Ctx, filename, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
}

func holderOf(f FormData) contract.Holder {
	return contract.Holder{
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		DateOfBirth:  f.DateOfBirth,
		PlaceOfBirth: f.PlaceOfBirth,
		Nationality:  f.Nationality,
		CIN:          f.CIN,
		AccountType:  f.AccountType,
		Email:        f.Email,
		PhoneNumber:  f.PhoneNumber,
	}
}

func imageOf(dataURL string) *contract.Image {
	if dataURL == "" {
		return nil
	}
	img, err := ParseDataURL(dataURL)
	if err != nil {
		return nil
	}
	return &contract.Image{ContentType: img.ContentType, Data: img.Data}
}
