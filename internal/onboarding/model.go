package onboarding

import (
	"time"

	"github.com/bankportal/onboarding/internal/account"
)

// Step is a wizard stage, numbered from 1.
type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepAccountType
	StepIdentity
	StepDocuments
	StepBiometrics
	StepOTP
	StepContract
	StepAccountGeneration
	StepConfirmation
)

// TotalSteps is the number of wizard stages.
const TotalSteps = int(StepConfirmation)

var stepLabels = map[Step]string{
	StepPersonalInfo:      "Informations personnelles",
	StepAccountType:       "Type de compte",
	StepIdentity:          "Vérification identité",
	StepDocuments:         "Documents",
	StepBiometrics:        "Capture biométrique",
	StepOTP:               "Vérification OTP",
	StepContract:          "Signature contrat",
	StepAccountGeneration: "Génération compte",
	StepConfirmation:      "Confirmation",
}

// Label returns the French title of the step.
func (s Step) Label() string {
	return stepLabels[s]
}

// Valid reports whether s is within [1, TotalSteps].
func (s Step) Valid() bool {
	return s >= StepPersonalInfo && s <= StepConfirmation
}

// Account types offered at step 2.
var AccountTypes = []string{"courant", "epargne", "investissement", "professionnel"}

// Document slots.
const (
	SlotCINFront       = "cinFront"
	SlotCINBack        = "cinBack"
	SlotProofOfAddress = "proofOfAddress"
	SlotProofOfIncome  = "proofOfIncome"
)

var slotLabels = map[string]string{
	SlotCINFront:       "CIN Recto",
	SlotCINBack:        "CIN Verso",
	SlotProofOfAddress: "Justificatif de domicile",
	SlotProofOfIncome:  "Justificatif de revenus",
}

var requiredSlots = []string{SlotCINFront, SlotCINBack}

// Document is an uploaded attachment. Path is the location returned by the
// account backend.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Path        string `json:"path"`
}

// Documents holds the four attachment slots.
type Documents struct {
	CINFront       *Document `json:"cinFront,omitempty"`
	CINBack        *Document `json:"cinBack,omitempty"`
	ProofOfAddress *Document `json:"proofOfAddress,omitempty"`
	ProofOfIncome  *Document `json:"proofOfIncome,omitempty"`
}

func (d *Documents) slot(name string) **Document {
	switch name {
	case SlotCINFront:
		return &d.CINFront
	case SlotCINBack:
		return &d.CINBack
	case SlotProofOfAddress:
		return &d.ProofOfAddress
	case SlotProofOfIncome:
		return &d.ProofOfIncome
	default:
		return nil
	}
}

// Get returns the document in a slot or nil.
func (d Documents) Get(name string) *Document {
	if p := d.slot(name); p != nil {
		return *p
	}
	return nil
}

// Biometrics holds the captured photo and drawn signature as data URLs.
type Biometrics struct {
	Photo         string `json:"photo,omitempty"`
	Signature     string `json:"signature,omitempty"`
	PhotoPath     string `json:"photoPath,omitempty"`
	SignaturePath string `json:"signaturePath,omitempty"`
}

// FormData accumulates everything the applicant enters.
type FormData struct {
	FirstName      string               `json:"firstName"`
	LastName       string               `json:"lastName"`
	DateOfBirth    string               `json:"dateOfBirth"`
	PlaceOfBirth   string               `json:"placeOfBirth"`
	Nationality    string               `json:"nationality"`
	CIN            string               `json:"cin"`
	AccountType    string               `json:"accountType"`
	Documents      Documents            `json:"documents"`
	Biometrics     Biometrics           `json:"biometricData"`
	PhoneNumber    string               `json:"phoneNumber"`
	Email          string               `json:"email"`
	OTPCode        string               `json:"otpCode"`
	ContractSigned bool                 `json:"contractSigned"`
	AccountInfo    *account.AccountInfo `json:"accountInfo"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	DateOfBirth  *string `json:"dateOfBirth"`
	PlaceOfBirth *string `json:"placeOfBirth"`
	Nationality  *string `json:"nationality"`
	CIN          *string `json:"cin"`
	AccountType  *string `json:"accountType"`
	PhoneNumber  *string `json:"phoneNumber"`
	Email        *string `json:"email"`
	OTPCode      *string `json:"otpCode"`
}

// Owner returns the earliest step owning a field present in p, or 0 for an
// empty patch.
func (p Patch) Owner() Step {
	switch {
	case p.FirstName != nil, p.LastName != nil, p.DateOfBirth != nil,
		p.PlaceOfBirth != nil, p.Nationality != nil, p.CIN != nil:
		return StepPersonalInfo
	case p.AccountType != nil:
		return StepAccountType
	case p.PhoneNumber != nil, p.Email != nil:
		return StepIdentity
	case p.OTPCode != nil:
		return StepOTP
	default:
		return 0
	}
}

// Merge applies the present fields of p onto f.
func (f *FormData) Merge(p Patch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.FirstName, p.FirstName)
	set(&f.LastName, p.LastName)
	set(&f.DateOfBirth, p.DateOfBirth)
	set(&f.PlaceOfBirth, p.PlaceOfBirth)
	set(&f.Nationality, p.Nationality)
	set(&f.CIN, p.CIN)
	set(&f.AccountType, p.AccountType)
	set(&f.PhoneNumber, p.PhoneNumber)
	set(&f.Email, p.Email)
	set(&f.OTPCode, p.OTPCode)
}

// Draft is a wizard in progress.
type Draft struct {
	ID        string    `json:"id"`
	Step      Step      `json:"step"`
	Form      FormData  `json:"form"`
	IssuedOTP string    `json:"issuedOtp,omitempty"`
	OTPSentAt time.Time `json:"otpSentAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OTPSent reports whether a code has been requested for this draft.
func (d Draft) OTPSent() bool {
	return !d.OTPSentAt.IsZero()
}
