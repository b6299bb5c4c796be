package account

import "time"

// Upload categories accepted by the file upload endpoint.
const (
	CategoryProfilePhoto = "profile-photo"
	CategoryCINPhoto     = "cin-photo"
	CategorySignature    = "signature"
	CategoryDocument     = "document"
)

// AccountInfo holds the credentials issued when an account is created. The
// values are opaque to callers.
type AccountInfo struct {
	AccountNumber     string `json:"accountNumber"`
	IBAN              string `json:"iban"`
	AccessCode        string `json:"accessCode"`
	TemporaryPassword string `json:"temporaryPassword"`
	ActivationCode    string `json:"activationCode"`
}

// Complete reports whether every credential is populated.
func (a AccountInfo) Complete() bool {
	return a.AccountNumber != "" && a.IBAN != "" && a.AccessCode != "" &&
		a.TemporaryPassword != "" && a.ActivationCode != ""
}

// CreateAccountRequest is the payload sent to open an account.
type CreateAccountRequest struct {
	FirstName               string `json:"firstName"`
	LastName                string `json:"lastName"`
	DateOfBirth             string `json:"dateOfBirth"`
	PlaceOfBirth            string `json:"placeOfBirth"`
	Nationality             string `json:"nationality"`
	CIN                     string `json:"cin"`
	Email                   string `json:"email"`
	PhoneNumber             string `json:"phoneNumber"`
	AccountType             string `json:"accountType"`
	OTPCode                 string `json:"otpCode"`
	ProfilePhotoPath        string `json:"profilePhotoPath,omitempty"`
	CINPhotoPath            string `json:"cinPhotoPath,omitempty"`
	SignaturePath           string `json:"signaturePath,omitempty"`
	AdditionalDocumentsPath string `json:"additionalDocumentsPath,omitempty"`
}

// LoginRequest carries client portal credentials.
type LoginRequest struct {
	AccountNumber string `json:"accountNumber"`
	AccessCode    string `json:"accessCode"`
	Password      string `json:"password"`
}

// Profile is the identity snapshot and flags returned by a successful login.
type Profile struct {
	FirstName               string `json:"firstName"`
	LastName                string `json:"lastName"`
	AccountNumber           string `json:"accountNumber"`
	AccountType             string `json:"accountType"`
	Email                   string `json:"email"`
	IsAccountActivated      bool   `json:"isAccountActivated"`
	IsTemporaryPasswordUsed bool   `json:"isTemporaryPasswordUsed"`
	ActivationCode          string `json:"activationCode"`
}

// OTPDispatch describes a sent one-time password. Code is only populated by
// backends running in test mode.
type OTPDispatch struct {
	Code    string `json:"otpCode,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChangePasswordRequest replaces the password of an account.
type ChangePasswordRequest struct {
	AccountNumber   string `json:"accountNumber"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Result is the outcome of an operation that returns nothing but a message.
type Result struct {
	Message string `json:"message"`
}

// Upload is a file sent to the document store.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UserInfo is the full profile rendered by the client dashboard.
type UserInfo struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	AccountInfo  AccountState `json:"accountInfo"`
	Biometrics   Biometrics   `json:"biometricData"`
	History      History      `json:"history"`
}

// PersonalInfo groups identity and contact fields.
type PersonalInfo struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	CIN          string `json:"cin"`
	DateOfBirth  string `json:"dateOfBirth"`
	PlaceOfBirth string `json:"placeOfBirth"`
	Nationality  string `json:"nationality"`
}

// AccountState groups account identifiers and lifecycle flags.
type AccountState struct {
	AccountNumber      string `json:"accountNumber"`
	AccountType        string `json:"accountType"`
	IBAN               string `json:"iban"`
	IsAccountActivated bool   `json:"isAccountActivated"`
	ActivationCode     string `json:"activationCode"`
}

// Biometrics references the stored photo and signature.
type Biometrics struct {
	Photo     string `json:"photo,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// History carries record timestamps.
type History struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
