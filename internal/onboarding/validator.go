package onboarding

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// FieldErrors maps a form field to a user-facing message. An empty map means
// the step is satisfied.
type FieldErrors map[string]string

// Validator reports the unmet requirements of one step.
type Validator func(d Draft) FieldErrors

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	cinLength = 8
	otpLength = 6
)

// ValidCIN reports whether the national ID has exactly 8 characters.
func ValidCIN(cin string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(cin)) == cinLength
}

// ValidPhone matches an optional plus sign and 8 to 15 digits, ignoring
// whitespace.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(compactPhone(phone))
}

// ValidEmail requires a single @ followed by a dotted domain.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validatePersonalInfo(d Draft) FieldErrors {
	f := d.Form
	errs := FieldErrors{}
	if blank(f.FirstName) {
		errs["firstName"] = "Le prénom est requis"
	}
	if blank(f.LastName) {
		errs["lastName"] = "Le nom est requis"
	}
	if blank(f.DateOfBirth) {
		errs["dateOfBirth"] = "La date de naissance est requise"
	}
	if blank(f.PlaceOfBirth) {
		errs["placeOfBirth"] = "Le lieu de naissance est requis"
	}
	if blank(f.Nationality) {
		errs["nationality"] = "La nationalité est requise"
	}
	switch {
	case blank(f.CIN):
		errs["cin"] = "Le numéro CIN est requis"
	case !ValidCIN(f.CIN):
		errs["cin"] = "Le numéro CIN doit contenir 8 chiffres"
	}
	return errs
}

func validateAccountType(d Draft) FieldErrors {
	errs := FieldErrors{}
	switch {
	case blank(d.Form.AccountType):
		errs["accountType"] = "Le type de compte est requis"
	case !slices.Contains(AccountTypes, d.Form.AccountType):
		errs["accountType"] = "Type de compte invalide"
	}
	return errs
}

func validateIdentity(d Draft) FieldErrors {
	errs := FieldErrors{}
	switch {
	case blank(d.Form.PhoneNumber):
		errs["phoneNumber"] = "Le numéro de téléphone est requis"
	case !ValidPhone(d.Form.PhoneNumber):
		errs["phoneNumber"] = "Format de numéro invalide"
	}
	switch {
	case blank(d.Form.Email):
		errs["email"] = "L'email est requis"
	case !ValidEmail(d.Form.Email):
		errs["email"] = "Format d'email invalide"
	}
	return errs
}

func validateDocuments(d Draft) FieldErrors {
	errs := FieldErrors{}
	for _, slot := range requiredSlots {
		if d.Form.Documents.Get(slot) == nil {
			errs[slot] = slotLabels[slot] + " est requis"
		}
	}
	return errs
}

func validateBiometrics(d Draft) FieldErrors {
	errs := FieldErrors{}
	if d.Form.Biometrics.Photo == "" {
		errs["photo"] = "La photo est requise"
	}
	if d.Form.Biometrics.Signature == "" {
		errs["signature"] = "La signature est requise"
	}
	return errs
}

func validateOTP(d Draft) FieldErrors {
	errs := FieldErrors{}
	code := strings.TrimSpace(d.Form.OTPCode)
	switch {
	case !d.OTPSent() || d.IssuedOTP == "":
		errs["otpCode"] = "Veuillez demander un code OTP"
	case utf8.RuneCountInString(code) != otpLength:
		errs["otpCode"] = "Le code OTP doit contenir 6 chiffres"
	case code != d.IssuedOTP:
		errs["otpCode"] = "Code OTP incorrect"
	}
	return errs
}

func validateContract(d Draft) FieldErrors {
	errs := FieldErrors{}
	if !d.Form.ContractSigned {
		errs["contractSigned"] = "Vous devez signer le contrat"
	}
	return errs
}

func validateAccountGeneration(d Draft) FieldErrors {
	errs := FieldErrors{}
	if d.Form.AccountInfo == nil {
		errs["accountInfo"] = "Le compte n'a pas encore été généré"
	}
	return errs
}

// DefaultValidators returns the validator of every step that can advance.
func DefaultValidators() map[Step]Validator {
	return map[Step]Validator{
		StepPersonalInfo:      validatePersonalInfo,
		StepAccountType:       validateAccountType,
		StepIdentity:          validateIdentity,
		StepDocuments:         validateDocuments,
		StepBiometrics:        validateBiometrics,
		StepOTP:               validateOTP,
		StepContract:          validateContract,
		StepAccountGeneration: validateAccountGeneration,
	}
}
