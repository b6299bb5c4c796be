package session

import "github.com/bankportal/onboarding/internal/account"

// State is the lifecycle position of a portal session.
type State int

const (
	Anonymous State = iota
	TemporaryPasswordActive
	PasswordSet
	Activated
)

func (s State) String() string {
	switch s {
	case TemporaryPasswordActive:
		return "temporary_password_active"
	case PasswordSet:
		return "password_set"
	case Activated:
		return "activated"
	default:
		return "anonymous"
	}
}

// UserSession is the snapshot stored in the userSession cookie.
type UserSession struct {
	LoggedIn                bool   `json:"loggedIn"`
	FirstName               string `json:"firstName,omitempty"`
	LastName                string `json:"lastName,omitempty"`
	AccountNumber           string `json:"accountNumber,omitempty"`
	AccountType             string `json:"accountType,omitempty"`
	Email                   string `json:"email,omitempty"`
	ActivationCode          string `json:"activationCode,omitempty"`
	IsTemporaryPasswordUsed bool   `json:"isTemporaryPasswordUsed"`
	CurrentPassword         string `json:"currentPassword,omitempty"`
	IsAccountActivated      bool   `json:"isAccountActivated"`
}

// AccountRecord is the creation record stored in the bankAccountData cookie.
type AccountRecord struct {
	AccountNumber           string `json:"accountNumber"`
	AccessCode              string `json:"accessCode"`
	TemporaryPassword       string `json:"temporaryPassword"`
	ActivationCode          string `json:"activationCode"`
	FirstName               string `json:"firstName"`
	LastName                string `json:"lastName"`
	AccountType             string `json:"accountType"`
	Email                   string `json:"email"`
	IsTemporaryPasswordUsed bool   `json:"isTemporaryPasswordUsed"`
	CurrentPassword         string `json:"currentPassword"`
	IsAccountActivated      bool   `json:"isAccountActivated"`
}

// StateOf derives the lifecycle position. A nil session is anonymous.
func StateOf(u *UserSession) State {
	switch {
	case u == nil || !u.LoggedIn:
		return Anonymous
	case u.IsAccountActivated:
		return Activated
	case u.IsTemporaryPasswordUsed:
		return PasswordSet
	default:
		return TemporaryPasswordActive
	}
}

// FromLogin builds the session written after a successful login. The
// submitted password becomes the current password.
func FromLogin(p account.Profile, password string) UserSession {
	return UserSession{
		LoggedIn:                true,
		FirstName:               p.FirstName,
		LastName:                p.LastName,
		AccountNumber:           p.AccountNumber,
		AccountType:             p.AccountType,
		Email:                   p.Email,
		ActivationCode:          p.ActivationCode,
		IsTemporaryPasswordUsed: p.IsTemporaryPasswordUsed,
		CurrentPassword:         password,
		IsAccountActivated:      p.IsAccountActivated,
	}
}

// NewRecord builds the creation record for freshly issued credentials.
func NewRecord(info account.AccountInfo, firstName, lastName, accountType, email string) AccountRecord {
	return AccountRecord{
		AccountNumber:     info.AccountNumber,
		AccessCode:        info.AccessCode,
		TemporaryPassword: info.TemporaryPassword,
		ActivationCode:    info.ActivationCode,
		FirstName:         firstName,
		LastName:          lastName,
		AccountType:       accountType,
		Email:             email,
		CurrentPassword:   info.TemporaryPassword,
	}
}

// FromRecord builds the session written after account creation.
func FromRecord(r AccountRecord) UserSession {
	return UserSession{
		LoggedIn:                true,
		FirstName:               r.FirstName,
		LastName:                r.LastName,
		AccountNumber:           r.AccountNumber,
		AccountType:             r.AccountType,
		Email:                   r.Email,
		ActivationCode:          r.ActivationCode,
		IsTemporaryPasswordUsed: r.IsTemporaryPasswordUsed,
		CurrentPassword:         r.CurrentPassword,
		IsAccountActivated:      r.IsAccountActivated,
	}
}

// WithPasswordChanged returns the snapshot after a password change.
func (u UserSession) WithPasswordChanged(newPassword string) UserSession {
	u.IsTemporaryPasswordUsed = true
	u.CurrentPassword = newPassword
	return u
}

// WithActivation returns the snapshot after the activation code was accepted.
func (u UserSession) WithActivation() UserSession {
	u.IsAccountActivated = true
	return u
}
