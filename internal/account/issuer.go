package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"strconv"
	"strings"
)

const (
	// BankCode and BranchCode prefix every issued account number.
	BankCode   = "1000"
	BranchCode = "2001"
	ibanPrefix = "TN59"

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// CredentialIssuer generates account credentials and one-time passwords.
type CredentialIssuer interface {
	Issue() (AccountInfo, error)
	IssueOTP() (string, error)
}

type intn func(n int) (int, error)

// DemoIssuer draws from math/rand. The codes are predictable; it exists to
// reproduce the browser demo and must not back a real deployment.
type DemoIssuer struct{}

// Issue generates demo credentials.
func (DemoIssuer) Issue() (AccountInfo, error) { return issueWith(demoIntN) }

// IssueOTP generates a demo 6-digit code.
func (DemoIssuer) IssueOTP() (string, error) { return otpWith(demoIntN) }

// SecureIssuer draws from crypto/rand.
type SecureIssuer struct{}

// Issue generates credentials from a cryptographically secure source.
func (SecureIssuer) Issue() (AccountInfo, error) { return issueWith(secureIntN) }

// IssueOTP generates a 6-digit code from a cryptographically secure source.
func (SecureIssuer) IssueOTP() (string, error) { return otpWith(secureIntN) }

func demoIntN(n int) (int, error) {
	return mrand.IntN(n), nil
}

func secureIntN(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func issueWith(next intn) (AccountInfo, error) {
	seq, err := next(100_000_000)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("account sequence: %w", err)
	}
	suffix, err := next(100)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("iban suffix: %w", err)
	}
	access, err := next(900_000)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("access code: %w", err)
	}
	password, err := randomCode(next)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("temporary password: %w", err)
	}
	activation, err := randomCode(next)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("activation code: %w", err)
	}

	sequence := fmt.Sprintf("%08d", seq)
	return AccountInfo{
		AccountNumber:     BankCode + BranchCode + sequence,
		IBAN:              fmt.Sprintf("%s %s %s %s %02d", ibanPrefix, BankCode, BranchCode, sequence, suffix),
		AccessCode:        strconv.Itoa(100_000 + access),
		TemporaryPassword: password,
		ActivationCode:    activation,
	}, nil
}

func otpWith(next intn) (string, error) {
	v, err := next(1_000_000)
	if err != nil {
		return "", fmt.Errorf("otp: %w", err)
	}
	return fmt.Sprintf("%06d", v), nil
}

func randomCode(next intn) (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	for range codeLength {
		i, err := next(len(codeAlphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[i])
	}
	return b.String(), nil
}
