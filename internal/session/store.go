package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/securecookie"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionCookie holds the portal session.
	SessionCookie = "userSession"
	// RecordCookie holds the account creation record.
	RecordCookie = "bankAccountData"

	SessionTTL = 24 * time.Hour
	RecordTTL  = 365 * 24 * time.Hour

	localsSession = "session.user"
	localsRecord  = "session.record"
)

// Repository reads and replaces the cookie-backed session records. Every
// write replaces the whole snapshot.
type Repository interface {
	Get(c *fiber.Ctx) *UserSession
	Set(c *fiber.Ctx, s UserSession) error
	Delete(c *fiber.Ctx)
	GetRecord(c *fiber.Ctx) *AccountRecord
	SetRecord(c *fiber.Ctx, r AccountRecord) error
}

// CookieStore signs and encrypts session snapshots into http-only cookies.
type CookieStore struct {
	sessionCodec *securecookie.SecureCookie
	recordCodec  *securecookie.SecureCookie
	secure       bool
	logger       *slog.Logger
}

var _ Repository = (*CookieStore)(nil)

// NewCookieStore derives signing and encryption keys from secret. secure sets
// the Secure attribute on written cookies.
func NewCookieStore(secret string, secure bool, logger *slog.Logger) (*CookieStore, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	hashKey, err := deriveKey(secret, "session-hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "session-block", 32)
	if err != nil {
		return nil, err
	}
	return &CookieStore{
		sessionCodec: newCodec(hashKey, blockKey, SessionTTL),
		recordCodec:  newCodec(hashKey, blockKey, RecordTTL),
		secure:       secure,
		logger:       logger,
	}, nil
}

func newCodec(hashKey, blockKey []byte, ttl time.Duration) *securecookie.SecureCookie {
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(ttl.Seconds()))
	return codec
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// Get returns the current session or nil when anonymous. Cookies that fail
// verification are treated as absent.
func (s *CookieStore) Get(c *fiber.Ctx) *UserSession {
	if cached, ok := c.Locals(localsSession).(*UserSession); ok {
		return cached
	}
	var out UserSession
	if !s.decode(c, s.sessionCodec, SessionCookie, &out) {
		return nil
	}
	return &out
}

// Set writes the full session snapshot.
func (s *CookieStore) Set(c *fiber.Ctx, snapshot UserSession) error {
	value, err := s.sessionCodec.Encode(SessionCookie, snapshot)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	WriteCookie(c, SessionCookie, value, SessionTTL, s.secure)
	c.Locals(localsSession, &snapshot)
	return nil
}

// Delete expires the session cookie. The creation record is kept.
func (s *CookieStore) Delete(c *fiber.Ctx) {
	ClearCookie(c, SessionCookie, s.secure)
	c.Locals(localsSession, (*UserSession)(nil))
}

// GetRecord returns the account creation record or nil.
func (s *CookieStore) GetRecord(c *fiber.Ctx) *AccountRecord {
	if cached, ok := c.Locals(localsRecord).(*AccountRecord); ok {
		return cached
	}
	var out AccountRecord
	if !s.decode(c, s.recordCodec, RecordCookie, &out) {
		return nil
	}
	return &out
}

// SetRecord writes the account creation record.
func (s *CookieStore) SetRecord(c *fiber.Ctx, r AccountRecord) error {
	value, err := s.recordCodec.Encode(RecordCookie, r)
	if err != nil {
		return fmt.Errorf("encode account record: %w", err)
	}
	WriteCookie(c, RecordCookie, value, RecordTTL, s.secure)
	c.Locals(localsRecord, &r)
	return nil
}

func (s *CookieStore) decode(c *fiber.Ctx, codec *securecookie.SecureCookie, name string, dst any) bool {
	raw := c.Cookies(name)
	if raw == "" {
		return false
	}
	if err := codec.Decode(name, raw, dst); err != nil {
		if s.logger != nil {
			s.logger.Warn("discarding invalid cookie", slog.String("cookie", name), slog.Any("error", err))
		}
		return false
	}
	return true
}

// WriteCookie sets an http-only, SameSite=Lax cookie scoped to the whole site.
func WriteCookie(c *fiber.Ctx, name, value string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires a cookie written by WriteCookie.
func ClearCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  fasthttp.CookieExpireDelete,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
