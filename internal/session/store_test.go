package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupSessionApp(t *testing.T, store *CookieStore) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/session", func(c *fiber.Ctx) error {
		var in UserSession
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return err
		}
		return store.Set(c, in)
	})
	app.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(store.Get(c))
	})
	app.Delete("/session", func(c *fiber.Ctx) error {
		store.Delete(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func cookieFrom(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func readSession(t *testing.T, app *fiber.App, cookie *http.Cookie) *UserSession {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/session", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var out *UserSession
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode session %s: %v", body, err)
	}
	return out
}

func TestSessionRoundTrip(t *testing.T) {
	store, err := NewCookieStore(testSecret, false, logging.Discard())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	app := setupSessionApp(t, store)

	want := UserSession{LoggedIn: true, AccountNumber: "100020010000001", IsTemporaryPasswordUsed: false}
	payload, _ := json.Marshal(want)
	req := httptest.NewRequest(fiber.MethodPost, "/session", strings.NewReader(string(payload)))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("set session: %v", err)
	}
	cookie := cookieFrom(t, resp, SessionCookie)
	if !cookie.HttpOnly {
		t.Fatal("expected http-only cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.MaxAge != int(SessionTTL.Seconds()) {
		t.Fatalf("expected max-age %d, got %d", int(SessionTTL.Seconds()), cookie.MaxAge)
	}
	if strings.Contains(cookie.Value, "100020010000001") {
		t.Fatal("cookie value must not expose the account number in clear")
	}

	got := readSession(t, app, cookie)
	if got == nil || *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodDelete, "/session", nil))
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	cleared := cookieFrom(t, resp, SessionCookie)
	if cleared.Value != "" {
		t.Fatalf("expected cleared cookie, got %q", cleared.Value)
	}

	if got := readSession(t, app, nil); got != nil {
		t.Fatalf("expected absent session, got %+v", got)
	}
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	store, err := NewCookieStore(testSecret, false, logging.Discard())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	app := setupSessionApp(t, store)

	forged := &http.Cookie{Name: SessionCookie, Value: `{"loggedIn":true,"accountNumber":"100020010000001"}`}
	if got := readSession(t, app, forged); got != nil {
		t.Fatalf("expected forged cookie to be ignored, got %+v", got)
	}

	other, err := NewCookieStore("another-secret-another-secret-xx", false, logging.Discard())
	if err != nil {
		t.Fatalf("other store: %v", err)
	}
	value, err := other.sessionCodec.Encode(SessionCookie, UserSession{LoggedIn: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := readSession(t, app, &http.Cookie{Name: SessionCookie, Value: value}); got != nil {
		t.Fatalf("expected cookie signed with another key to be ignored, got %+v", got)
	}
}

func TestSecureAttributeInProduction(t *testing.T) {
	store, err := NewCookieStore(testSecret, true, logging.Discard())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	app := setupSessionApp(t, store)

	req := httptest.NewRequest(fiber.MethodPost, "/session", strings.NewReader(`{"loggedIn":true}`))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("set session: %v", err)
	}
	if !cookieFrom(t, resp, SessionCookie).Secure {
		t.Fatal("expected Secure cookie")
	}
}

func TestStateTransitions(t *testing.T) {
	if StateOf(nil) != Anonymous {
		t.Fatal("nil session must be anonymous")
	}

	s := FromLogin(account.Profile{AccountNumber: "100020010000001"}, "TEMP0001")
	if StateOf(&s) != TemporaryPasswordActive {
		t.Fatalf("expected temporary password state, got %s", StateOf(&s))
	}
	if s.CurrentPassword != "TEMP0001" {
		t.Fatalf("expected submitted password kept, got %q", s.CurrentPassword)
	}

	s = s.WithPasswordChanged("nouveau-secret")
	if StateOf(&s) != PasswordSet || s.CurrentPassword != "nouveau-secret" {
		t.Fatalf("expected password set, got %s %+v", StateOf(&s), s)
	}

	s = s.WithActivation()
	if StateOf(&s) != Activated {
		t.Fatalf("expected activated, got %s", StateOf(&s))
	}
}

func TestRecordSeedsSession(t *testing.T) {
	info := account.AccountInfo{
		AccountNumber:     "1000200100000001",
		IBAN:              "TN59 1000 2001 00000001 07",
		AccessCode:        "100001",
		TemporaryPassword: "TEMP0001",
		ActivationCode:    "ACTV0001",
	}
	record := NewRecord(info, "Amira", "Ben Salah", "courant", "amira@example.tn")
	if record.IsTemporaryPasswordUsed || record.IsAccountActivated || record.CurrentPassword != "TEMP0001" {
		t.Fatalf("unexpected record %+v", record)
	}
	s := FromRecord(record)
	if StateOf(&s) != TemporaryPasswordActive || s.ActivationCode != "ACTV0001" {
		t.Fatalf("unexpected session %+v", s)
	}
}
