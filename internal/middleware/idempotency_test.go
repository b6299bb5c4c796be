package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bankportal/onboarding/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int32, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	logger := logging.Discard()
	var calls int32
	app.Use(Idempotency(cache, time.Minute, logger, func(c *fiber.Ctx) string {
		return "wizard:" + c.Cookies("wizardId")
	}))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	app.Post("/owned", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		owner := c.Cookies("wizardId")
		c.Cookie(&fiber.Cookie{Name: "userSession", Value: "session-of-" + owner})
		return c.JSON(fiber.Map{"owner": owner})
	})
	app.Post("/failing", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return fiber.NewError(fiber.StatusBadGateway, "upstream down")
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(payload)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for range 2 {
		if status, _ := post(t, app, "/resource", ""); status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := post(t, app, "/resource", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, cachedPayload := post(t, app, "/resource", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if *calls != 1 {
		t.Fatalf("expected a single handler call, got %d", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for range 2 {
		if status, _ := post(t, app, "/failing", "retry-me"); status != fiber.StatusBadGateway {
			t.Fatalf("expected %d got %d", fiber.StatusBadGateway, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("expected failed request to be retried, ran %d", *calls)
	}
}

func TestIdempotencyIsScopedToCaller(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	send := func(owner string) (string, string) {
		t.Helper()
		req := httptest.NewRequest(fiber.MethodPost, "/owned", nil)
		req.Header.Set(idempotencyKeyHeader, "k1")
		req.AddCookie(&http.Cookie{Name: "wizardId", Value: owner})
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		payload, _ := io.ReadAll(resp.Body)
		return string(payload), resp.Header.Get(fiber.HeaderSetCookie)
	}

	first, cookie := send("A")
	if !strings.Contains(first, `"owner":"A"`) || cookie == "" {
		t.Fatalf("unexpected first response %s cookie %q", first, cookie)
	}
	other, cookie := send("B")
	if !strings.Contains(other, `"owner":"B"`) || !strings.Contains(cookie, "session-of-B") {
		t.Fatalf("other caller got %s cookie %q", other, cookie)
	}
	if *calls != 2 {
		t.Fatalf("expected one handler call per caller, got %d", *calls)
	}

	replayed, cookie := send("A")
	if replayed != first {
		t.Fatalf("expected replay %s got %s", first, replayed)
	}
	if cookie != "" {
		t.Fatalf("replay must not carry cookies, got %q", cookie)
	}
	if *calls != 2 {
		t.Fatalf("replay must not call the handler, got %d", *calls)
	}
}
