//go:build !integration

package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"tagpay/internal/config"
)

var noLimit = config.RateLimitConfig{}

func activateForm(token, email, handle string) string {
	v := url.Values{}
	v.Set("token", token)
	v.Set("name", "Bob")
	v.Set("email", email)
	v.Set("payment_handle", handle)
	return v.Encode()
}

func decodeMap(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return m
}

func TestServer_ActivateThenRedirect(t *testing.T) {
	env := newTestEnv(t, noLimit)

	rec := env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded", activateForm("ABCD1234", "bob@example.com", "$bob"))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeMap(t, rec.Body.String())
	if body["success"] != true || body["redirect_url"] != "https://cash.app/$bob" || body["message"] != "Token activated successfully" {
		t.Fatalf("unexpected body %v", body)
	}

	for _, path := range []string{"/t/ABCD1234", "/ABCD1234"} {
		rec = env.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusMovedPermanently {
			t.Fatalf("%s: want 301, got %d", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "https://cash.app/$bob" {
			t.Errorf("%s: unexpected Location %q", path, loc)
		}
	}
}

func TestServer_ActivateJSONAndErrors(t *testing.T) {
	env := newTestEnv(t, noLimit)

	t.Run("json body is accepted", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/activate", "application/json",
			`{"token":"JSON1234","name":"Ann","email":"ann@example.com","payment_handle":"@ann"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		if got := decodeMap(t, rec.Body.String())["redirect_url"]; got != "https://venmo.com/u/ann" {
			t.Errorf("unexpected redirect_url %v", got)
		}
	})

	cases := []struct {
		name   string
		form   string
		status int
		msg    string
	}{
		{"invalid token", activateForm("AB", "bob@example.com", "$bob"), http.StatusBadRequest, "Invalid token format"},
		{"invalid email", activateForm("GOOD1234", "bob", "$bob"), http.StatusBadRequest, "Invalid email format"},
		{"disallowed url", activateForm("GOOD1234", "bob@example.com", "https://evil.example/pay"), http.StatusBadRequest, "Invalid payment handle"},
		{"already active", activateForm("JSON1234", "eve@example.com", "$eve"), http.StatusBadRequest, "Token is already activated"},
		{"duplicate", activateForm("JSON1234", "ann@example.com", "$ann"), http.StatusBadRequest, "This token has already been activated by this user"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded", c.form)
			if rec.Code != c.status {
				t.Fatalf("want %d, got %d, body=%s", c.status, rec.Code, rec.Body.String())
			}
			msg, _ := decodeMap(t, rec.Body.String())["error"].(string)
			if !strings.HasPrefix(msg, c.msg) {
				t.Errorf("want error %q, got %q", c.msg, msg)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/activate", "application/json", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("oversized field", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded",
			activateForm("GOOD1234", "bob@example.com", strings.Repeat("a", 600)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestServer_RedirectDecisions(t *testing.T) {
	env := newTestEnv(t, noLimit)

	rec := env.do(t, http.MethodGet, "/t/NEWTOKEN1", "", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/activate?token=NEWTOKEN1" {
		t.Fatalf("want 302 to activation, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	for _, path := range []string{"/t/bad!", "/t/abc", "/admin", "/api", "/u"} {
		rec = env.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: want 404, got %d", path, rec.Code)
		}
	}
}

func TestServer_ActivatePrompt(t *testing.T) {
	env := newTestEnv(t, noLimit)

	rec := env.do(t, http.MethodGet, "/activate?token=PROMPT12", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := decodeMap(t, rec.Body.String())
	if body["state"] != "new" || body["token"] != "PROMPT12" {
		t.Errorf("unexpected prompt %v", body)
	}

	body = decodeMap(t, env.do(t, http.MethodGet, "/activate?token=PROMPT12", "", "").Body.String())
	if body["state"] != "available" {
		t.Errorf("expected available on second visit, got %v", body)
	}

	body = decodeMap(t, env.do(t, http.MethodGet, "/activate?token=x", "", "").Body.String())
	if body["state"] != "invalid" || body["token"] != "" {
		t.Errorf("expected invalid with empty token, got %v", body)
	}
}

func TestServer_HealthProfileAndZelle(t *testing.T) {
	env := newTestEnv(t, noLimit)

	rec := env.do(t, http.MethodGet, "/api/health", "", "")
	body := decodeMap(t, rec.Body.String())
	if rec.Code != http.StatusOK || body["status"] != "healthy" || body["service"] != "tagpay-api" {
		t.Fatalf("unexpected health %d %v", rec.Code, body)
	}

	rec = env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded", activateForm("CARD1234", "carol@example.com", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("activate without handle: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec.Body.String())["redirect_url"]; got != "https://tagpay.example/u/carol" {
		t.Fatalf("unexpected profile url %v", got)
	}

	rec = env.do(t, http.MethodGet, "/u/carol", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body = decodeMap(t, rec.Body.String())
	if body["username"] != "carol" || body["display_name"] != "Bob" {
		t.Errorf("unexpected profile %v", body)
	}
	if rec = env.do(t, http.MethodGet, "/u/nobody", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("want 404 for unknown profile, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/pay-by-zelle?email=bob%40example.com&name=Bob&phone=5551234567", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "bob@example.com") || !strings.Contains(page, "(555) 123-4567") {
		t.Errorf("zelle page misses details: %s", page)
	}
	if rec = env.do(t, http.MethodGet, "/pay-by-zelle?email=%3Cscript%3E", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("want 400 for bad zelle params, got %d", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{Requests: 100, ActivateRequests: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded", activateForm("AB", "x@example.com", ""))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("call %d: want 400, got %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/activate", "application/x-www-form-urlencoded", activateForm("AB", "x@example.com", ""))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}

	// Other routes have their own budget.
	if rec = env.do(t, http.MethodGet, "/t/ABCDEF12", "", ""); rec.Code != http.StatusFound {
		t.Errorf("want 302, got %d", rec.Code)
	}
}

func TestServer_TraceIDEchoed(t *testing.T) {
	env := newTestEnv(t, noLimit)
	rec := env.do(t, http.MethodGet, "/api/health", "", "", "X-Request-ID", "trace-123")
	if rec.Header().Get("X-Request-ID") != "trace-123" {
		t.Errorf("expected trace id echo, got %q", rec.Header().Get("X-Request-ID"))
	}
	rec = env.do(t, http.MethodGet, "/api/health", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated trace id")
	}
}
