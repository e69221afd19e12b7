package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deninthomas/housewarming/internal/admin"
	"github.com/deninthomas/housewarming/internal/config"
	"github.com/deninthomas/housewarming/internal/store"
)

const testPassword = "hunter2"

func init() {
	gin.SetMode(gin.TestMode)
}

// setupServer builds the router exactly as main does: rate limiter, OpenAPI
// validator and all routes on one engine.
func setupServer(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		AdminPassword: testPassword,
		InviteExpiry:  time.Now().Add(24 * time.Hour).UTC(),
		// Reason: tests fire many requests back to back
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}

	s, err := store.NewBBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r, err := newRouter(cfg, s, admin.NewSessions())
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return r
}

func doJSON(r *gin.Engine, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine) *http.Cookie {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/admin/login", map[string]string{"password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == admin.CookieName {
			return c
		}
	}
	t.Fatal("expected admin_token cookie to be set")
	return nil
}

// Unauthenticated admin requests get 401 no matter how broken the payload
// is: auth is decided before the body is validated.
func TestServer_UnauthorizedBeatsInvalidPayload(t *testing.T) {
	r := setupServer(t)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/invite/generate", map[string]any{}},
		{http.MethodPost, "/invite/generate", map[string]any{"guestName": "Asha"}},
		{http.MethodPut, "/admin/invite/some-token/toggle-multidevice", map[string]any{}},
		{http.MethodPut, "/admin/invite/some-token/toggle-multidevice", map[string]any{"allow": true}},
		{http.MethodGet, "/admin/invites", nil},
		{http.MethodDelete, "/admin/invite/some-token/delete", nil},
		{http.MethodPost, "/admin/logout", nil},
	}

	for _, tc := range cases {
		w := doJSON(r, tc.method, tc.path, tc.body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d: %s", tc.method, tc.path, w.Code, w.Body.String())
		}
	}
}

func TestServer_BogusCookieStillUnauthorized(t *testing.T) {
	r := setupServer(t)

	bogus := &http.Cookie{Name: admin.CookieName, Value: "not-a-session"}
	w := doJSON(r, http.MethodPost, "/invite/generate", map[string]any{}, bogus)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

// Once logged in, payload validation takes over.
func TestServer_InvalidPayloadAfterLoginIs400(t *testing.T) {
	r := setupServer(t)
	c := login(t, r)

	w := doJSON(r, http.MethodPost, "/invite/generate", map[string]any{}, c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodPut, "/admin/invite/some-token/toggle-multidevice", map[string]any{}, c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_GenerateAndViewThroughFullStack(t *testing.T) {
	r := setupServer(t)
	c := login(t, r)

	w := doJSON(r, http.MethodPost, "/invite/generate", map[string]any{"guestName": "Asha"}, c)
	if w.Code != http.StatusOK {
		t.Fatalf("generate failed: %d %s", w.Code, w.Body.String())
	}

	var gen struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&gen); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	w = doJSON(r, http.MethodGet, "/invite/"+gen.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on first visit, got %d: %s", w.Code, w.Body.String())
	}

	var view struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if view.Message != "Invite valid" {
		t.Fatalf("expected 'Invite valid', got %q", view.Message)
	}
}

func TestServer_UnknownRouteRejected(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodGet, "/not-in-spec", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
