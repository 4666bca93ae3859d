package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/store"
)

const testToken = "test-admin-token"

func testRouter(t *testing.T, adminToken string, origins ...string) (http.Handler, *keyguard.KeyManager) {
	t.Helper()
	s := store.Instrument(store.NewMemory(), "memory-test")
	m, err := keyguard.NewKeyManager(s)
	if err != nil {
		t.Fatalf("new key manager: %v", err)
	}
	r, err := newRouter(m, s, adminToken, origins)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return r, m
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := testRouter(t, "")

	// One guarded request so the key check counter has a sample.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/whoami", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "keyguard_key_checks_total") {
		t.Error("metrics output missing keyguard_key_checks_total")
	}
}

func TestWhoami(t *testing.T) {
	r, m := testRouter(t, "")
	expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	if err := m.Upsert(context.Background(), "client-key", keyguard.NewKeyRecord("acme").WithExpiry(expiry)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set("X-Api-Key", "  client-key ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["issuee"] != "acme" {
		t.Errorf("issuee = %q, want acme", body["issuee"])
	}
	if body["expiryDate"] != expiry.Format(time.RFC3339) {
		t.Errorf("expiryDate = %q, want %q", body["expiryDate"], expiry.Format(time.RFC3339))
	}
}

func TestWhoamiRejectsMissingKey(t *testing.T) {
	r, _ := testRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	r, _ := testRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminIssueThenUse(t *testing.T) {
	r, _ := testRouter(t, testToken)

	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"issuee":"svc"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(keyguard.DefaultHeader, created.Key)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("whoami: status = %d, want 200: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/keys/"+created.Key+"/deactivate", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(keyguard.DefaultHeader, created.Key)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("whoami after deactivate: status = %d, want 403", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := testRouter(t, "", "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/v1/whoami", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Api-Key") {
		t.Errorf("Allow-Headers = %q, want it to include the key header", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/whoami", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin got Allow-Origin %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := keyguard.DefaultConfig()
	applyEnv(&cfg)

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestBackendName(t *testing.T) {
	if got := backendName(keyguard.StoreConfig{}); got != "memory" {
		t.Errorf("backendName(empty) = %q", got)
	}
	if got := backendName(keyguard.StoreConfig{Backend: keyguard.BackendRedis}); got != "redis" {
		t.Errorf("backendName(redis) = %q", got)
	}
}
