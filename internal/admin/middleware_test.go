package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/metrics"
	"github.com/ferro-labs/keyguard/internal/store"
)

func guardFixture(t *testing.T) *keyguard.KeyManager {
	t.Helper()
	m := newTestManager(t, store.NewMemory())
	ctx := context.Background()

	inactive := keyguard.NewKeyRecord("inactive-user")
	inactive.IsActive = false
	for key, rec := range map[string]keyguard.KeyRecord{
		"good":     keyguard.NewKeyRecord("alice"),
		"inactive": inactive,
		"expired":  keyguard.NewKeyRecord("bob").WithExpiry(testNow.Add(-time.Minute)),
	} {
		if err := m.Upsert(ctx, key, rec); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}
	return m
}

func echoIssuee(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := KeyRecordFromContext(r.Context())
		if !ok {
			t.Error("expected key record in context")
			return
		}
		_, _ = w.Write([]byte(rec.IssueeName()))
	})
}

func keyRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if key != "" {
		req.Header.Set(keyguard.DefaultHeader, key)
	}
	return req
}

func TestRequireValidKey(t *testing.T) {
	m := guardFixture(t)
	handler := RequireValidKey(m)(echoIssuee(t))

	tests := []struct {
		key      string
		wantCode int
		wantErr  string
		wantBody string
	}{
		{key: "", wantCode: http.StatusUnauthorized, wantErr: "missing_api_key"},
		{key: "unknown", wantCode: http.StatusUnauthorized, wantErr: "invalid_api_key"},
		{key: "inactive", wantCode: http.StatusForbidden, wantErr: "inactive_api_key"},
		{key: "expired", wantCode: http.StatusForbidden, wantErr: "inactive_api_key"},
		{key: "good", wantCode: http.StatusOK, wantBody: "alice"},
	}
	for _, tt := range tests {
		t.Run("key="+tt.key, func(t *testing.T) {
			w := serve(handler, keyRequest(tt.key))
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr != "" {
				if code := errorCode(t, w); code != tt.wantErr {
					t.Errorf("got code %q, want %q", code, tt.wantErr)
				}
				return
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("got body %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireExistingKeyAllowsUnusableKeys(t *testing.T) {
	m := guardFixture(t)
	handler := RequireExistingKey(m)(echoIssuee(t))

	for key, want := range map[string]string{"inactive": "inactive-user", "expired": "bob", "good": "alice"} {
		w := serve(handler, keyRequest(key))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Errorf("key %s: got %d %q, want 200 %q", key, w.Code, w.Body.String(), want)
		}
	}

	if w := serve(handler, keyRequest("unknown")); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown key: got %d, want 401", w.Code)
	}
}

func TestGuardStoreFailure(t *testing.T) {
	handler := RequireValidKey(newTestManager(t, brokenStore{}))(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be called")
	}))

	w := serve(handler, keyRequest("anything"))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503", w.Code)
	}
	if code := errorCode(t, w); code != "store_unavailable" {
		t.Errorf("got code %q, want store_unavailable", code)
	}
}

func keyChecks(t *testing.T, operation, outcome string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := metrics.KeyChecks.WithLabelValues(operation, outcome).Write(m); err != nil {
		t.Fatalf("read metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestGuardRecordsMetrics(t *testing.T) {
	m := guardFixture(t)
	handler := RequireExistingKey(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	before := keyChecks(t, "require_existing", "missing")
	serve(handler, keyRequest(""))
	serve(handler, keyRequest("   "))
	after := keyChecks(t, "require_existing", "missing")
	if after-before != 2 {
		t.Errorf("expected 2 missing checks recorded, got %v", after-before)
	}
}

func TestWriteErrorDefaults(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusNotFound, "gone", "", "")
	if code := errorCode(t, w); code != "not_found_error" {
		t.Errorf("got code %q, want not_found_error", code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("got content type %q", ct)
	}
}
