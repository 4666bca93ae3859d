package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/logging"
	"github.com/ferro-labs/keyguard/internal/metrics"
)

type contextKey string

const keyRecordContextKey contextKey = "key_record"

// KeyRecordFromContext returns the record stored by RequireValidKey or
// RequireExistingKey.
func KeyRecordFromContext(ctx context.Context) (*keyguard.KeyRecord, bool) {
	rec, ok := ctx.Value(keyRecordContextKey).(*keyguard.KeyRecord)
	return rec, ok
}

// AdminAuth returns a chi-compatible middleware that accepts only
// "Authorization: Bearer <token>". An empty token rejects every request.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization header", "authentication_error", "missing_admin_token")
				return
			}
			presented := strings.TrimPrefix(auth, "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token", "authentication_error", "invalid_admin_token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireValidKey rejects requests whose key is missing, unknown, inactive
// or expired.
func RequireValidKey(m *keyguard.KeyManager) func(http.Handler) http.Handler {
	return guard("require_valid", m.RequireValidKey)
}

// RequireExistingKey rejects requests whose key is missing or unknown. The
// record may still be inactive or expired.
func RequireExistingKey(m *keyguard.KeyManager) func(http.Handler) http.Handler {
	return guard("require_existing", m.RequireExistingKey)
}

func guard(operation string, check func(*http.Request) (*keyguard.KeyRecord, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, err := check(r)
			if err != nil {
				outcome := writeKeyError(w, r, err)
				metrics.KeyChecks.WithLabelValues(operation, outcome).Inc()
				return
			}
			metrics.KeyChecks.WithLabelValues(operation, "valid").Inc()
			ctx := context.WithValue(r.Context(), keyRecordContextKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeKeyError maps a KeyManager failure to an HTTP response and returns
// the metrics outcome label.
func writeKeyError(w http.ResponseWriter, r *http.Request, err error) string {
	switch {
	case errors.Is(err, keyguard.ErrMissingKey):
		writeError(w, http.StatusUnauthorized, err.Error(), "authentication_error", "missing_api_key")
		return "missing"
	case errors.Is(err, keyguard.ErrUnknownKey):
		writeError(w, http.StatusUnauthorized, err.Error(), "authentication_error", "invalid_api_key")
		return "unknown"
	case errors.Is(err, keyguard.ErrInvalidKey):
		writeError(w, http.StatusForbidden, err.Error(), "permission_error", "inactive_api_key")
		return "invalid"
	case errors.Is(err, keyguard.ErrStoreFailure):
		logging.FromContext(r.Context()).Error("key check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "key store unavailable", "server_error", "store_unavailable")
		return "store_error"
	default:
		logging.FromContext(r.Context()).Error("key check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "server_error", "internal_error")
		return "store_error"
	}
}
