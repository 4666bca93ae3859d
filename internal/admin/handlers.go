// Package admin provides the HTTP surface around a keyguard.KeyManager: the
// bearer-token protected administration API for issuing and revoking keys,
// and the request guard middleware used by protected routes.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/logging"
	"github.com/ferro-labs/keyguard/internal/metrics"
	"github.com/ferro-labs/keyguard/internal/store"
)

const maxBodyBytes = 64 << 10

// Handlers holds dependencies for admin HTTP handlers.
type Handlers struct {
	Keys *keyguard.KeyManager
	// Lister enumerates stored keys for GET /keys. Nil disables listing.
	Lister store.Lister

	schema *RecordSchema
}

// NewHandlers builds admin handlers over m. lister may be nil.
func NewHandlers(m *keyguard.KeyManager, lister store.Lister) (*Handlers, error) {
	if m == nil {
		return nil, errors.New("admin: key manager is required")
	}
	schema, err := NewRecordSchema()
	if err != nil {
		return nil, err
	}
	return &Handlers{Keys: m, Lister: lister, schema: schema}, nil
}

// keyResponse is the representation of a single key returned by the API.
type keyResponse struct {
	Key    string              `json:"key"`
	Record *keyguard.KeyRecord `json:"record,omitempty"`
	Status keyguard.KeyStatus  `json:"status"`
}

// recordBody is the admin write payload. IsActive defaults to true.
type recordBody struct {
	Issuee     string     `json:"issuee"`
	IsActive   *bool      `json:"isActive"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

func (b recordBody) record() keyguard.KeyRecord {
	rec := keyguard.NewKeyRecord(b.Issuee)
	if b.IsActive != nil {
		rec.IsActive = *b.IsActive
	}
	if b.ExpiryDate != nil {
		rec = rec.WithExpiry(*b.ExpiryDate)
	}
	return rec
}

// Routes returns a chi.Router with all admin endpoints mounted.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/schema", h.getSchema)
	r.Get("/keys", h.listKeys)
	r.Get("/keys/{key}", h.getKey)

	r.Post("/keys", h.createKey)
	r.Put("/keys/{key}", h.upsertKey)
	r.Delete("/keys/{key}", h.deleteKey)
	r.Post("/keys/{key}/activate", h.setActive(true))
	r.Post("/keys/{key}/deactivate", h.setActive(false))

	return r
}

func (h *Handlers) getSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(h.schema.JSON())
}

// readRecord reads and validates a record body. It writes the error response
// itself and reports false when the request must stop.
func (h *Handlers) readRecord(w http.ResponseWriter, r *http.Request) (keyguard.KeyRecord, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "invalid_request_error", "invalid_request")
		return keyguard.KeyRecord{}, false
	}
	if err := h.schema.Validate(raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error", "invalid_request")
		return keyguard.KeyRecord{}, false
	}
	var body recordBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request_error", "invalid_request")
		return keyguard.KeyRecord{}, false
	}
	body.Issuee = strings.TrimSpace(body.Issuee)
	if body.Issuee == "" {
		writeError(w, http.StatusBadRequest, "issuee is required", "invalid_request_error", "invalid_request")
		return keyguard.KeyRecord{}, false
	}
	return body.record(), true
}

func (h *Handlers) createKey(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.readRecord(w, r)
	if !ok {
		return
	}

	key, err := h.Keys.GenerateKey()
	if err != nil {
		h.storeFailure(w, r, "generate key", err)
		return
	}
	if err := h.Keys.Upsert(r.Context(), key, rec); err != nil {
		h.storeFailure(w, r, "create key", err)
		return
	}
	metrics.AdminMutations.WithLabelValues("create").Inc()
	logging.FromContext(r.Context()).Info("api key created", "issuee", rec.IssueeName(), "key", maskKey(key))

	writeJSON(w, http.StatusCreated, keyResponse{Key: key, Record: &rec, Status: h.Keys.Status(&rec)})
}

func (h *Handlers) upsertKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, ok := h.readRecord(w, r)
	if !ok {
		return
	}
	if err := h.Keys.Upsert(r.Context(), key, rec); err != nil {
		h.storeFailure(w, r, "upsert key", err)
		return
	}
	metrics.AdminMutations.WithLabelValues("upsert").Inc()
	logging.FromContext(r.Context()).Info("api key updated", "issuee", rec.IssueeName(), "key", maskKey(key))

	writeJSON(w, http.StatusOK, keyResponse{Key: key, Record: &rec, Status: h.Keys.Status(&rec)})
}

func (h *Handlers) getKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, status, err := h.Keys.Inspect(r.Context(), key)
	if err != nil {
		h.storeFailure(w, r, "get key", err)
		return
	}
	if status == keyguard.StatusDoesNotExist {
		writeError(w, http.StatusNotFound, "key not found", "not_found_error", "resource_not_found")
		return
	}
	writeJSON(w, http.StatusOK, keyResponse{Key: key, Record: rec, Status: status})
}

func (h *Handlers) deleteKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Keys.Delete(r.Context(), key); err != nil {
		h.storeFailure(w, r, "delete key", err)
		return
	}
	metrics.AdminMutations.WithLabelValues("delete").Inc()
	logging.FromContext(r.Context()).Info("api key deleted", "key", maskKey(key))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setActive(active bool) http.HandlerFunc {
	action := "deactivate"
	if active {
		action = "activate"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		rec, status, err := h.Keys.Inspect(r.Context(), key)
		if err != nil {
			h.storeFailure(w, r, action+" key", err)
			return
		}
		if status == keyguard.StatusDoesNotExist {
			writeError(w, http.StatusNotFound, "key not found", "not_found_error", "resource_not_found")
			return
		}

		rec.IsActive = active
		if err := h.Keys.Upsert(r.Context(), key, *rec); err != nil {
			h.storeFailure(w, r, action+" key", err)
			return
		}
		metrics.AdminMutations.WithLabelValues(action).Inc()
		logging.FromContext(r.Context()).Info("api key "+action+"d", "key", maskKey(key))

		writeJSON(w, http.StatusOK, keyResponse{Key: key, Record: rec, Status: h.Keys.Status(rec)})
	}
}

func (h *Handlers) listKeys(w http.ResponseWriter, r *http.Request) {
	if h.Lister == nil {
		writeError(w, http.StatusNotImplemented, "key listing is not supported by this store", "not_implemented_error", "not_implemented")
		return
	}

	var filter *keyguard.KeyStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var s keyguard.KeyStatus
		if err := s.UnmarshalText([]byte(raw)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid status: must be one of does_not_exist, inactive, expired, valid", "invalid_request_error", "invalid_request")
			return
		}
		filter = &s
	}

	prefix := keyguard.StorageKey("")
	storageKeys, err := h.Lister.Keys(r.Context(), prefix)
	if errors.Is(err, store.ErrListUnsupported) {
		writeError(w, http.StatusNotImplemented, "key listing is not supported by this store", "not_implemented_error", "not_implemented")
		return
	}
	if err != nil {
		h.storeFailure(w, r, "list keys", err)
		return
	}

	data := make([]keyResponse, 0, len(storageKeys))
	for _, sk := range storageKeys {
		key := strings.TrimPrefix(sk, prefix)
		rec, status, err := h.Keys.Inspect(r.Context(), key)
		if err != nil {
			h.storeFailure(w, r, "list keys", err)
			return
		}
		if filter != nil && status != *filter {
			continue
		}
		data = append(data, keyResponse{Key: maskKey(key), Record: rec, Status: status})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"summary": map[string]interface{}{
			"total_keys":    len(storageKeys),
			"returned_keys": len(data),
		},
	})
}

func (h *Handlers) storeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	logging.FromContext(r.Context()).Error("admin request failed", "action", action, "error", err)
	if errors.Is(err, keyguard.ErrStoreFailure) {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("%s: key store unavailable", action), "server_error", "store_unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", action), "server_error", "internal_error")
}

// maskKey keeps the first eight characters of a key for display.
func maskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return key
}
