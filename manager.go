// Package keyguard issues, validates and administers API keys kept in an
// external key-value store.
//
// A KeyManager answers one question for an inbound request: does it carry a
// recognized, currently usable key? Key metadata lives in a ConfigStore under
// the "APIKeys/" namespace; the manager holds no state of its own beyond its
// configuration.
package keyguard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHeader is the request header KeyManager reads the key from.
// Header lookup is case-insensitive.
const DefaultHeader = "x-api-key"

// emptyRecord is written on delete. It carries no issuee, so the slot reads
// back as StatusDoesNotExist while remaining present in the store.
var emptyRecord = []byte("{}")

// IDGenerator produces a fresh, effectively unique identifier.
type IDGenerator func() (string, error)

// Option configures a KeyManager.
type Option func(*KeyManager)

// WithHeader overrides the request header holding the API key.
func WithHeader(name string) Option {
	return func(m *KeyManager) {
		if name = strings.TrimSpace(name); name != "" {
			m.header = name
		}
	}
}

// WithIDGenerator replaces the generator used by GenerateKey.
func WithIDGenerator(gen IDGenerator) Option {
	return func(m *KeyManager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *KeyManager) {
		if now != nil {
			m.now = now
		}
	}
}

// KeyManager evaluates request authentication and administers key records.
// It is safe for concurrent use; all consistency guarantees on concurrent
// writes come from the underlying ConfigStore.
type KeyManager struct {
	store  ConfigStore
	header string
	newID  IDGenerator
	now    func() time.Time
}

// NewKeyManager creates a KeyManager backed by store.
func NewKeyManager(store ConfigStore, opts ...Option) (*KeyManager, error) {
	if store == nil {
		return nil, errors.New("config store is required")
	}
	m := &KeyManager{
		store:  store,
		header: DefaultHeader,
		newID:  uuidV1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Header returns the request header name the manager reads keys from.
func (m *KeyManager) Header() string { return m.header }

// RequireExistingKey returns the record for the key presented in r. The
// record may still be inactive or expired; only existence is asserted.
func (m *KeyManager) RequireExistingKey(r *http.Request) (*KeyRecord, error) {
	key := m.keyFromRequest(r)
	if key == "" {
		return nil, ErrMissingKey
	}
	rec, err := m.lookup(requestContext(r), key)
	if err != nil {
		return nil, err
	}
	if m.Status(rec) == StatusDoesNotExist {
		return nil, ErrUnknownKey
	}
	return rec, nil
}

// RequireValidKey is RequireExistingKey plus a check that the key is
// currently usable. Inactive and expired keys both yield ErrInvalidKey.
func (m *KeyManager) RequireValidKey(r *http.Request) (*KeyRecord, error) {
	rec, err := m.RequireExistingKey(r)
	if err != nil {
		return nil, err
	}
	if m.Status(rec) != StatusValid {
		return nil, ErrInvalidKey
	}
	return rec, nil
}

// GenerateKey returns a new identifier suitable for use as an API key.
// No check is made against existing records.
func (m *KeyManager) GenerateKey() (string, error) {
	return m.newID()
}

// Upsert stores rec under key, overwriting any previous record.
func (m *KeyManager) Upsert(ctx context.Context, key string, rec KeyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &StoreError{Op: "encode", Key: StorageKey(key), Err: err}
	}
	return m.set(ctx, key, data)
}

// Delete clears the record under key. Deleting an unknown key is not an
// error, and the storage slot itself is left in place.
func (m *KeyManager) Delete(ctx context.Context, key string) error {
	return m.set(ctx, key, emptyRecord)
}

// Status classifies rec against the current time. A record without a
// non-empty issuee does not exist. The checks run in a fixed
// order: existence, then the active flag, then expiry, so a deactivated key
// that has also expired reports StatusInactive.
func (m *KeyManager) Status(rec *KeyRecord) KeyStatus {
	if rec == nil || rec.Issuee == nil || *rec.Issuee == "" {
		return StatusDoesNotExist
	}
	if !rec.IsActive {
		return StatusInactive
	}
	if rec.ExpiryDate != nil && rec.ExpiryDate.Before(m.now()) {
		return StatusExpired
	}
	return StatusValid
}

// Inspect returns the stored record for key together with its status. It is
// the administrative read path and does not involve a request.
func (m *KeyManager) Inspect(ctx context.Context, key string) (*KeyRecord, KeyStatus, error) {
	rec, err := m.lookup(ctx, key)
	if err != nil {
		return nil, StatusDoesNotExist, err
	}
	return rec, m.Status(rec), nil
}

func (m *KeyManager) lookup(ctx context.Context, key string) (*KeyRecord, error) {
	storageKey := StorageKey(key)
	raw, err := m.store.Get(ctx, storageKey)
	if err != nil {
		return nil, &StoreError{Op: "get", Key: storageKey, Err: err}
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, &StoreError{Op: "decode", Key: storageKey, Err: err}
	}
	return rec, nil
}

func (m *KeyManager) set(ctx context.Context, key string, data []byte) error {
	storageKey := StorageKey(key)
	if err := m.store.Set(ctx, storageKey, data); err != nil {
		return &StoreError{Op: "set", Key: storageKey, Err: err}
	}
	return nil
}

func (m *KeyManager) keyFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(m.header))
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

func uuidV1() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
