package keyguard

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KeyRecord is the metadata stored for a single API key.
//
// Issuee is what makes a record exist: a record without an issuee is
// treated exactly like a missing one.
type KeyRecord struct {
	// Issuee identifies who the key was issued to.
	Issuee *string `json:"issuee,omitempty" jsonschema:"required,minLength=1"`
	// IsActive is the administrative on/off switch.
	IsActive bool `json:"isActive" jsonschema:"default=true"`
	// ExpiryDate, when set, is the instant after which the key is expired.
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// NewKeyRecord returns an active record issued to issuee with no expiry.
func NewKeyRecord(issuee string) KeyRecord {
	return KeyRecord{Issuee: &issuee, IsActive: true}
}

// WithExpiry returns a copy of r expiring at t.
func (r KeyRecord) WithExpiry(t time.Time) KeyRecord {
	r.ExpiryDate = &t
	return r
}

// IssueeName returns the issuee or "" when unset.
func (r *KeyRecord) IssueeName() string {
	if r == nil || r.Issuee == nil {
		return ""
	}
	return *r.Issuee
}

// KeyStatus is the derived usability of a key. It is computed at query time
// and never persisted.
type KeyStatus int

// The four key states, in evaluation order.
const (
	StatusDoesNotExist KeyStatus = iota
	StatusInactive
	StatusExpired
	StatusValid
)

var statusNames = map[KeyStatus]string{
	StatusDoesNotExist: "does_not_exist",
	StatusInactive:     "inactive",
	StatusExpired:      "expired",
	StatusValid:        "valid",
}

func (s KeyStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("KeyStatus(%d)", int(s))
}

// MarshalText encodes the status by name so JSON responses stay readable.
func (s KeyStatus) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown key status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *KeyStatus) UnmarshalText(text []byte) error {
	want := strings.ToLower(strings.TrimSpace(string(text)))
	for status, name := range statusNames {
		if name == want {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown key status %q", string(text))
}

// decodeRecord turns a raw stored value into a record. Empty values and JSON
// null decode to nil, the "absent" record.
func decodeRecord(raw []byte) (*KeyRecord, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var rec KeyRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
