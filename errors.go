package keyguard

import (
	"errors"
	"fmt"
)

// Failures returned by KeyManager. Callers match them with errors.Is.
var (
	// ErrMissingKey means the request carried no usable key header.
	ErrMissingKey = errors.New("API key was not specified in request header")
	// ErrUnknownKey means no record exists for the presented key.
	ErrUnknownKey = errors.New("API key does not exist")
	// ErrInvalidKey means the key exists but is inactive or expired.
	ErrInvalidKey = errors.New("API key is invalid")
	// ErrStoreFailure matches every *StoreError.
	ErrStoreFailure = errors.New("config store failure")
)

// StoreError wraps a failure of the ConfigStore collaborator, including a
// stored value that cannot be decoded.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("config store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrStoreFailure as a match so callers need not type-assert.
func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }
