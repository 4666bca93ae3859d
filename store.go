package keyguard

import "context"

// KeyPrefix namespaces every key record inside a shared ConfigStore.
const KeyPrefix = "APIKeys"

const keySeparator = "/"

// ConfigStore is the key-value backend KeyManager persists records in.
// Implementations live in internal/store; any type with these two methods
// works, which keeps test doubles trivial.
type ConfigStore interface {
	// Get returns the value stored under key. A missing key is not an error:
	// implementations return a nil or empty value instead.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// StorageKey returns the namespaced store key for an API key.
func StorageKey(key string) string {
	return KeyPrefix + keySeparator + key
}
