package store

import (
	"context"
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
)

const defaultVaultMount = "secret"

// VaultStore keeps entries as KV v2 secrets. Each entry is a secret at
// <mount>/data/<key> holding a single "value" field.
type VaultStore struct {
	client *vaultapi.Client
	mount  string
}

// NewVaultStore creates a Vault KV v2 store. An empty token leaves the
// client's environment-derived token (VAULT_TOKEN) in place.
func NewVaultStore(address, token, mount string) (*VaultStore, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}
	if address = strings.TrimSpace(address); address != "" {
		cfg.Address = address
	}
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	mount = strings.Trim(strings.TrimSpace(mount), "/")
	if mount == "" {
		mount = defaultVaultMount
	}
	return &VaultStore{client: client, mount: mount}, nil
}

func (s *VaultStore) path(key string) string {
	return fmt.Sprintf("%s/data/%s", s.mount, key)
}

// Get returns the value under key, or nil when the secret does not exist or
// has been destroyed.
func (s *VaultStore) Get(ctx context.Context, key string) ([]byte, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.path(key))
	if err != nil {
		return nil, fmt.Errorf("vault read: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, nil
	}
	value, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("vault read: secret %s has no string value", s.path(key))
	}
	return []byte(value), nil
}

// Set writes a new secret version for key.
func (s *VaultStore) Set(ctx context.Context, key string, value []byte) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{"value": string(value)},
	}
	if _, err := s.client.Logical().WriteWithContext(ctx, s.path(key), payload); err != nil {
		return fmt.Errorf("vault write: %w", err)
	}
	return nil
}

// Close is a no-op; the Vault client holds no long-lived connection.
func (s *VaultStore) Close() error { return nil }
