package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferro-labs/keyguard"
)

// runStoreContract checks the ConfigStore contract every backend must meet,
// then drives a KeyManager on top of it.
func runStoreContract(t *testing.T, s keyguard.ConfigStore) {
	t.Helper()
	ctx := context.Background()

	missing, err := s.Get(ctx, "APIKeys/contract-missing")
	require.NoError(t, err, "missing key must not be an error")
	assert.Empty(t, missing)

	require.NoError(t, s.Set(ctx, "APIKeys/contract-a", []byte(`{"issuee":"alice","isActive":true}`)))
	got, err := s.Get(ctx, "APIKeys/contract-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"issuee":"alice","isActive":true}`, string(got))

	require.NoError(t, s.Set(ctx, "APIKeys/contract-a", []byte(`{}`)))
	got, err = s.Get(ctx, "APIKeys/contract-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(got), "set must overwrite")

	m, err := keyguard.NewKeyManager(s)
	require.NoError(t, err)

	require.NoError(t, m.Upsert(ctx, "contract-b", keyguard.NewKeyRecord("bob")))
	rec, status, err := m.Inspect(ctx, "contract-b")
	require.NoError(t, err)
	assert.Equal(t, keyguard.StatusValid, status)
	assert.Equal(t, "bob", rec.IssueeName())

	require.NoError(t, m.Delete(ctx, "contract-b"))
	require.NoError(t, m.Delete(ctx, "contract-b"))
	_, status, err = m.Inspect(ctx, "contract-b")
	require.NoError(t, err)
	assert.Equal(t, keyguard.StatusDoesNotExist, status)

	if lister, ok := s.(Lister); ok {
		keys, err := lister.Keys(ctx, keyguard.KeyPrefix+"/contract-")
		require.NoError(t, err)
		assert.Equal(t, []string{"APIKeys/contract-a", "APIKeys/contract-b"}, keys,
			"soft-deleted slots must still be listed")
	}
}
