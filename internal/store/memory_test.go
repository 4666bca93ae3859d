package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImplementsStore(_ *testing.T) {
	var _ Store = (*Memory)(nil)
	var _ Lister = (*Memory)(nil)
}

func TestMemoryContract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_KeysPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "APIKeys/b", nil))
	require.NoError(t, m.Set(ctx, "APIKeys/a", nil))
	require.NoError(t, m.Set(ctx, "Other/c", nil))

	keys, err := m.Keys(ctx, "APIKeys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"APIKeys/a", "APIKeys/b"}, keys)
}
