package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreImplementsStore(_ *testing.T) {
	var _ Store = (*RedisStore)(nil)
	var _ Lister = (*RedisStore)(nil)
}

func TestRedisStoreContract(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, s)
}

func TestRedisStore_StoresPlainStrings(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(context.Background(), "APIKeys/k", []byte("{}")))
	raw, err := mr.Get("APIKeys/k")
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
	assert.Zero(t, mr.TTL("APIKeys/k"), "entries must not expire")
}

func TestRedisStore_SharedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "APIKeys/shared", `{"issuee":"ops"}`, 0).Err())
	got, err := s.Get(ctx, "APIKeys/shared")
	require.NoError(t, err)
	assert.Equal(t, `{"issuee":"ops"}`, string(got))

	runStoreContract(t, s)
}

func TestRedisStore_ConnectFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestRedisStore_GetErrorPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mr.SetError("ERR injected failure")
	_, err = s.Get(context.Background(), "APIKeys/k")
	require.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `APIKeys/a\*b\?`, escapeGlob("APIKeys/a*b?"))
}
