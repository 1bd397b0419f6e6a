package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract checks the behavior every Store must share.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "count")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "count", "0"))
	v, err := s.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	require.NoError(t, s.Set(ctx, "count", "1"))
	v, err = s.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, s.Set(ctx, "name", `"spool"`))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "name"}, keys)

	require.NoError(t, s.Delete(ctx, "count"))
	require.NoError(t, s.Delete(ctx, "missing"))
	_, err = s.Get(ctx, "count")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, keys)

	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	runContract(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runContract(t, NewRedisFromClient(client, WithPrefix("test:")))

	// Values live under the configured prefix.
	assert.True(t, mr.Exists("test:name"))
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(mr.Addr(), "", 0, WithTTL(time.Minute))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "v"))
	assert.Equal(t, time.Minute, mr.TTL("spool:state:k"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	runContract(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(Config{Driver: DriverSQLite})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(Config{Driver: DriverRedis, Address: mr.Addr(), Prefix: "p:"})
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "a", "1"))
	assert.True(t, mr.Exists("p:a"))
	require.NoError(t, s.Close())

	_, err = Open(Config{Driver: "etcd"})
	assert.Error(t, err)
}
