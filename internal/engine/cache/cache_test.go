package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEntry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	data := json.RawMessage(`{"foo":"bar"}`)

	t.Run("Expiration", func(t *testing.T) {
		entry := NewCacheEntry("k", data, time.Minute, now)
		assert.Equal(t, 60, entry.TTLSeconds)
		assert.False(t, entry.ExpiredAt(now))
		assert.False(t, entry.ExpiredAt(now.Add(time.Minute)))
		assert.True(t, entry.ExpiredAt(now.Add(time.Minute+time.Nanosecond)))
	})

	t.Run("NoTTLNeverExpires", func(t *testing.T) {
		entry := NewCacheEntry("k", data, 0, now)
		assert.True(t, entry.ExpiresAt.IsZero())
		assert.False(t, entry.ExpiredAt(now.AddDate(10, 0, 0)))
	})

	t.Run("JSON", func(t *testing.T) {
		entry := NewCacheEntry("k", data, time.Hour, now.Add(123*time.Millisecond))
		encoded, err := json.Marshal(entry)
		require.NoError(t, err)

		var decoded CacheEntry
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, entry.Key, decoded.Key)
		assert.True(t, entry.CreatedAt.Equal(decoded.CreatedAt))
		assert.True(t, entry.ExpiresAt.Equal(decoded.ExpiresAt))
		assert.JSONEq(t, string(data), string(decoded.Data))
	})
}

// storeContract exercises the behaviour every Store backend shares.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	data := []byte(`{"totalEmissions":2.1}`)

	_, err := store.Get(ctx, "stats:u1")
	require.ErrorIs(t, err, ErrCacheNotFound)
	assert.True(t, IsMiss(err))

	require.NoError(t, store.Set(ctx, "stats:u1", data))
	got, err := store.Get(ctx, "stats:u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(got))

	require.NoError(t, store.Set(ctx, "stats:u1", []byte(`{"totalEmissions":3}`)))
	got, err = store.Get(ctx, "stats:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalEmissions":3}`, string(got))

	require.NoError(t, store.Delete(ctx, "stats:u1"))
	_, err = store.Get(ctx, "stats:u1")
	require.ErrorIs(t, err, ErrCacheNotFound)

	require.NoError(t, store.Delete(ctx, "stats:u1"), "delete is idempotent")

	_, err = store.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidCacheKey)
	require.ErrorIs(t, store.Set(ctx, "", data), ErrInvalidCacheKey)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))

	t.Run("Expiration", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		store := NewMemoryStore(time.Minute).WithClock(func() time.Time { return now })
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "k", []byte(`1`)))
		now = now.Add(2 * time.Minute)
		_, err := store.Get(ctx, "k")
		require.ErrorIs(t, err, ErrCacheExpired)
		assert.Zero(t, store.Len())
	})

	t.Run("CopiesBytes", func(t *testing.T) {
		store := NewMemoryStore(0)
		ctx := context.Background()
		buf := []byte(`"a"`)
		require.NoError(t, store.Set(ctx, "k", buf))
		buf[1] = 'b'
		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `"a"`, string(got))
	})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Directory())

	storeContract(t, store)

	t.Run("SanitisedKeysDoNotCollide", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "a/b", []byte(`1`)))
		require.NoError(t, store.Set(ctx, "a:b", []byte(`2`)))

		got, err := store.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
		got, err = store.Get(ctx, "a:b")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})

	t.Run("RejectsNonJSON", func(t *testing.T) {
		assert.Error(t, store.Set(context.Background(), "raw", []byte("not json")))
	})

	t.Run("ExpirationCleanup", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		short, err := NewFileStore(t.TempDir(), time.Minute)
		require.NoError(t, err)
		short.WithClock(clock)
		ctx := context.Background()

		require.NoError(t, short.Set(ctx, "old", []byte(`1`)))
		require.NoError(t, short.Set(ctx, "older", []byte(`2`)))
		now = now.Add(time.Hour)
		require.NoError(t, short.Set(ctx, "fresh", []byte(`3`)))

		_, err = short.Get(ctx, "old")
		require.ErrorIs(t, err, ErrCacheExpired)

		removed, err := short.CleanupExpired()
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		count, err := short.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		_, err := NewFileStore("", time.Hour)
		assert.Error(t, err)
	})
}

func TestNopStore(t *testing.T) {
	ctx := context.Background()
	var s NopStore
	require.NoError(t, s.Set(ctx, "k", []byte(`1`)))
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheDisabled)
	assert.True(t, IsMiss(err))
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("ECOLIFE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ECOLIFE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisConfig{Addr: addr, KeyPrefix: "ecolife-test:", TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	storeContract(t, store)
}

func TestRedisStoreFromClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("contract", func(t *testing.T) {
		storeContract(t, NewRedisStoreFromClient(client, "contract:", time.Minute))
	})

	t.Run("default prefix and ttl", func(t *testing.T) {
		store := NewRedisStoreFromClient(client, "", time.Hour)
		require.NoError(t, store.Set(ctx, "stats:u1", []byte(`{"totalEmissions":2.1}`)))

		raw, err := mr.Get(DefaultRedisKeyPrefix + "stats:u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"totalEmissions":2.1}`, raw)
		assert.False(t, mr.Exists("stats:u1"), "keys are always prefixed")
		assert.Equal(t, time.Hour, mr.TTL(DefaultRedisKeyPrefix+"stats:u1"))

		mr.FastForward(time.Hour + time.Second)
		_, err = store.Get(ctx, "stats:u1")
		require.ErrorIs(t, err, ErrCacheNotFound)
	})

	t.Run("negative ttl keeps keys", func(t *testing.T) {
		store := NewRedisStoreFromClient(client, "forever:", -time.Second)
		require.NoError(t, store.Set(ctx, "k", []byte(`1`)))
		assert.Zero(t, mr.TTL("forever:k"))
	})

	t.Run("prefixes isolate stores", func(t *testing.T) {
		a := NewRedisStoreFromClient(client, "a:", 0)
		b := NewRedisStoreFromClient(client, "b:", 0)
		require.NoError(t, a.Set(ctx, "k", []byte(`"a"`)))

		_, err := b.Get(ctx, "k")
		require.ErrorIs(t, err, ErrCacheNotFound)
		require.NoError(t, b.Delete(ctx, "k"))
		got, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `"a"`, string(got))
	})

	t.Run("server errors are not misses", func(t *testing.T) {
		mr.SetError("ERR injected failure")
		t.Cleanup(func() { mr.SetError("") })
		store := NewRedisStoreFromClient(client, "", 0)

		_, err := store.Get(ctx, "k")
		require.Error(t, err)
		assert.False(t, IsMiss(err))
		assert.Error(t, store.Set(ctx, "k", []byte(`1`)))
		assert.Error(t, store.Delete(ctx, "k"))
	})
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	assert.Error(t, err)
}

func TestTTL(t *testing.T) {
	t.Run("FormatDuration", func(t *testing.T) {
		assert.Equal(t, "30s", FormatDuration(30*time.Second))
		assert.Equal(t, "5m", FormatDuration(5*time.Minute))
		assert.Equal(t, "2h", FormatDuration(2*time.Hour))
		assert.Equal(t, "2h30m", FormatDuration(2*time.Hour+30*time.Minute))
		assert.Equal(t, "3d", FormatDuration(72*time.Hour))
		assert.Equal(t, "3d2h", FormatDuration(74*time.Hour))
	})

	t.Run("ParseTTL", func(t *testing.T) {
		ttl, err := ParseTTL("3600")
		require.NoError(t, err)
		assert.Equal(t, time.Hour, ttl)

		ttl, err = ParseTTL("1h30m")
		require.NoError(t, err)
		assert.Equal(t, 90*time.Minute, ttl)

		_, err = ParseTTL("10")
		require.ErrorIs(t, err, ErrInvalidTTL)

		_, err = ParseTTL("invalid")
		assert.Error(t, err)
	})

	t.Run("Env", func(t *testing.T) {
		t.Setenv(EnvTTL, "2h")
		assert.Equal(t, 2*time.Hour, TTLFromEnv(DefaultTTL))

		t.Setenv(EnvTTL, "garbage")
		assert.Equal(t, DefaultTTL, TTLFromEnv(DefaultTTL))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: "FILE", Directory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendNone})
	require.NoError(t, err)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheDisabled)

	_, err = Open(ctx, Options{Backend: BackendFile})
	require.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendRedis})
	require.Error(t, err)

	_, err = Open(ctx, Options{Backend: "memcached"})
	assert.Error(t, err)
}
