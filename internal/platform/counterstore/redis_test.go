package counterstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts.Addr = mr.Addr()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewRedisStore(context.Background(), opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_GetIncrExpire(t *testing.T) {
	store, mr := newTestStore(t, Options{})
	ctx := context.Background()

	_, found, err := store.Get(ctx, "limit_call_x_1.2.3.4")
	require.NoError(t, err)
	assert.False(t, found)

	v, err := store.Incr(ctx, "limit_call_x_1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, store.Expire(ctx, "limit_call_x_1.2.3.4", time.Minute))

	v, err = store.Incr(ctx, "limit_call_x_1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	value, found, err := store.Get(ctx, "limit_call_x_1.2.3.4")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), value)
	assert.Equal(t, time.Minute, mr.TTL("limit_call_x_1.2.3.4"))

	mr.FastForward(time.Minute)
	_, found, err = store.Get(ctx, "limit_call_x_1.2.3.4")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_SelectsDatabaseAndAuthenticates(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewRedisStore(context.Background(), Options{Addr: mr.Addr(), Password: "wrong"}, logger)
	require.Error(t, err)

	store, err := NewRedisStore(context.Background(), Options{Addr: mr.Addr(), Password: "s3cret", DB: 3}, logger)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Incr(context.Background(), "counter")
	require.NoError(t, err)

	got, err := mr.DB(3).Get("counter")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.False(t, mr.Exists("counter"), "db 0 must stay untouched")
}

func TestRedisStore_GetReconnectsOnceAfterDroppedConnection(t *testing.T) {
	store, mr := newTestStore(t, Options{})
	ctx := context.Background()
	require.NoError(t, mr.Set("k", "4"))

	stale := store.current()
	require.NoError(t, stale.Close())

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(4), value)
	assert.NotSame(t, stale, store.current())
}

func TestRedisStore_ConcurrentReconnectIsSafe(t *testing.T) {
	store, mr := newTestStore(t, Options{})
	require.NoError(t, mr.Set("k", "1"))
	require.NoError(t, store.current().Close())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Get(context.Background(), "k")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRedisStore_ReconnectFailureIsUnavailable(t *testing.T) {
	store, mr := newTestStore(t, Options{DialTimeout: 200 * time.Millisecond})
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = store.Incr(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsConnectionClosed(t *testing.T) {
	assert.True(t, isConnectionClosed(redis.ErrClosed))
	assert.True(t, isConnectionClosed(io.EOF))
	assert.False(t, isConnectionClosed(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")))
	assert.False(t, isConnectionClosed(redis.Nil))
}
