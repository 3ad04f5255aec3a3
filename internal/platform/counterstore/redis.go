package counterstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the counter store can't serve a command,
// including after a reconnect attempt.
var ErrUnavailable = errors.New("counter store unavailable")

// Options configure the Redis connection. Password and DB are applied on
// every new connection (AUTH, SELECT).
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisStore is a shared atomic-counter client (GET, INCR, EXPIRE).
// The underlying client is replaced when a dropped connection is detected.
type RedisStore struct {
	opts   *redis.Options
	logger *slog.Logger

	mu     sync.RWMutex
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts Options, logger *slog.Logger) (*RedisStore, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	s := &RedisStore{
		opts: &redis.Options{
			Addr:        opts.Addr,
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: opts.DialTimeout,
			// Recovery from dropped connections is handled by withReconnect.
			MaxRetries: -1,
		},
		logger: logger.With("component", "counter_store"),
	}

	client := redis.NewClient(s.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	s.client = client
	return s, nil
}

// Get returns the counter stored at key. found is false when the key doesn't exist.
// A dropped connection triggers one reconnect and one retry.
func (s *RedisStore) Get(ctx context.Context, key string) (value int64, found bool, err error) {
	err = s.withReconnect(ctx, func(c *redis.Client) error {
		v, getErr := c.Get(ctx, key).Int64()
		if errors.Is(getErr, redis.Nil) {
			value, found = 0, false
			return nil
		}
		if getErr != nil {
			return getErr
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

// Incr atomically increments the counter at key and returns the new value.
// Not retried: the command may have been applied before the connection dropped.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	v, err := s.current().Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: INCR %s: %v", ErrUnavailable, key, err)
	}
	return v, nil
}

// Expire sets a TTL on key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.current().Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: EXPIRE %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close releases the current connection pool.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Close()
}

func (s *RedisStore) current() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// withReconnect runs op once. If it fails with a connection-closed error the
// client is reconnected and op is retried exactly once; any second failure is
// reported as ErrUnavailable.
func (s *RedisStore) withReconnect(ctx context.Context, op func(*redis.Client) error) error {
	c := s.current()
	err := op(c)
	if err == nil {
		return nil
	}
	if !isConnectionClosed(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.WarnContext(ctx, "Counter store connection dropped, reconnecting", "error", err)
	if rerr := s.reconnect(ctx, c); rerr != nil {
		s.logger.ErrorContext(ctx, "Counter store reconnect failed", "error", rerr)
		return fmt.Errorf("%w: reconnect failed: %v", ErrUnavailable, rerr)
	}

	if err := op(s.current()); err != nil {
		return fmt.Errorf("%w: retry after reconnect: %v", ErrUnavailable, err)
	}
	return nil
}

// reconnect replaces stale with a fresh client. Concurrent callers holding the
// same stale client race here; only the first one dials, the rest reuse its result.
func (s *RedisStore) reconnect(ctx context.Context, stale *redis.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != stale {
		return nil
	}

	fresh := redis.NewClient(s.opts)
	if err := fresh.Ping(ctx).Err(); err != nil {
		fresh.Close()
		return err
	}
	s.client = fresh
	if err := stale.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		s.logger.DebugContext(ctx, "Closing stale counter store client", "error", err)
	}
	s.logger.InfoContext(ctx, "Counter store reconnected", "addr", s.opts.Addr, "db", s.opts.DB)
	return nil
}

func isConnectionClosed(err error) bool {
	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
