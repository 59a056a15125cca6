package lock

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util"
)

const (
	defaultExpiry   = 2 * time.Minute
	retryDelay      = 100 * time.Millisecond
	keyPrefix       = "gasless:"
	maxLockAttempts = 64
)

type redisLocker struct {
	client *redis.Client
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewRedis returns a Locker shared by every process using the same redis.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewRedis(client *redis.Client, expiry time.Duration) Locker {
	if expiry <= 0 {
		expiry = defaultExpiry
	}

	return &redisLocker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(maxLockAttempts),
		redsync.WithRetryDelay(retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.Wrapf(ErrLockFailed, "%s: %v", key, err)
	}

	return func() {
		// the caller's ctx may already be done, unlock must still reach redis
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil || !ok {
			util.LogFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to release lock, it expires on its own")
		}
	}, nil
}

func (l *redisLocker) Close() error {
	return l.client.Close()
}

// New returns the Locker selected by cfg: redis when an address is configured, memory otherwise.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func New(cfg config.Lock) Locker {
	if !cfg.UsesRedis() {
		return NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return NewRedis(client, cfg.Expiry)
}
