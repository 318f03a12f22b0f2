package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockAcquire is returned when the lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire distributed lock")
	// ErrLockLost is reported by Hold when another owner took the lock.
	ErrLockLost = errors.New("distributed lock lost")
)

// releaseScript deletes the lock only if it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// extendScript renews the TTL only while the lock still holds our token.
const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`

// Locker implements ports.DistributedLocker using Redis.
type Locker struct {
	client   *backend.Client
	prefix   string
	interval time.Duration
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client:   client,
		prefix:   prefix,
		interval: 100 * time.Millisecond,
	}
}

// Lock acquires a distributed lock for the given key using Redis SET NX PX,
// polling until it succeeds or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey, token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return l.releaser(lockKey, token), nil
}

// Hold acquires the lock like Lock and keeps renewing its TTL until the
// returned UnlockFunc is called. It is meant for long-lived owners such as a
// serving station. A renewal that finds the lock taken by someone else is
// logged through onLost and renewal stops.
func (l *Locker) Hold(ctx context.Context, key string, ttl time.Duration, onLost func(error)) (ports.UnlockFunc, error) {
	lockKey, token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n, err := l.client.Eval(context.Background(), extendScript, []string{lockKey}, token, ttl.Milliseconds()).Int()
				if err == nil && n == 0 {
					err = ErrLockLost
				}
				if err != nil {
					if onLost != nil {
						onLost(err)
					}
					return
				}
			}
		}
	}()

	release := l.releaser(lockKey, token)
	return func(ctx context.Context) error {
		close(stop)
		<-done
		return release(ctx)
	}, nil
}

func (l *Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, string, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if ok {
			return lockKey, token, nil
		}

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(lockKey, token string) ports.UnlockFunc {
	return func(ctx context.Context) error {
		return l.client.Eval(ctx, releaseScript, []string{lockKey}, token).Err()
	}
}
