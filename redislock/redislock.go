// Package redislock provides an AccountLocker shared by every process that
// talks to the same Redis.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/costbasis"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultTTL bounds how long a crashed holder keeps an account locked.
const DefaultTTL = 5 * time.Minute

// release deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker is a costbasis.AccountLocker backed by Redis SET NX PX.
type Locker struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	newToken func() string
}

// New creates a Locker. Keys are "<prefix><account id>".
func New(client redis.Cmdable, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl, newToken: uuid.NewString}
}

// TryLock implements costbasis.AccountLocker.
func (l *Locker) TryLock(ctx context.Context, accountID string) (func() error, error) {
	key := l.prefix + accountID
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	if !ok {
		return nil, costbasis.ErrSyncConflict
	}
	return func() error {
		// the caller's context may be done by now
		n, err := l.client.Eval(context.Background(), releaseScript, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("failed to unlock account %s: %w", accountID, err)
		}
		if n == 0 {
			return fmt.Errorf("lock on account %s expired before release", accountID)
		}
		return nil
	}, nil
}

var _ costbasis.AccountLocker = (*Locker)(nil)
