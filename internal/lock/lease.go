package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "synclock:"

// releaseScript deletes the lease only when the caller still owns it. An
// expired lease may already belong to another run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is the single-flight guard for reconciliation passes, keyed by
// calendar identity. A run that cannot acquire it is skipped, not queued.
type Lease struct {
	client *redis.Client
}

func NewLease(client *redis.Client) *Lease {
	return &Lease{client: client}
}

// Acquire takes the lease for calendarID. ok is false when another pass
// holds it. On success the returned release func must be called when the
// pass finishes; the TTL covers crashed holders.
func (l *Lease) Acquire(ctx context.Context, calendarID string, ttl time.Duration) (release func(), ok bool, err error) {
	key := keyPrefix + calendarID
	owner := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
			slog.Warn("failed to release sync lease", "key", key, "err", err)
		}
	}
	return release, true, nil
}
