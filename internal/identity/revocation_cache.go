package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	validAfterKeyPrefix  = "identity:valid_after:"
	disabledMarker       = "disabled"
	deletedMarker        = "deleted"
	DefaultValidAfterTTL = 10 * time.Minute
)

// storeState only ever moves an entry forward: a deleted account stays
// deleted, a disabled one is not re-enabled by a timestamp, and an older
// tokens_valid_after never replaces a newer one.
var storeState = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == 'deleted' then return 0 end
local newAt = tonumber(ARGV[1])
if cur and newAt then
  if cur == 'disabled' then return 0 end
  local curAt = tonumber(cur)
  if curAt and curAt >= newAt then return 0 end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RevocationCache keeps each account's tokens_valid_after in Redis so
// revocation checks do not hit PostgreSQL on every request.
type RevocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRevocationCache(client *redis.Client, ttl time.Duration) *RevocationCache {
	if ttl <= 0 {
		ttl = DefaultValidAfterTTL
	}
	return &RevocationCache{client: client, ttl: ttl}
}

type cachedState struct {
	validAfter time.Time
	disabled   bool
	deleted    bool
}

func (st cachedState) encode() string {
	switch {
	case st.deleted:
		return deletedMarker
	case st.disabled:
		return disabledMarker
	default:
		return strconv.FormatInt(st.validAfter.Unix(), 10)
	}
}

// Get returns the cached state, or ok=false on a miss.
func (c *RevocationCache) Get(ctx context.Context, uid string) (cachedState, bool, error) {
	val, err := c.client.Get(ctx, validAfterKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return cachedState{}, false, nil
	}
	if err != nil {
		return cachedState{}, false, err
	}
	switch val {
	case deletedMarker:
		return cachedState{deleted: true}, true, nil
	case disabledMarker:
		return cachedState{disabled: true}, true, nil
	}
	secs, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Unreadable entry: treat as a miss so the database is consulted.
		return cachedState{}, false, nil
	}
	return cachedState{validAfter: time.Unix(secs, 0)}, true, nil
}

// Set stores st unless the cached entry is already newer. It reports
// whether the entry was written.
func (c *RevocationCache) Set(ctx context.Context, uid string, st cachedState) (bool, error) {
	n, err := storeState.Run(ctx, c.client,
		[]string{validAfterKeyPrefix + uid},
		st.encode(), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
