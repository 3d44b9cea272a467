package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/AnshRaj112/rpd-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const profileOutboxKey = "outbox:profiles"

// forgetIfUnchanged removes a hash field only while it still holds the
// value that was written.
var forgetIfUnchanged = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  return redis.call('HDEL', KEYS[1], ARGV[1])
end
return 0
`)

type profileSetter interface {
	Set(ctx context.Context, p models.UserProfile) error
}

// ProfileOutbox holds profile writes that failed right after account
// creation. Entries live in a Redis hash keyed by uid, so a newer write
// for the same user replaces the older one.
type ProfileOutbox struct {
	rdb   *redis.Client
	store profileSetter
	log   *slog.Logger
}

func NewProfileOutbox(rdb *redis.Client, store profileSetter, log *slog.Logger) *ProfileOutbox {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileOutbox{rdb: rdb, store: store, log: log.With("module", "profile_outbox")}
}

func (o *ProfileOutbox) Enqueue(ctx context.Context, p models.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return o.rdb.HSet(ctx, profileOutboxKey, p.ID, data).Err()
}

// Forget drops a pending write, used when the account is deleted.
func (o *ProfileOutbox) Forget(ctx context.Context, uid string) error {
	return o.rdb.HDel(ctx, profileOutboxKey, uid).Err()
}

// Pending returns the number of queued writes.
func (o *ProfileOutbox) Pending(ctx context.Context) (int64, error) {
	return o.rdb.HLen(ctx, profileOutboxKey).Result()
}

// Drain retries every queued write once. Successful entries are removed;
// failed ones stay for the next round.
func (o *ProfileOutbox) Drain(ctx context.Context) (int, error) {
	entries, err := o.rdb.HGetAll(ctx, profileOutboxKey).Result()
	if err != nil {
		return 0, err
	}

	written := 0
	for uid, raw := range entries {
		var p models.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			o.log.ErrorContext(ctx, "dropping unreadable outbox entry", "uid", uid, "error", err)
			_ = o.rdb.HDel(ctx, profileOutboxKey, uid).Err()
			continue
		}
		if err := o.store.Set(ctx, p); err != nil {
			o.log.WarnContext(ctx, "profile retry failed", "uid", uid, "error", err)
			continue
		}
		// An entry replaced while we were writing stays for the next round.
		if err := forgetIfUnchanged.Run(ctx, o.rdb, []string{profileOutboxKey}, uid, raw).Err(); err != nil {
			o.log.WarnContext(ctx, "outbox entry not cleared", "uid", uid, "error", err)
		}
		written++
	}
	return written, nil
}

// Run drains the outbox every interval until ctx is cancelled.
func (o *ProfileOutbox) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := o.Drain(ctx)
			if err != nil {
				o.log.WarnContext(ctx, "profile outbox drain failed", "error", err)
				continue
			}
			if n > 0 {
				o.log.InfoContext(ctx, "profile outbox drained", "written", n)
			}
		}
	}
}
