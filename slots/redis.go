package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"salonq/models"
)

// Redis keeps claims in redis so several coordinator instances share them.
// SET NX gives the per-key compare-and-swap; the TTL bounds memory.
type Redis struct {
	conn      redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewRedis(conn redis.UniversalClient, retention time.Duration) *Redis {
	return &Redis{conn: conn, prefix: "salonq:slot:", retention: retention, now: time.Now}
}

func (r *Redis) key(k models.SlotKey) string {
	return r.prefix + k.ShopID + ":" + k.Date + ":" + k.Time
}

func (r *Redis) ttl(k models.SlotKey) time.Duration {
	ttl := expiry(k, r.retention).Sub(r.now())
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

func (r *Redis) Claim(ctx context.Context, key models.SlotKey) (Ticket, error) {
	t := Ticket{Key: key, Token: uuid.NewString(), ClaimedAt: r.now()}
	ok, err := r.conn.SetNX(ctx, r.key(key), t.Token, r.ttl(key)).Result()
	if err != nil {
		return Ticket{}, fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return Ticket{}, &models.SlotTakenError{Key: key}
	}
	return t, nil
}

func (r *Redis) Release(ctx context.Context, key models.SlotKey) error {
	if err := r.conn.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Taken(ctx context.Context, key models.SlotKey) (bool, error) {
	n, err := r.conn.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
