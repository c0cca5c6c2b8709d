package slots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

const (
	slugIndexKey = "slots:slugs"
	// emptyMarker keeps a hash alive when the registry returned no slots,
	// so an empty list is still a cache hit.
	emptyMarker = "_"
)

func slugKey(slug string) string { return "slots:" + slug }

// RedisCache stores one hash per slug (slot id -> JSON slot) and a set of
// known slugs used for global withdrawal.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, slug string) ([]domain.Slot, bool, error) {
	fields, err := c.client.HGetAll(ctx, slugKey(slug)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("get cached slots: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	out := make([]domain.Slot, 0, len(fields))
	for id, raw := range fields {
		if id == emptyMarker {
			continue
		}
		var s domain.Slot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, false, fmt.Errorf("decode cached slot %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, true, nil
}

func (c *RedisCache) Put(ctx context.Context, slug string, slots []domain.Slot, ttl time.Duration) error {
	values := make([]any, 0, 2*len(slots)+2)
	values = append(values, emptyMarker, "")
	for _, s := range slots {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode slot %s: %w", s.ID, err)
		}
		values = append(values, s.ID, raw)
	}

	key := slugKey(slug)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		pipe.SAdd(ctx, slugIndexKey, slug)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put cached slots: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, slug string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, slugKey(slug))
		pipe.SRem(ctx, slugIndexKey, slug)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached slots: %w", err)
	}
	return nil
}

func (c *RedisCache) Withdraw(ctx context.Context, slotID string) error {
	slugs, err := c.client.SMembers(ctx, slugIndexKey).Result()
	if err != nil {
		return fmt.Errorf("list cached slugs: %w", err)
	}
	if len(slugs) == 0 {
		return nil
	}

	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, slug := range slugs {
			pipe.HDel(ctx, slugKey(slug), slotID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("withdraw slot %s: %w", slotID, err)
	}
	return nil
}

var restoreScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
end
return -1
`)

func (c *RedisCache) Restore(ctx context.Context, slot domain.Slot) error {
	raw, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", slot.ID, err)
	}
	_, err = restoreScript.Run(ctx, c.client, []string{slugKey(slot.Slug)}, slot.ID, raw).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("restore slot %s: %w", slot.ID, err)
	}
	return nil
}
