package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const flagsKey = "flagguess:flags"

// FlagCache caches the flag table in Redis so that restarting instances do
// not all scan the database. Flags are stored as:
//
//	HSET flagguess:flags {id} {json}
type FlagCache struct {
	client *redis.Client
	loader app.FlagLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewFlagCache(client *redis.Client, loader app.FlagLoader, ttl time.Duration) *FlagCache {
	return &FlagCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *FlagCache) LoadFlags(ctx context.Context) ([]domain.Flag, error) {
	if flags, ok := c.cached(ctx); ok {
		return flags, nil
	}

	result, err, _ := c.sf.Do(flagsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if flags, ok := c.cached(ctx); ok {
			return flags, nil
		}

		flags, err := c.loader.LoadFlags(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if len(flags) == 0 {
			return flags, nil
		}

		pipe := c.client.Pipeline()
		for _, f := range flags {
			raw, err := json.Marshal(f)
			if err != nil {
				return nil, domain.StorageError("encode flag", err)
			}
			pipe.HSet(ctx, flagsKey, strconv.FormatInt(f.ID, 10), raw)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, flagsKey, ttl)
		}
		// A failed write only costs a cache miss next time.
		_, _ = pipe.Exec(ctx)

		return flags, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Flag), nil
}

// Invalidate drops the cached flags, e.g. after seeding.
func (c *FlagCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, flagsKey).Err(); err != nil {
		return domain.StorageError("invalidate flags", err)
	}
	return nil
}

func (c *FlagCache) cached(ctx context.Context) ([]domain.Flag, bool) {
	entries, err := c.client.HGetAll(ctx, flagsKey).Result()
	if err != nil || len(entries) == 0 {
		return nil, false
	}
	flags := make([]domain.Flag, 0, len(entries))
	for _, raw := range entries {
		var f domain.Flag
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, false
		}
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].ID < flags[j].ID })
	return flags, true
}

func (c *FlagCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
