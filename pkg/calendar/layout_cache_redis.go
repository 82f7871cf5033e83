package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisKeyPrefix = "klokku:layout"

// RedisLayoutCache shares layouts between instances. Each user has a
// generation counter that is part of every key; Invalidate bumps it so old
// entries are never read again and expire on their own. Set writes under the
// generation the caller read before computing the layout, so a layout computed
// across an invalidation lands under a key nobody reads.
type RedisLayoutCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLayoutCache(client redis.UniversalClient, ttl time.Duration) *RedisLayoutCache {
	return &RedisLayoutCache{client: client, ttl: ttl}
}

func generationKey(userId int) string {
	return fmt.Sprintf("%s:%d:gen", redisKeyPrefix, userId)
}

func entryKey(key LayoutKey, generation int64) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", redisKeyPrefix, key.UserId, generation, key.Timezone, key.Date)
}

func (c *RedisLayoutCache) Generation(ctx context.Context, userId int) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(userId)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("could not read layout generation: %w", err)
	}
	return generation, nil
}

func (c *RedisLayoutCache) Get(ctx context.Context, key LayoutKey) (DayLayout, bool, error) {
	generation, err := c.Generation(ctx, key.UserId)
	if err != nil {
		return DayLayout{}, false, err
	}
	redisKey := entryKey(key, generation)
	data, err := c.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return DayLayout{}, false, nil
	} else if err != nil {
		return DayLayout{}, false, fmt.Errorf("could not read cached layout: %w", err)
	}

	var dayLayout DayLayout
	if err := json.Unmarshal(data, &dayLayout); err != nil {
		log.Warnf("dropping unreadable cached layout %s: %v", redisKey, err)
		return DayLayout{}, false, nil
	}
	return dayLayout, true, nil
}

func (c *RedisLayoutCache) Set(ctx context.Context, key LayoutKey, generation int64, dayLayout DayLayout) error {
	redisKey := entryKey(key, generation)
	data, err := json.Marshal(dayLayout)
	if err != nil {
		return fmt.Errorf("could not encode layout: %w", err)
	}
	if err := c.client.Set(ctx, redisKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("could not cache layout: %w", err)
	}
	return nil
}

func (c *RedisLayoutCache) Invalidate(ctx context.Context, userId int) error {
	if err := c.client.Incr(ctx, generationKey(userId)).Err(); err != nil {
		return fmt.Errorf("could not invalidate layouts of user %d: %w", userId, err)
	}
	return nil
}
