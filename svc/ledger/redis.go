package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"oxypaste/cfg"
)

const redisIndexKey = "oxypaste:index"
const redisKeyPrefix = "oxypaste:kv:"

// RedisStore is an optional ledger backend for people who want their
// anonymous paste history shared across machines. Insertion order is
// kept in a side list because SCAN has no ordering guarantee.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisStore(url string, c *cfg.Cfg) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond
	if c.RedisUsername != "" {
		opt.Username = c.RedisUsername
	}
	if c.RedisPassword.Value() != "" {
		opt.Password = c.RedisPassword.Value()
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisStore{client: client, timeout: c.RedisTimeout}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	created, err := r.client.SetNX(ctx, redisKeyPrefix+key, value, 0).Result()
	if err != nil {
		return errors.Wrap(err, "redis set")
	}
	if created {
		if err := r.client.RPush(ctx, redisIndexKey, key).Err(); err != nil {
			return errors.Wrap(err, "redis index push")
		}
		return nil
	}
	return errors.Wrap(r.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(), "redis overwrite")
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis delete")
	}
	return errors.Wrap(r.client.LRem(ctx, redisIndexKey, 0, key).Err(), "redis index remove")
}

func (r *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	all, err := r.client.LRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis index range")
	}
	var keys []string
	for _, k := range all {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
