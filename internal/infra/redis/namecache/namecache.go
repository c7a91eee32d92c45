package infra_redis_namecache

import (
	"context"
	"time"

	"github.com/go-redis/redis"
)

type Driver struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(
	client *redis.Client,
	key string,
	ttl time.Duration,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (d *Driver) GetMany(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, d.getFullKey(id))
	}

	vals, err := d.client.WithContext(ctx).MGet(keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(userIDs))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[userIDs[i]] = s
		}
	}
	return out, nil
}

func (d *Driver) SetMany(ctx context.Context, names map[string]string) error {
	pipe := d.client.WithContext(ctx).Pipeline()
	for id, name := range names {
		pipe.Set(d.getFullKey(id), name, d.ttl)
	}
	_, err := pipe.Exec()
	return err
}

func (d *Driver) Delete(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, d.getFullKey(id))
	}
	return d.client.WithContext(ctx).Del(keys...).Err()
}

func (d *Driver) getFullKey(key string) string {
	if d.key != "" {
		return d.key + ":" + key
	}
	return key
}
