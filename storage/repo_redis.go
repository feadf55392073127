package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisRepo stores keys under a prefix and announces writes on a pub/sub channel so
// storefront replicas sharing the instance converge.
type RedisRepo struct {
	client *redis.Client
	prefix string
	origin string
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client *redis.Client, prefix string) *RedisRepo {
	return &RedisRepo{
		client: client,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

func (r *RedisRepo) key(key string) string {
	return r.prefix + key
}

func (r *RedisRepo) channel() string {
	return r.prefix + "changes"
}

func (r *RedisRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo Get] %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisRepo) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Set] %s: %w", key, err)
	}
	return r.publish(ctx, key)
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	removed, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return fmt.Errorf("[RedisRepo Delete] %s: %w", key, err)
	}
	if removed == 0 {
		return nil
	}
	return r.publish(ctx, key)
}

func (r *RedisRepo) publish(ctx context.Context, key string) error {
	payload, err := json.Marshal(Change{Key: key, Origin: r.origin})
	if err != nil {
		return fmt.Errorf("[RedisRepo publish] marshal: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(), payload).Err(); err != nil {
		return fmt.Errorf("[RedisRepo publish] %s: %w", key, err)
	}
	return nil
}

// Watch returns once the subscription is confirmed so no later write is missed
func (r *RedisRepo) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("[RedisRepo Watch] subscribe %s: %w", r.channel(), err)
	}

	ch := make(chan Change, watchBuffer)
	messages := sub.Channel()
	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("RedisRepo ignoring malformed change")
					continue
				}
				if c.Origin == r.origin {
					continue
				}
				notify(ch, c)
			}
		}
	}()
	return ch, nil
}

// Close releases the underlying client
func (r *RedisRepo) Close() error {
	return r.client.Close()
}
