package profile

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each profile in a hash at profile:<userID>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (Metadata, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	values, err := r.client.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	return Metadata(values), nil
}

// Update writes all fields with a single HSET, which Redis applies atomically.
func (r *RedisStore) Update(ctx context.Context, userID string, fields Metadata) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	if err := r.client.HSet(ctx, profileKey(userID), values).Err(); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

func profileKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}
