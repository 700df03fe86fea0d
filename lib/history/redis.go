package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const historyKey = "onboarding:history"

// RedisStore is a storage engine that writes to a redis hash keyed by item id
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient creates a new redis client object
func NewRedisClient(addr string, password string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		panic(err)
	}
	return client
}

// NewRedisClientWithUrl creates a new redis client object
func NewRedisClientWithUrl(url string) *redis.Client {
	option, err := redis.ParseURL(url)
	if err != nil {
		panic(err)
	}

	client := redis.NewClient(option)
	_, err = client.Ping(context.Background()).Result()
	if err != nil {
		panic(err)
	}
	return client
}

// NewRedisStore creates new store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping will check if the connection works right
func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.client.Ping(ctx).Result()
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (Progress, bool, error) {
	raw, err := s.client.HGet(ctx, historyKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("hget %s: %w", id, err)
	}
	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Progress{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return p, true, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, progress Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if err := s.client.HSet(ctx, historyKey, id, string(raw)).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]Progress, error) {
	data, err := s.client.HGetAll(ctx, historyKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	out := make(map[string]Progress, len(data))
	for id, raw := range data {
		var p Progress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.Warn("skipping corrupt watch history record",
				"operation", "history_redis_all",
				"item_id", id,
				"error", err,
			)
			continue
		}
		out[id] = p
	}
	return out, nil
}
