package freshness

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"RoboInvestor/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData       = "data"
	fieldModifiedAt = "modified_at"
)

// RedisStore keeps each payload in a hash <prefix>:<ticker> holding the raw
// blob and its modification time in unix nanoseconds.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(ticker string) string {
	return s.prefix + ":" + ticker
}

func (s *RedisStore) Load(ctx context.Context, ticker string) (model.CachedPayload, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(ticker)).Result()
	if err != nil {
		return model.CachedPayload{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	data, ok := fields[fieldData]
	if !ok {
		return model.CachedPayload{}, false, nil
	}
	nanos, err := strconv.ParseInt(fields[fieldModifiedAt], 10, 64)
	if err != nil {
		return model.CachedPayload{}, false, fmt.Errorf("parse %s for %s: %w", fieldModifiedAt, ticker, err)
	}
	return model.CachedPayload{Ticker: ticker, Data: []byte(data), ModifiedAt: time.Unix(0, nanos)}, true, nil
}

// Save writes both fields in one MULTI/EXEC so readers never see half an update.
func (s *RedisStore) Save(ctx context.Context, payload model.CachedPayload) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(payload.Ticker),
			fieldData, payload.Data,
			fieldModifiedAt, strconv.FormatInt(payload.ModifiedAt.UnixNano(), 10),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
