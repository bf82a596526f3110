package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"supplyrunway/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "runway:table:"

// CacheService shares derived tables between replicas
type CacheService interface {
	// GetDerivedTable returns nil, nil on a cache miss
	GetDerivedTable(ctx context.Context, key string) (*models.DerivedTable, error)
	SetDerivedTable(ctx context.Context, key string, table *models.DerivedTable, ttl time.Duration) error
	DeleteDerivedTable(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int, logger *slog.Logger) CacheService {
	parsedAddr := redisAddr(addr)

	client := redis.NewClient(&redis.Options{
		Addr:        parsedAddr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", "addr", parsedAddr, "error", err)
	} else {
		logger.Debug("redis connection established", "addr", parsedAddr)
	}

	return &redisCacheService{client: client}
}

// redisAddr strips a redis:// or rediss:// scheme, leaving host:port
func redisAddr(addr string) string {
	for _, scheme := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(addr, scheme) {
			return strings.TrimSuffix(strings.TrimPrefix(addr, scheme), "/")
		}
	}
	return addr
}

func tableKey(key string) string {
	return keyPrefix + key
}

func (r *redisCacheService) GetDerivedTable(ctx context.Context, key string) (*models.DerivedTable, error) {
	data, err := r.client.Get(ctx, tableKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var table models.DerivedTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to decode cached table %s: %w", key, err)
	}
	return &table, nil
}

func (r *redisCacheService) SetDerivedTable(ctx context.Context, key string, table *models.DerivedTable, ttl time.Duration) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, tableKey(key), data, ttl).Err()
}

func (r *redisCacheService) DeleteDerivedTable(ctx context.Context, key string) error {
	return r.client.Del(ctx, tableKey(key)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
