package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/pkg/retry"
)

const defaultRedisDialTimeout = 5 * time.Second

// RedisClient holds the shared go-redis client. It backs the M-Pesa token
// cache and the STK push rate limiter.
type RedisClient struct {
	client *redis.Client
}

// RedisOptions maps config onto go-redis options
func RedisOptions(cfg models.RedisConfig) *redis.Options {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultRedisDialTimeout
	}
	return &redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dial,
	}
}

// NewRedisClient connects and pings, retrying ConnectRetries extra times
// with backoff so a booking pod can start alongside its Redis.
func NewRedisClient(cfg models.RedisConfig) (*RedisClient, error) {
	opts := RedisOptions(cfg)
	client := redis.NewClient(opts)

	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}
	retrier := retry.New(retry.Config{
		MaxRetries: retries,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
	}, logger.GetGlobalLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(retries+1)*opts.DialTimeout)
	defer cancel()

	err := retrier.Execute(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisClient{client: client}, nil
}

func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
