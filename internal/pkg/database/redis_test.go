package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(models.RedisConfig{
		Host:     mr.Host(),
		Port:     mustAtoi(t, mr.Port()),
		PoolSize: 2,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.NotNil(t, client.GetClient())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRedisClient_ConnectionError(t *testing.T) {
	client, err := NewRedisClient(models.RedisConfig{Host: "127.0.0.1", Port: 1})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9')
		n = n*10 + int(r-'0')
	}
	return n
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(models.RedisConfig{Host: "redis", Port: 6380, DB: 2, PoolSize: 8})

	assert.Equal(t, "redis:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, defaultRedisDialTimeout, opts.DialTimeout)

	opts = RedisOptions(models.RedisConfig{Host: "::1", Port: 6379, DialTimeout: time.Second})
	assert.Equal(t, "[::1]:6379", opts.Addr)
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestNewRedisClient_RetriesUntilUp(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.SetError("LOADING Redis is loading the dataset in memory")
	go func() {
		time.Sleep(150 * time.Millisecond)
		mr.SetError("")
	}()

	client, err := NewRedisClient(models.RedisConfig{
		Host:           mr.Host(),
		Port:           mustAtoi(t, mr.Port()),
		ConnectRetries: 3,
	})
	require.NoError(t, err)
	defer client.Close()
}
