package redis

import (
	"context"
	"sync"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	redisv9 "github.com/redis/go-redis/v9"
)

var (
	client *redisv9.Client
	once   sync.Once
)

// GetClient returns the shared client for the configured redis.addr.
func GetClient() *redisv9.Client {
	once.Do(func() {
		client = redisv9.NewClient(&redisv9.Options{
			Addr: config.GetRedisAddr(),
		})
	})
	return client
}

// Ping checks that the cache backend is reachable.
func Ping(ctx context.Context) error {
	return GetClient().Ping(ctx).Err()
}

// ResetClientForTest resets the Redis client singleton. Use only in tests.
func ResetClientForTest() {
	if client != nil {
		_ = client.Close()
	}
	once = sync.Once{}
	client = nil
}
