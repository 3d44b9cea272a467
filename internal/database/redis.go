package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis database
func ConnectRedis(ctx context.Context, redisURI string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}

	// Configure connection pool and timeouts for better resilience
	opt.PoolSize = 10
	opt.MinIdleConns = 5
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// DisconnectRedis closes the Redis connection
func DisconnectRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
