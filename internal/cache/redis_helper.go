package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/autopo-go/internal/config"
)

const (
	defaultResultTTL = 10 * time.Minute
	redisDialTimeout = 5 * time.Second
)

// dialRedis connects to the configured Redis and returns the client together
// with the TTL applied to cached run results.
func dialRedis(ctx context.Context, cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, 0, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	ttl := defaultResultTTL
	if cfg.ResultTTLSeconds > 0 {
		ttl = time.Duration(cfg.ResultTTLSeconds) * time.Second
	}
	return client, ttl, nil
}

// redisOptions prefers REDIS_URL; otherwise host and port default to a local
// server.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:        net.JoinHostPort(host, port),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: redisDialTimeout,
	}, nil
}

// purgePrefix unlinks every key under prefix, one SCAN page per pipeline.
func purgePrefix(ctx context.Context, client *redis.Client, prefix string, pageSize int64) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", pageSize).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan %s* failed: %w", prefix, err)
		}
		if len(keys) > 0 {
			pipe := client.Pipeline()
			for _, key := range keys {
				pipe.Unlink(ctx, key)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("redis unlink failed: %w", err)
			}
			removed += len(keys)
		}
		if cursor = next; cursor == 0 {
			return removed, nil
		}
	}
}
