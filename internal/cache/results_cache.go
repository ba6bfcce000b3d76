package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/domain"
)

const (
	runResultsKeyPrefix = "run_results:"
	resultsScanBatch    = 100
)

// ResultsCache caches the output records of finished runs.
type ResultsCache interface {
	GetResults(ctx context.Context, runID int64) ([]*domain.POResult, bool, error)
	SetResults(ctx context.Context, runID int64, results []*domain.POResult) error
	Invalidate(ctx context.Context, runID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisResultsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopResultsCache struct{}

// NewResultsCache returns a Redis-backed cache, or a no-op one when caching
// is disabled.
func NewResultsCache(ctx context.Context, cfg config.CacheConfig) (ResultsCache, error) {
	if !cfg.Enabled {
		return &noopResultsCache{}, nil
	}

	client, ttl, err := dialRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisResultsCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopResultsCache() ResultsCache {
	return &noopResultsCache{}
}

func (c *redisResultsCache) GetResults(ctx context.Context, runID int64) ([]*domain.POResult, bool, error) {
	payload, err := c.client.Get(ctx, runResultsKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var results []*domain.POResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, false, fmt.Errorf("decode run results cache: %w", err)
	}
	return results, true, nil
}

func (c *redisResultsCache) SetResults(ctx context.Context, runID int64, results []*domain.POResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode run results cache: %w", err)
	}

	if err := c.client.Set(ctx, runResultsKey(runID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisResultsCache) Invalidate(ctx context.Context, runID int64) error {
	return c.client.Del(ctx, runResultsKey(runID)).Err()
}

func (c *redisResultsCache) InvalidateAll(ctx context.Context) error {
	removed, err := purgePrefix(ctx, c.client, runResultsKeyPrefix, resultsScanBatch)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("run results cache cleared")
	return nil
}

func (n *noopResultsCache) GetResults(ctx context.Context, runID int64) ([]*domain.POResult, bool, error) {
	return nil, false, nil
}

func (n *noopResultsCache) SetResults(ctx context.Context, runID int64, results []*domain.POResult) error {
	return nil
}

func (n *noopResultsCache) Invalidate(ctx context.Context, runID int64) error {
	return nil
}

func (n *noopResultsCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func runResultsKey(runID int64) string {
	return runResultsKeyPrefix + strconv.FormatInt(runID, 10)
}
