// Package cache keeps resolved url mappings in redis in front of the
// mapping repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

const keyPrefix = "shortlink:mapping:"

// Lookup outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type mappingRepository interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error)
	IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error)
}

type cachedMapping struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MappingCache is a read-through cache of url mappings.
//
// Only the immutable fields of a mapping are cached: mappings returned from
// the cache carry a zero ClickCount. Increments always go to the repository.
type MappingCache struct {
	client redisClient
	repo   mappingRepository
	ttl    time.Duration
	logger *slog.Logger
}

func NewMappingCache(client redisClient, repo mappingRepository, ttl time.Duration, logger *slog.Logger) *MappingCache {
	return &MappingCache{
		client: client,
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// RetrieveByShortCode returns the cached mapping of shortCode or loads it from
// the repository and caches it. Redis failures are logged and the repository
// answers instead.
func (c *MappingCache) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	const op = "adapter.cache.MappingCache.RetrieveByShortCode"

	key := keyPrefix + shortCode

	m, err := c.get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheRequests.WithLabelValues(OutcomeHit).Inc()
		return m, nil
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues(OutcomeMiss).Inc()
	default:
		metrics.CacheRequests.WithLabelValues(OutcomeError).Inc()
		c.logger.Warn("failed to read mapping from cache", slog.String("short_code", shortCode), slog.Any("err", err))
	}

	m, err = c.repo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.set(ctx, key, m); err != nil {
		c.logger.Warn("failed to write mapping to cache", slog.String("short_code", shortCode), slog.Any("err", err))
	}

	return m, nil
}

// IncrementClicks passes through to the repository.
func (c *MappingCache) IncrementClicks(ctx context.Context, shortCode string) (*entity.URLMapping, error) {
	return c.repo.IncrementClicks(ctx, shortCode)
}

func (c *MappingCache) get(ctx context.Context, key string) (*entity.URLMapping, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cm cachedMapping
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("failed to decode cached mapping: %w", err)
	}

	return &entity.URLMapping{
		ID:          cm.ID,
		ShortCode:   cm.ShortCode,
		OriginalURL: cm.OriginalURL,
		Owner:       cm.Owner,
		CreatedAt:   cm.CreatedAt,
	}, nil
}

func (c *MappingCache) set(ctx context.Context, key string, m *entity.URLMapping) error {
	data, err := json.Marshal(cachedMapping{
		ID:          m.ID,
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		Owner:       m.Owner,
		CreatedAt:   m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}
