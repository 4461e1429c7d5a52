package service

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gh-intel/internal/domain"
	"gh-intel/pkg/redis"
)

// CacheService provides the cache-aside layer for traffic reports. GitHub
// refreshes traffic counts slowly, so serving a cached report for a few
// minutes costs nothing in accuracy and keeps repeat requests off the API
// rate limit budget. Cache failures always degrade to the fetch path.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetTrafficReport returns the cached report for a repository, or false on
// miss, corruption or cache error.
func (c *CacheService) GetTrafficReport(ctx context.Context, owner, repo string) (*domain.TrafficReport, bool) {
	cacheKey := c.redis.KeyBuilder.KeyTrafficReport(owner, repo)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("Report cache error, falling back to fetch",
				zap.String("owner", owner),
				zap.String("repo", repo),
				zap.Error(err))
		} else {
			c.logger.Debug("Report cache miss",
				zap.String("owner", owner),
				zap.String("repo", repo))
		}
		return nil, false
	}

	var report domain.TrafficReport
	if err := json.Unmarshal([]byte(cachedData), &report); err != nil {
		c.logger.Warn("Report cache corrupted, falling back to fetch",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.Error(err))
		return nil, false
	}

	c.logger.Debug("Report cache hit",
		zap.String("owner", owner),
		zap.String("repo", repo))
	return &report, true
}

// StoreTrafficReport caches a report asynchronously (fire and forget)
func (c *CacheService) StoreTrafficReport(owner, repo string, report *domain.TrafficReport) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cacheKey := c.redis.KeyBuilder.KeyTrafficReport(owner, repo)
		data, err := json.Marshal(report)
		if err != nil {
			c.logger.Error("Failed to marshal report for caching",
				zap.String("owner", owner),
				zap.String("repo", repo),
				zap.Error(err))
			return
		}

		if err := c.redis.Set(ctx, cacheKey, string(data), redis.TTLTrafficReport); err != nil {
			c.logger.Error("Failed to cache report",
				zap.String("owner", owner),
				zap.String("repo", repo),
				zap.Error(err))
		} else {
			c.logger.Debug("Report cached",
				zap.String("owner", owner),
				zap.String("repo", repo))
		}
	}()
}

// InvalidateReport removes the cached report for a repository
func (c *CacheService) InvalidateReport(ctx context.Context, owner, repo string) error {
	cacheKey := c.redis.KeyBuilder.KeyTrafficReport(owner, repo)

	if err := c.redis.Delete(ctx, cacheKey); err != nil {
		c.logger.Error("Failed to invalidate report cache",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Report cache invalidated",
		zap.String("owner", owner),
		zap.String("repo", repo))
	return nil
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}
