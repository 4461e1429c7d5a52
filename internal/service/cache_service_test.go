package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gh-intel/internal/domain"
	"gh-intel/pkg/redis"
)

func setupCacheService(t *testing.T) (*miniredis.Miniredis, *redis.Client, *CacheService) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client, NewCacheService(client, zap.NewNop())
}

func sampleReport() *domain.TrafficReport {
	return &domain.TrafficReport{
		Window: domain.ReportWindow{
			Since: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
			Until: time.Date(2026, time.August, 14, 0, 0, 0, 0, time.UTC),
			Days:  14,
		},
		Views: domain.TrafficSummary{
			TotalCount:   30,
			TotalUniques: 9,
			Trend:        domain.TrendRising,
		},
		TopReferrers: domain.RankedList{{Label: "google.com", Count: 10, Uniques: 5}},
	}
}

func TestCacheService_MissThenHit(t *testing.T) {
	_, client, cache := setupCacheService(t)
	ctx := context.Background()

	_, ok := cache.GetTrafficReport(ctx, "octocat", "hello")
	assert.False(t, ok)

	cache.StoreTrafficReport("octocat", "hello", sampleReport())

	key := client.KeyBuilder.KeyTrafficReport("octocat", "hello")
	require.Eventually(t, func() bool {
		report, ok := cache.GetTrafficReport(ctx, "octocat", "hello")
		return ok && report.Views.TotalCount == 30
	}, 2*time.Second, 10*time.Millisecond)

	report, ok := cache.GetTrafficReport(ctx, "octocat", "hello")
	require.True(t, ok)
	assert.Equal(t, domain.TrendRising, report.Views.Trend)
	assert.Equal(t, "google.com", report.TopReferrers[0].Label)

	// Entries expire on their own
	_, err := client.Exists(ctx, key)
	require.NoError(t, err)
}

func TestCacheService_CorruptEntryFallsBack(t *testing.T) {
	mr, client, cache := setupCacheService(t)

	key := client.KeyBuilder.KeyTrafficReport("octocat", "hello")
	require.NoError(t, mr.Set(key, "{not json"))

	_, ok := cache.GetTrafficReport(context.Background(), "octocat", "hello")
	assert.False(t, ok)
}

func TestCacheService_InvalidateReport(t *testing.T) {
	mr, client, cache := setupCacheService(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyTrafficReport("octocat", "hello")
	require.NoError(t, mr.Set(key, `{"views":{"total_count":1}}`))

	require.NoError(t, cache.InvalidateReport(ctx, "octocat", "hello"))
	assert.False(t, mr.Exists(key))
}

func TestCacheService_HealthCheck(t *testing.T) {
	mr, _, cache := setupCacheService(t)
	ctx := context.Background()

	assert.NoError(t, cache.HealthCheck(ctx))

	mr.Close()
	assert.Error(t, cache.HealthCheck(ctx))
}
