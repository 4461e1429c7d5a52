package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gh-intel/internal/analyzer"
	"gh-intel/internal/domain"
	"gh-intel/pkg/errors"
	"gh-intel/pkg/logger"
	"gh-intel/pkg/redis"
)

// stubFetcher returns canned data and counts invocations
type stubFetcher struct {
	views     domain.TrafficSeries
	clones    domain.TrafficSeries
	referrers domain.RankedList
	paths     domain.RankedList
	repoInfo  *domain.RepositoryInfo

	viewsErr error
	repoErr  error

	viewCalls atomic.Int32
}

func (f *stubFetcher) FetchViews(ctx context.Context, owner, repo string) (domain.TrafficSeries, error) {
	f.viewCalls.Add(1)
	return f.views, f.viewsErr
}

func (f *stubFetcher) FetchClones(ctx context.Context, owner, repo string) (domain.TrafficSeries, error) {
	return f.clones, nil
}

func (f *stubFetcher) FetchReferrers(ctx context.Context, owner, repo string) (domain.RankedList, error) {
	return f.referrers, nil
}

func (f *stubFetcher) FetchPaths(ctx context.Context, owner, repo string) (domain.RankedList, error) {
	return f.paths, nil
}

func (f *stubFetcher) FetchRepository(ctx context.Context, owner, repo string) (*domain.RepositoryInfo, error) {
	return f.repoInfo, f.repoErr
}

func testDay(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func testClock() time.Time {
	return time.Date(2026, time.August, 14, 12, 30, 0, 0, time.UTC)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		views: domain.TrafficSeries{
			Days: []domain.DailyCount{
				{Date: testDay(13), Count: 10, Uniques: 5},
				{Date: testDay(14), Count: 20, Uniques: 8},
			},
			AggregateCount:   30,
			AggregateUniques: 9,
			HasAggregate:     true,
		},
		clones: domain.TrafficSeries{HasAggregate: true},
		referrers: domain.RankedList{
			{Label: "a", Count: 5, Uniques: 3},
			{Label: "c", Count: 9, Uniques: 0},
			{Label: "b", Count: 5, Uniques: 1},
		},
		paths: domain.RankedList{
			{Label: "/octocat/hello", Count: 40, Uniques: 30},
			{Label: "/octocat/hello/blob/main/README.md", Count: 25, Uniques: 20},
		},
		repoInfo: &domain.RepositoryInfo{
			FullName: "octocat/hello",
			Stars:    42,
		},
	}
}

func newTestReportService(t *testing.T, fetcher TrafficFetcher, cache *CacheService) *TrafficReportService {
	log, err := logger.New("error")
	require.NoError(t, err)

	svc := NewTrafficReportService(fetcher, analyzer.New(), cache, log, 5)
	svc.now = testClock
	return svc
}

func TestBuildReport(t *testing.T) {
	fetcher := newStubFetcher()
	svc := newTestReportService(t, fetcher, nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{IncludeSeries: true})
	require.NoError(t, err)

	// Window is the trailing 14 days ending today
	assert.Equal(t, testDay(1), report.Window.Since)
	assert.Equal(t, testDay(14), report.Window.Until)
	assert.Equal(t, WindowDays, report.Window.Days)

	// Views: totals from the zero-filled series, uniques from the aggregate
	assert.Equal(t, int64(30), report.Views.TotalCount)
	assert.Equal(t, int64(9), report.Views.TotalUniques)
	assert.False(t, report.Views.UniquesEstimated)
	assert.InDelta(t, 30.0/14.0, report.Views.AverageDailyCount, 1e-9)
	assert.Equal(t, testDay(14), report.Views.PeakDay)
	assert.Equal(t, int64(20), report.Views.PeakValue)
	assert.Equal(t, domain.TrendRising, report.Views.Trend)
	assert.InDelta(t, 0.3, report.ViewUniqueRate, 1e-9)

	// Clones: empty source series still yields a full zero report
	assert.Equal(t, int64(0), report.Clones.TotalCount)
	assert.Equal(t, domain.TrendStable, report.Clones.Trend)
	assert.Equal(t, testDay(1), report.Clones.PeakDay)
	assert.InDelta(t, 0.0, report.CloneUniqueRate, 1e-9)

	// Rankings are re-sorted deterministically
	require.Len(t, report.TopReferrers, 3)
	assert.Equal(t, "c", report.TopReferrers[0].Label)
	assert.Equal(t, "a", report.TopReferrers[1].Label)
	assert.Equal(t, "b", report.TopReferrers[2].Label)

	// Detailed series cover the whole window
	assert.Len(t, report.ViewSeries, WindowDays)
	assert.Len(t, report.CloneSeries, WindowDays)

	require.NotNil(t, report.Repository)
	assert.Equal(t, "octocat/hello", report.Repository.FullName)
	assert.Equal(t, testClock().UTC(), report.GeneratedAt)
}

func TestBuildReport_SeriesOmittedByDefault(t *testing.T) {
	svc := newTestReportService(t, newStubFetcher(), nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{})
	require.NoError(t, err)
	assert.Nil(t, report.ViewSeries)
	assert.Nil(t, report.CloneSeries)
}

func TestBuildReport_TopN(t *testing.T) {
	svc := newTestReportService(t, newStubFetcher(), nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{TopN: 2})
	require.NoError(t, err)
	require.Len(t, report.TopReferrers, 2)
	assert.Equal(t, "c", report.TopReferrers[0].Label)
	assert.Equal(t, "a", report.TopReferrers[1].Label)
}

func TestBuildReport_NegativeTopN(t *testing.T) {
	svc := newTestReportService(t, newStubFetcher(), nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{TopN: -1})
	assert.Nil(t, report)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
}

func TestBuildReport_MissingOwnerOrRepo(t *testing.T) {
	svc := newTestReportService(t, newStubFetcher(), nil)

	_, err := svc.BuildReport(context.Background(), "", "hello", ReportOptions{})
	assert.Error(t, err)

	_, err = svc.BuildReport(context.Background(), "octocat", "", ReportOptions{})
	assert.Error(t, err)
}

func TestBuildReport_MetadataFailureTolerated(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.repoErr = errors.NewExternalError("metadata down", nil)
	fetcher.repoInfo = nil
	svc := newTestReportService(t, fetcher, nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{})
	require.NoError(t, err)
	assert.Nil(t, report.Repository)
	assert.Equal(t, int64(30), report.Views.TotalCount)
}

func TestBuildReport_FetchErrorPropagates(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.viewsErr = errors.NewExternalError("github down", nil)
	svc := newTestReportService(t, fetcher, nil)

	report, err := svc.BuildReport(context.Background(), "octocat", "hello", ReportOptions{})
	assert.Nil(t, report)
	assert.Error(t, err)
}

func TestBuildReport_UsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	cache := NewCacheService(redisClient, zap.NewNop())
	fetcher := newStubFetcher()
	svc := newTestReportService(t, fetcher, cache)
	ctx := context.Background()

	first, err := svc.BuildReport(ctx, "octocat", "hello", ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.viewCalls.Load())

	// The cache write is fire-and-forget
	cacheKey := redisClient.KeyBuilder.KeyTrafficReport("octocat", "hello")
	require.Eventually(t, func() bool {
		return mr.Exists(cacheKey)
	}, 2*time.Second, 10*time.Millisecond)

	second, err := svc.BuildReport(ctx, "octocat", "hello", ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.viewCalls.Load(), "second call should be served from cache")
	assert.Equal(t, first.Views, second.Views)

	// Shaping still applies to cached reports
	shaped, err := svc.BuildReport(ctx, "octocat", "hello", ReportOptions{TopN: 1})
	require.NoError(t, err)
	require.Len(t, shaped.TopReferrers, 1)
	assert.Equal(t, "c", shaped.TopReferrers[0].Label)

	// SkipCache forces a fresh fetch
	_, err = svc.BuildReport(ctx, "octocat", "hello", ReportOptions{SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.viewCalls.Load())
}
