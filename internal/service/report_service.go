package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"gh-intel/internal/analyzer"
	"gh-intel/internal/domain"
	"gh-intel/pkg/errors"
	"gh-intel/pkg/logger"
)

// WindowDays is the trailing period GitHub retains traffic analytics for.
const WindowDays = 14

// TrafficReportService builds traffic reports: it fetches the raw records,
// aligns both series onto the reporting window, runs the analyzer and
// assembles the result. Reports are cached whole; per-request shaping
// (ranking size, detailed series) happens on a copy.
type TrafficReportService struct {
	fetcher     TrafficFetcher
	analyzer    *analyzer.Analyzer
	cache       *CacheService // nil when Redis is not configured
	logger      *logger.Logger
	defaultTopN int
	now         func() time.Time
}

// NewTrafficReportService creates a new report service
func NewTrafficReportService(fetcher TrafficFetcher, a *analyzer.Analyzer, cache *CacheService, log *logger.Logger, defaultTopN int) *TrafficReportService {
	if defaultTopN <= 0 {
		defaultTopN = analyzer.DefaultTopN
	}
	return &TrafficReportService{
		fetcher:     fetcher,
		analyzer:    a,
		cache:       cache,
		logger:      log,
		defaultTopN: defaultTopN,
		now:         time.Now,
	}
}

// BuildReport fetches, aligns and analyzes a repository's traffic
func (s *TrafficReportService) BuildReport(ctx context.Context, owner, repo string, opts ReportOptions) (*domain.TrafficReport, error) {
	if owner == "" || repo == "" {
		return nil, errors.NewValidationError("owner and repo are required", map[string]interface{}{
			"owner": owner,
			"repo":  repo,
		})
	}

	report, err := s.canonicalReport(ctx, owner, repo, opts.SkipCache)
	if err != nil {
		return nil, err
	}

	return s.shapeReport(report, opts)
}

// canonicalReport returns the full report for a repository, from cache when
// possible: complete rankings, detailed series included.
func (s *TrafficReportService) canonicalReport(ctx context.Context, owner, repo string, skipCache bool) (*domain.TrafficReport, error) {
	if s.cache != nil && !skipCache {
		if cached, ok := s.cache.GetTrafficReport(ctx, owner, repo); ok {
			return cached, nil
		}
	}

	report, err := s.buildFresh(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.StoreTrafficReport(owner, repo, report)
	}
	return report, nil
}

// buildFresh performs one full fetch-and-analyze pass
func (s *TrafficReportService) buildFresh(ctx context.Context, owner, repo string) (*domain.TrafficReport, error) {
	start := time.Now()

	var (
		views     domain.TrafficSeries
		clones    domain.TrafficSeries
		referrers domain.RankedList
		paths     domain.RankedList
		repoInfo  *domain.RepositoryInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = s.fetcher.FetchViews(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		clones, err = s.fetcher.FetchClones(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		referrers, err = s.fetcher.FetchReferrers(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		paths, err = s.fetcher.FetchPaths(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		// Metadata is decoration on the report; a failure here must not
		// lose the traffic analytics.
		info, err := s.fetcher.FetchRepository(gctx, owner, repo)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"owner": owner,
				"repo":  repo,
			}).Warn("Repository metadata unavailable, continuing without it")
			return nil
		}
		repoInfo = info
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	window := s.reportWindow(views.Days, clones.Days)

	viewSeries := domain.TrafficSeries{
		Days:             analyzer.ZeroFill(views.Days, window.Since, window.Until),
		AggregateCount:   views.AggregateCount,
		AggregateUniques: views.AggregateUniques,
		HasAggregate:     views.HasAggregate,
	}
	cloneSeries := domain.TrafficSeries{
		Days:             analyzer.ZeroFill(clones.Days, window.Since, window.Until),
		AggregateCount:   clones.AggregateCount,
		AggregateUniques: clones.AggregateUniques,
		HasAggregate:     clones.HasAggregate,
	}

	viewSummary, err := s.analyzer.Summarize(viewSeries)
	if err != nil {
		return nil, errors.NewInternalError("failed to summarize view traffic", err)
	}
	cloneSummary, err := s.analyzer.Summarize(cloneSeries)
	if err != nil {
		return nil, errors.NewInternalError("failed to summarize clone traffic", err)
	}

	// Full-length rankings; defensive re-sort happens here so every consumer
	// sees deterministic order.
	rankedReferrers, err := s.analyzer.TopN(referrers, len(referrers))
	if err != nil {
		return nil, errors.NewInternalError("failed to rank referrers", err)
	}
	rankedPaths, err := s.analyzer.TopN(paths, len(paths))
	if err != nil {
		return nil, errors.NewInternalError("failed to rank paths", err)
	}

	report := &domain.TrafficReport{
		Repository:      repoInfo,
		Window:          window,
		Views:           *viewSummary,
		Clones:          *cloneSummary,
		ViewUniqueRate:  s.analyzer.UniqueRate(viewSummary),
		CloneUniqueRate: s.analyzer.UniqueRate(cloneSummary),
		TopReferrers:    rankedReferrers,
		TopPaths:        rankedPaths,
		ViewSeries:      viewSeries.Days,
		CloneSeries:     cloneSeries.Days,
		GeneratedAt:     s.now().UTC(),
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":        owner,
		"repo":         repo,
		"total_views":  report.Views.TotalCount,
		"total_clones": report.Clones.TotalCount,
		"duration":     time.Since(start).String(),
	}).Info("Traffic report built")

	return report, nil
}

// reportWindow derives the trailing window from the clock, extended when the
// source reports a day past it so no fetched activity is dropped.
func (s *TrafficReportService) reportWindow(series ...[]domain.DailyCount) domain.ReportWindow {
	until := utcDay(s.now())
	for _, days := range series {
		for _, d := range days {
			if day := utcDay(d.Date); day.After(until) {
				until = day
			}
		}
	}
	since := until.AddDate(0, 0, -(WindowDays - 1))
	return domain.ReportWindow{Since: since, Until: until, Days: WindowDays}
}

// shapeReport derives the per-request view of a canonical report without
// touching the cached value.
func (s *TrafficReportService) shapeReport(report *domain.TrafficReport, opts ReportOptions) (*domain.TrafficReport, error) {
	topN := opts.TopN
	if topN == 0 {
		topN = s.defaultTopN
	}

	topReferrers, err := s.analyzer.TopN(report.TopReferrers, topN)
	if err != nil {
		return nil, errors.NewValidationError("invalid ranking size", map[string]interface{}{"n": opts.TopN})
	}
	topPaths, err := s.analyzer.TopN(report.TopPaths, topN)
	if err != nil {
		return nil, errors.NewValidationError("invalid ranking size", map[string]interface{}{"n": opts.TopN})
	}

	shaped := *report
	shaped.TopReferrers = topReferrers
	shaped.TopPaths = topPaths
	if !opts.IncludeSeries {
		shaped.ViewSeries = nil
		shaped.CloneSeries = nil
	}
	return &shaped, nil
}

// utcDay truncates a timestamp to its UTC calendar day
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
