// Package github implements the traffic fetcher against the GitHub REST API.
// It is a boundary adapter: raw API shapes are mapped into domain structs
// here, with field presence validated and timestamps reduced to UTC calendar
// days, so nothing loosely typed reaches the analyzer.
package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"gh-intel/internal/domain"
	"gh-intel/internal/service"
	"gh-intel/pkg/errors"
	"gh-intel/pkg/logger"
)

// Service implements the TrafficFetcher interface
type Service struct {
	client *gh.Client
	logger *logger.Logger
}

// NewService creates a new GitHub traffic fetcher. The token is carried by
// an oauth2 transport on the injected client, never by package state. An
// empty baseURL targets api.github.com; a non-empty one points the client at
// a GitHub Enterprise instance or a test server.
func NewService(token, baseURL string, logger *logger.Logger) (service.TrafficFetcher, error) {
	var client *gh.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = gh.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		// Unauthenticated clients can still read public repo metadata, but
		// traffic endpoints will answer 403; surfaced as an auth error.
		client = gh.NewClient(nil)
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		client.BaseURL = parsed
	}

	return &Service{client: client, logger: logger}, nil
}

// FetchViews retrieves the per-day page view series for the trailing window
func (s *Service) FetchViews(ctx context.Context, owner, repo string) (domain.TrafficSeries, error) {
	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Debug("Fetching view traffic")

	views, _, err := s.client.Repositories.ListTrafficViews(ctx, owner, repo, &gh.TrafficBreakdownOptions{Per: "day"})
	if err != nil {
		return domain.TrafficSeries{}, s.mapAPIError("fetch view traffic", owner, repo, err)
	}
	if views == nil {
		return domain.TrafficSeries{}, errors.NewMalformedResponseError("view traffic response is empty", nil)
	}

	return mapSeries(views.Views, views.Count, views.Uniques)
}

// FetchClones retrieves the per-day clone series for the trailing window
func (s *Service) FetchClones(ctx context.Context, owner, repo string) (domain.TrafficSeries, error) {
	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Debug("Fetching clone traffic")

	clones, _, err := s.client.Repositories.ListTrafficClones(ctx, owner, repo, &gh.TrafficBreakdownOptions{Per: "day"})
	if err != nil {
		return domain.TrafficSeries{}, s.mapAPIError("fetch clone traffic", owner, repo, err)
	}
	if clones == nil {
		return domain.TrafficSeries{}, errors.NewMalformedResponseError("clone traffic response is empty", nil)
	}

	return mapSeries(clones.Clones, clones.Count, clones.Uniques)
}

// FetchReferrers retrieves the referral sources ranked by the API
func (s *Service) FetchReferrers(ctx context.Context, owner, repo string) (domain.RankedList, error) {
	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Debug("Fetching referral sources")

	referrers, _, err := s.client.Repositories.ListTrafficReferrers(ctx, owner, repo)
	if err != nil {
		return nil, s.mapAPIError("fetch referral sources", owner, repo, err)
	}

	return mapReferrers(referrers)
}

// FetchPaths retrieves the most viewed content paths
func (s *Service) FetchPaths(ctx context.Context, owner, repo string) (domain.RankedList, error) {
	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Debug("Fetching popular paths")

	paths, _, err := s.client.Repositories.ListTrafficPaths(ctx, owner, repo)
	if err != nil {
		return nil, s.mapAPIError("fetch popular paths", owner, repo, err)
	}

	return mapPaths(paths)
}

// FetchRepository retrieves basic repository metadata shown alongside the
// traffic report
func (s *Service) FetchRepository(ctx context.Context, owner, repo string) (*domain.RepositoryInfo, error) {
	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Debug("Fetching repository metadata")

	repository, _, err := s.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, s.mapAPIError("fetch repository metadata", owner, repo, err)
	}
	if repository == nil {
		return nil, errors.NewMalformedResponseError("repository response is empty", nil)
	}

	info := &domain.RepositoryInfo{
		FullName:    repository.GetFullName(),
		Description: repository.GetDescription(),
		Stars:       int64(repository.GetStargazersCount()),
		Forks:       int64(repository.GetForksCount()),
		Watchers:    int64(repository.GetSubscribersCount()),
	}
	if info.FullName == "" {
		info.FullName = owner + "/" + repo
	}
	return info, nil
}

// mapAPIError translates go-github errors into typed application errors
func (s *Service) mapAPIError(op, owner, repo string, err error) error {
	target := owner + "/" + repo

	var rateErr *gh.RateLimitError
	if stderrors.As(err, &rateErr) {
		s.logger.WithError(err).WithField("repo", target).Warn("GitHub rate limit hit")
		return errors.NewRateLimitError("GitHub API rate limit exceeded")
	}

	var ghErr *gh.ErrorResponse
	if stderrors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case 404:
			return errors.NewNotFoundError(fmt.Sprintf("repository %s not found", target))
		case 401, 403:
			// Traffic endpoints require push access to the repository
			return errors.NewAuthenticationError(fmt.Sprintf("token not authorized for traffic data on %s", target))
		}
	}

	s.logger.WithError(err).WithFields(map[string]interface{}{
		"operation": op,
		"repo":      target,
	}).Error("GitHub API request failed")
	return errors.NewExternalError(fmt.Sprintf("failed to %s for %s", op, target), err)
}

// mapSeries converts raw per-day traffic entries into a domain series. Every
// entry must carry timestamp, count and uniques; a violated contract fails
// the whole fetch rather than producing a partial series.
func mapSeries(data []*gh.TrafficData, count, uniques *int) (domain.TrafficSeries, error) {
	series := domain.TrafficSeries{}
	series.Days = make([]domain.DailyCount, 0, len(data))

	for i, d := range data {
		if d == nil || d.Timestamp == nil || d.Count == nil || d.Uniques == nil {
			return domain.TrafficSeries{}, errors.NewMalformedResponseError(
				fmt.Sprintf("traffic entry %d is missing timestamp, count or uniques", i), nil)
		}
		if *d.Count < 0 || *d.Uniques < 0 {
			return domain.TrafficSeries{}, errors.NewMalformedResponseError(
				fmt.Sprintf("traffic entry %d has negative counts", i), nil)
		}

		ts := d.Timestamp.Time.UTC()
		series.Days = append(series.Days, domain.DailyCount{
			Date:    time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Count:   int64(*d.Count),
			Uniques: int64(*d.Uniques),
		})
	}

	// The API returns days in order, but nothing downstream assumes it
	sort.Slice(series.Days, func(i, j int) bool {
		return series.Days[i].Date.Before(series.Days[j].Date)
	})

	if count != nil && uniques != nil {
		series.AggregateCount = int64(*count)
		series.AggregateUniques = int64(*uniques)
		series.HasAggregate = true
	}

	return series, nil
}

// mapReferrers converts raw referrer rows into a ranked list
func mapReferrers(referrers []*gh.TrafficReferrer) (domain.RankedList, error) {
	list := make(domain.RankedList, 0, len(referrers))
	for i, r := range referrers {
		if r == nil || r.Referrer == nil || r.Count == nil || r.Uniques == nil {
			return nil, errors.NewMalformedResponseError(
				fmt.Sprintf("referrer entry %d is missing referrer, count or uniques", i), nil)
		}
		list = append(list, domain.RankedEntry{
			Label:   *r.Referrer,
			Count:   int64(*r.Count),
			Uniques: int64(*r.Uniques),
		})
	}
	return list, nil
}

// mapPaths converts raw popular-path rows into a ranked list
func mapPaths(paths []*gh.TrafficPath) (domain.RankedList, error) {
	list := make(domain.RankedList, 0, len(paths))
	for i, p := range paths {
		if p == nil || p.Path == nil || p.Count == nil || p.Uniques == nil {
			return nil, errors.NewMalformedResponseError(
				fmt.Sprintf("path entry %d is missing path, count or uniques", i), nil)
		}
		list = append(list, domain.RankedEntry{
			Label:   *p.Path,
			Count:   int64(*p.Count),
			Uniques: int64(*p.Uniques),
		})
	}
	return list, nil
}
