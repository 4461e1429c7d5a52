package service

import (
	"context"

	"gh-intel/internal/domain"
)

// AuthService defines the interface for API authentication operations
type AuthService interface {
	// ValidateToken validates an API bearer token and returns its claims
	ValidateToken(ctx context.Context, token string) (*domain.APIClaims, error)

	// Enabled reports whether bearer auth is configured
	Enabled() bool
}

// TrafficFetcher defines the interface for retrieving raw traffic records
// from the GitHub API. Implementations return source-shaped data; alignment
// and analysis happen elsewhere.
type TrafficFetcher interface {
	// FetchViews retrieves the per-day page view series
	FetchViews(ctx context.Context, owner, repo string) (domain.TrafficSeries, error)

	// FetchClones retrieves the per-day clone series
	FetchClones(ctx context.Context, owner, repo string) (domain.TrafficSeries, error)

	// FetchReferrers retrieves the top referral sources
	FetchReferrers(ctx context.Context, owner, repo string) (domain.RankedList, error)

	// FetchPaths retrieves the most viewed content paths
	FetchPaths(ctx context.Context, owner, repo string) (domain.RankedList, error)

	// FetchRepository retrieves basic repository metadata
	FetchRepository(ctx context.Context, owner, repo string) (*domain.RepositoryInfo, error)
}

// ReportService defines the interface for building traffic reports
type ReportService interface {
	// BuildReport fetches, aligns and analyzes a repository's traffic
	BuildReport(ctx context.Context, owner, repo string, opts ReportOptions) (*domain.TrafficReport, error)
}

// ReportOptions controls the shape of a built report
type ReportOptions struct {
	// TopN bounds the referrer and path rankings; 0 means the configured default
	TopN int

	// IncludeSeries attaches the zero-filled daily series to the report
	IncludeSeries bool

	// SkipCache bypasses the report cache for this invocation
	SkipCache bool
}

// Services aggregates all service interfaces
type Services struct {
	Auth    AuthService
	Fetcher TrafficFetcher
	Report  ReportService
}
