package domain

import (
	"time"
)

// RepositoryInfo holds the basic repository metadata shown alongside the
// traffic report.
type RepositoryInfo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int64  `json:"stars"`
	Forks       int64  `json:"forks"`
	Watchers    int64  `json:"watchers"`
}

// ReportWindow is the trailing period the report covers, inclusive on both
// ends, in UTC calendar days.
type ReportWindow struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
	Days  int       `json:"days"`
}

// TrafficReport is the assembled analytics report for one repository: the
// summaries for views and clones, unique rates, and the ranked referrer and
// path listings. Reports are transient, built per request from a single
// fetch, never persisted.
type TrafficReport struct {
	Repository      *RepositoryInfo `json:"repository,omitempty"`
	Window          ReportWindow    `json:"window"`
	Views           TrafficSummary  `json:"views"`
	Clones          TrafficSummary  `json:"clones"`
	ViewUniqueRate  float64         `json:"view_unique_rate"`
	CloneUniqueRate float64         `json:"clone_unique_rate"`
	TopReferrers    RankedList      `json:"top_referrers"`
	TopPaths        RankedList      `json:"top_paths"`
	ViewSeries      []DailyCount    `json:"view_series,omitempty"`
	CloneSeries     []DailyCount    `json:"clone_series,omitempty"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// APIClaims holds the subject extracted from a validated API bearer token.
type APIClaims struct {
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"expires_at"`
}
