package domain

import (
	"time"
)

// Trend is a qualitative label for where a traffic series is heading across
// the reporting window.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// DailyCount represents one day's views or clones. Count and Uniques are
// independent measures reported by GitHub; neither bounds the other.
type DailyCount struct {
	Date    time.Time `json:"date"`
	Count   int64     `json:"count"`
	Uniques int64     `json:"uniques"`
}

// TrafficSeries is a chronological sequence of daily counts covering at most
// the 14 days GitHub retains. Days with no activity may be missing from the
// upstream response; callers align the series over the reporting window
// before analyzing it.
//
// AggregateUniques carries the window-level unique figure from the API
// envelope. Daily uniques can double-count a visitor across days, so the
// aggregate is the authoritative number when HasAggregate is set.
type TrafficSeries struct {
	Days             []DailyCount `json:"days"`
	AggregateCount   int64        `json:"aggregate_count"`
	AggregateUniques int64        `json:"aggregate_uniques"`
	HasAggregate     bool         `json:"has_aggregate"`
}

// RankedEntry is one row of the referrer or popular-path listing.
type RankedEntry struct {
	Label   string `json:"label"`
	Count   int64  `json:"count"`
	Uniques int64  `json:"uniques"`
}

// RankedList holds ranked entries in source order. GitHub returns these
// pre-sorted by count, but consumers re-sort defensively.
type RankedList []RankedEntry

// TrafficSummary holds the derived metrics for a single traffic series.
type TrafficSummary struct {
	TotalCount        int64     `json:"total_count"`
	TotalUniques      int64     `json:"total_uniques"`
	UniquesEstimated  bool      `json:"uniques_estimated,omitempty"`
	AverageDailyCount float64   `json:"average_daily_count"`
	PeakDay           time.Time `json:"peak_day"`
	PeakValue         int64     `json:"peak_value"`
	Trend             Trend     `json:"trend"`
}
