// Package analyzer turns raw traffic series and ranked listings into derived
// metrics: totals, uniques, daily averages, peak detection, trend
// classification and deterministic top-N ranking. Everything here is pure
// computation over the supplied data, so summaries are reproducible and
// testable without any network mocking.
package analyzer

import (
	"errors"
	"sort"
	"time"

	"gh-intel/internal/domain"
)

var (
	// ErrEmptySeries is returned when a summary is requested for a series
	// with no days; average and peak are undefined. A zero-filled single day
	// is a valid series, an empty one is not.
	ErrEmptySeries = errors.New("analyzer: traffic series is empty")

	// ErrInvalidArgument is returned for a negative top-N size. This is a
	// programming error and is never silently clamped.
	ErrInvalidArgument = errors.New("analyzer: n must not be negative")
)

const (
	// DefaultTrendThreshold is the fraction of the first-half sum the second
	// half must move by before a series counts as rising or falling.
	DefaultTrendThreshold = 0.10

	// DefaultTopN is the ranking size used when callers do not ask for a
	// specific one.
	DefaultTopN = 5
)

// Analyzer computes traffic summaries. It holds no mutable state; one
// instance can be shared freely.
type Analyzer struct {
	trendThreshold float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTrendThreshold overrides the trend classification threshold fraction.
// Non-positive values fall back to the default.
func WithTrendThreshold(fraction float64) Option {
	return func(a *Analyzer) {
		if fraction > 0 {
			a.trendThreshold = fraction
		}
	}
}

// New creates an analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{trendThreshold: DefaultTrendThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TrendThreshold returns the configured threshold fraction.
func (a *Analyzer) TrendThreshold() float64 {
	return a.trendThreshold
}

// Summarize computes total, average, peak and trend for one series. Views
// and clones are summarized independently with two calls.
//
// Total uniques comes from the API-level aggregate when the series carries
// one; otherwise the daily uniques are summed and the summary is flagged as
// estimated, since a visitor active on several days is counted once per day.
func (a *Analyzer) Summarize(series domain.TrafficSeries) (*domain.TrafficSummary, error) {
	if len(series.Days) == 0 {
		return nil, ErrEmptySeries
	}

	var totalCount int64
	for _, d := range series.Days {
		totalCount += d.Count
	}

	peakDay := series.Days[0].Date
	peakValue := series.Days[0].Count
	for _, d := range series.Days[1:] {
		// Strict comparison keeps the earliest day on ties.
		if d.Count > peakValue {
			peakValue = d.Count
			peakDay = d.Date
		}
	}

	summary := &domain.TrafficSummary{
		TotalCount:        totalCount,
		AverageDailyCount: float64(totalCount) / float64(len(series.Days)),
		PeakDay:           peakDay,
		PeakValue:         peakValue,
		Trend:             a.classifyTrend(series.Days),
	}

	if series.HasAggregate {
		summary.TotalUniques = series.AggregateUniques
	} else {
		for _, d := range series.Days {
			summary.TotalUniques += d.Uniques
		}
		summary.UniquesEstimated = true
	}

	return summary, nil
}

// classifyTrend compares the first-half and second-half sums of the series.
// With an odd length the middle day belongs to neither half.
func (a *Analyzer) classifyTrend(days []domain.DailyCount) domain.Trend {
	if len(days) < 2 {
		return domain.TrendStable
	}

	half := len(days) / 2
	var firstSum, secondSum int64
	for _, d := range days[:half] {
		firstSum += d.Count
	}
	for _, d := range days[len(days)-half:] {
		secondSum += d.Count
	}

	if firstSum == 0 {
		if secondSum > 0 {
			return domain.TrendRising
		}
		return domain.TrendStable
	}

	limit := a.trendThreshold * float64(firstSum)
	diff := float64(secondSum - firstSum)
	switch {
	case diff > limit:
		return domain.TrendRising
	case -diff > limit:
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}

// TopN returns the first n entries after re-sorting: count descending, then
// uniques descending, then label ascending so equal rows order
// deterministically. The input is never assumed pre-sorted and is not
// modified. Lists shorter than n are returned whole.
func (a *Analyzer) TopN(list domain.RankedList, n int) (domain.RankedList, error) {
	if n < 0 {
		return nil, ErrInvalidArgument
	}

	ranked := make(domain.RankedList, len(list))
	copy(ranked, list)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		if ranked[i].Uniques != ranked[j].Uniques {
			return ranked[i].Uniques > ranked[j].Uniques
		}
		return ranked[i].Label < ranked[j].Label
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// UniqueRate measures visitor diversity: uniques per raw count. A summary
// with no traffic rates 0.
func (a *Analyzer) UniqueRate(summary *domain.TrafficSummary) float64 {
	if summary == nil || summary.TotalCount <= 0 {
		return 0.0
	}
	return float64(summary.TotalUniques) / float64(summary.TotalCount)
}

// ZeroFill aligns a series onto the reporting window: every day from since
// through until appears exactly once, in chronological order, with days the
// source omitted filled in as zero activity. Days outside the window are
// dropped; the window derived from the fetch is authoritative.
func ZeroFill(days []domain.DailyCount, since, until time.Time) []domain.DailyCount {
	since = utcDay(since)
	until = utcDay(until)
	if until.Before(since) {
		return nil
	}

	byDay := make(map[time.Time]domain.DailyCount, len(days))
	for _, d := range days {
		byDay[utcDay(d.Date)] = d
	}

	var filled []domain.DailyCount
	for day := since; !day.After(until); day = day.AddDate(0, 0, 1) {
		if d, ok := byDay[day]; ok {
			filled = append(filled, domain.DailyCount{Date: day, Count: d.Count, Uniques: d.Uniques})
		} else {
			filled = append(filled, domain.DailyCount{Date: day})
		}
	}
	return filled
}

// utcDay truncates a timestamp to its UTC calendar day.
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
