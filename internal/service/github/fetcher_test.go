package github

import (
	"testing"
	"time"

	gh "github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gh-intel/pkg/errors"
	"gh-intel/pkg/logger"
)

func ts(day int, hour int) *gh.Timestamp {
	return &gh.Timestamp{Time: time.Date(2026, time.August, day, hour, 0, 0, 0, time.UTC)}
}

func TestNewService(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)

	t.Run("default base URL", func(t *testing.T) {
		svc, err := NewService("ghp_token", "", log)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("custom base URL", func(t *testing.T) {
		svc, err := NewService("", "https://ghe.example.com/api/v3", log)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		svc, err := NewService("", "://bad", log)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestMapSeries(t *testing.T) {
	data := []*gh.TrafficData{
		{Timestamp: ts(2, 0), Count: gh.Int(10), Uniques: gh.Int(4)},
		{Timestamp: ts(1, 0), Count: gh.Int(3), Uniques: gh.Int(1)},
	}

	series, err := mapSeries(data, gh.Int(13), gh.Int(5))
	require.NoError(t, err)

	// Re-sorted chronologically regardless of source order
	require.Len(t, series.Days, 2)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), series.Days[0].Date)
	assert.Equal(t, int64(3), series.Days[0].Count)
	assert.Equal(t, int64(10), series.Days[1].Count)

	assert.True(t, series.HasAggregate)
	assert.Equal(t, int64(13), series.AggregateCount)
	assert.Equal(t, int64(5), series.AggregateUniques)
}

func TestMapSeries_TruncatesTimestampToDay(t *testing.T) {
	data := []*gh.TrafficData{
		{Timestamp: ts(7, 23), Count: gh.Int(1), Uniques: gh.Int(1)},
	}

	series, err := mapSeries(data, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.August, 7, 0, 0, 0, 0, time.UTC), series.Days[0].Date)
}

func TestMapSeries_MissingAggregateIsFlagged(t *testing.T) {
	data := []*gh.TrafficData{
		{Timestamp: ts(1, 0), Count: gh.Int(1), Uniques: gh.Int(1)},
	}

	series, err := mapSeries(data, nil, gh.Int(1))
	require.NoError(t, err)
	assert.False(t, series.HasAggregate)
}

func TestMapSeries_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []*gh.TrafficData
	}{
		{
			name: "missing timestamp",
			data: []*gh.TrafficData{{Count: gh.Int(1), Uniques: gh.Int(1)}},
		},
		{
			name: "missing count",
			data: []*gh.TrafficData{{Timestamp: ts(1, 0), Uniques: gh.Int(1)}},
		},
		{
			name: "missing uniques",
			data: []*gh.TrafficData{{Timestamp: ts(1, 0), Count: gh.Int(1)}},
		},
		{
			name: "nil entry",
			data: []*gh.TrafficData{nil},
		},
		{
			name: "negative count",
			data: []*gh.TrafficData{{Timestamp: ts(1, 0), Count: gh.Int(-1), Uniques: gh.Int(0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapSeries(tt.data, nil, nil)
			require.Error(t, err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrorTypeMalformedResponse, appErr.Type)
		})
	}
}

func TestMapSeries_Empty(t *testing.T) {
	series, err := mapSeries(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, series.Days)
	assert.False(t, series.HasAggregate)
}

func TestMapReferrers(t *testing.T) {
	referrers := []*gh.TrafficReferrer{
		{Referrer: gh.String("news.ycombinator.com"), Count: gh.Int(120), Uniques: gh.Int(90)},
		{Referrer: gh.String("google.com"), Count: gh.Int(80), Uniques: gh.Int(60)},
	}

	list, err := mapReferrers(referrers)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "news.ycombinator.com", list[0].Label)
	assert.Equal(t, int64(120), list[0].Count)
	assert.Equal(t, int64(90), list[0].Uniques)
}

func TestMapReferrers_Malformed(t *testing.T) {
	referrers := []*gh.TrafficReferrer{
		{Referrer: gh.String("google.com"), Uniques: gh.Int(1)},
	}

	_, err := mapReferrers(referrers)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeMalformedResponse, appErr.Type)
}

func TestMapPaths(t *testing.T) {
	paths := []*gh.TrafficPath{
		{Path: gh.String("/owner/repo"), Title: gh.String("repo"), Count: gh.Int(40), Uniques: gh.Int(30)},
		{Path: gh.String("/owner/repo/blob/main/README.md"), Count: gh.Int(25), Uniques: gh.Int(20)},
	}

	list, err := mapPaths(paths)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/owner/repo", list[0].Label)
	assert.Equal(t, int64(25), list[1].Count)
}

func TestMapPaths_Malformed(t *testing.T) {
	paths := []*gh.TrafficPath{
		{Count: gh.Int(1), Uniques: gh.Int(1)},
	}

	_, err := mapPaths(paths)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeMalformedResponse, appErr.Type)
}
