package timeline

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/tgrid/pkg/models"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func at(day, hour, min int) time.Time {
	return time.Date(2024, 1, day, hour, min, 0, 0, time.UTC)
}

// assertContiguous checks the shared bucket invariants
func assertContiguous(t *testing.T, buckets []models.Bucket, width time.Duration) {
	t.Helper()
	for i, b := range buckets {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, width, b.Width(), "bucket %d width", i)
		if i > 0 {
			assert.True(t, buckets[i-1].End.Equal(b.Start), "bucket %d not contiguous", i)
		}
	}
}

// TestGenerateBuckets_ThreeEventDataset tests the buckets of a small flight dataset
func TestGenerateBuckets_ThreeEventDataset(t *testing.T) {
	bounds := models.Bounds{Min: at(1, 6, 0), Max: at(2, 3, 0)}

	buckets, err := GenerateBuckets(bounds, DefaultBucketWidth)
	require.NoError(t, err)

	require.Len(t, buckets, 8)
	assertContiguous(t, buckets, 6*time.Hour)
	assert.True(t, at(1, 0, 0).Equal(buckets[0].Start))
	assert.True(t, at(1, 6, 0).Equal(buckets[1].Start))
	assert.True(t, at(2, 0, 0).Equal(buckets[4].Start))
	assert.True(t, at(3, 0, 0).Equal(buckets[7].End))
}

// TestGenerateBuckets_MaxAtMidnight tests that a max exactly at midnight still gets a full day
func TestGenerateBuckets_MaxAtMidnight(t *testing.T) {
	bounds := models.Bounds{Min: at(1, 10, 0), Max: at(2, 0, 0)}

	buckets, err := GenerateBuckets(bounds, DefaultBucketWidth)
	require.NoError(t, err)

	require.Len(t, buckets, 8)
	assert.True(t, at(3, 0, 0).Equal(buckets[len(buckets)-1].End))
}

// TestGenerateBuckets_SingleInstant tests a dataset whose min equals max
func TestGenerateBuckets_SingleInstant(t *testing.T) {
	bounds := models.Bounds{Min: at(5, 0, 0), Max: at(5, 0, 0)}

	buckets, err := GenerateBuckets(bounds, 12*time.Hour)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.True(t, at(5, 0, 0).Equal(buckets[0].Start))
	assert.True(t, at(6, 0, 0).Equal(buckets[1].End))
}

// TestGenerateBuckets_Coverage tests the span property over several widths and bounds
func TestGenerateBuckets_Coverage(t *testing.T) {
	widths := []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour, 4 * time.Hour, 6 * time.Hour, 8 * time.Hour, 12 * time.Hour, 24 * time.Hour}
	bounds := []models.Bounds{
		{Min: at(1, 0, 0), Max: at(1, 0, 0)},
		{Min: at(1, 23, 59), Max: at(2, 0, 1)},
		{Min: at(3, 7, 15), Max: at(9, 18, 45)},
	}

	for _, w := range widths {
		for _, b := range bounds {
			buckets, err := GenerateBuckets(b, w)
			require.NoError(t, err)
			require.NotEmpty(t, buckets)
			assertContiguous(t, buckets, w)

			wantStart := FloorMidnight(b.Min, time.UTC)
			wantEnd := FloorMidnight(b.Max, time.UTC).AddDate(0, 0, 1)
			assert.True(t, wantStart.Equal(buckets[0].Start))
			assert.True(t, wantEnd.Equal(buckets[len(buckets)-1].End))
			assert.False(t, buckets[0].Start.After(b.Min))
			assert.True(t, buckets[len(buckets)-1].End.After(b.Max))
		}
	}
}

func TestGenerateBuckets_InvalidWidth(t *testing.T) {
	bounds := models.Bounds{Min: at(1, 0, 0), Max: at(2, 0, 0)}

	for _, w := range []time.Duration{0, -time.Hour, 5 * time.Hour, 7 * time.Hour, 48 * time.Hour} {
		_, err := GenerateBuckets(bounds, w)
		assert.True(t, errors.Is(err, ErrInvalidWidth), "width %s", w)
	}
}

func TestGenerateBuckets_InvertedBounds(t *testing.T) {
	_, err := GenerateBuckets(models.Bounds{Min: at(2, 0, 0), Max: at(1, 0, 0)}, DefaultBucketWidth)
	assert.True(t, errors.Is(err, ErrEmptyRange))
}

// TestGenerateBuckets_OffsetZone tests midnight alignment follows the timestamps' own offset
func TestGenerateBuckets_OffsetZone(t *testing.T) {
	zone := time.FixedZone("UTC+9", 9*3600)
	bounds := models.Bounds{
		Min: time.Date(2024, 1, 1, 3, 0, 0, 0, zone),
		Max: time.Date(2024, 1, 1, 20, 0, 0, 0, zone),
	}

	buckets, err := GenerateBuckets(bounds, DefaultBucketWidth)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, 0, buckets[0].Start.Hour())
	assert.Equal(t, 1, buckets[0].Start.Day())
}

// TestGenerateBuckets_DaylightSaving tests buckets stay on wall-clock
// boundaries across a forward shift
func TestGenerateBuckets_DaylightSaving(t *testing.T) {
	ny := newYork(t)
	bounds := models.Bounds{
		Min: time.Date(2024, 3, 10, 1, 0, 0, 0, ny),
		Max: time.Date(2024, 3, 11, 20, 0, 0, 0, ny),
	}

	buckets, err := GenerateBuckets(bounds, DefaultBucketWidth)
	require.NoError(t, err)
	require.Len(t, buckets, 8)

	for i, b := range buckets {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, (i%4)*6, b.Start.Hour(), "bucket %d start", i)
		assert.Equal(t, 0, b.Start.Minute())
		if i > 0 {
			assert.True(t, buckets[i-1].End.Equal(b.Start), "bucket %d not contiguous", i)
		}
	}
	assert.Equal(t, 5*time.Hour, buckets[0].Width())
	assert.Equal(t, 6*time.Hour, buckets[1].Width())
	assert.True(t, time.Date(2024, 3, 12, 0, 0, 0, 0, ny).Equal(buckets[7].End))

	groups := GroupByDate(buckets)
	require.Len(t, groups, 2)
	assert.Equal(t, 4, groups[0].Span)
	assert.Equal(t, 4, groups[1].Span)
	assert.Equal(t, "11-Mar", groups[1].Label)
}

// TestGenerateBuckets_DaylightSavingHourly tests the skipped wall-clock hour
// yields no empty bucket
func TestGenerateBuckets_DaylightSavingHourly(t *testing.T) {
	ny := newYork(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, ny)

	buckets, err := GenerateBuckets(models.Bounds{Min: day, Max: day}, time.Hour)
	require.NoError(t, err)
	require.Len(t, buckets, 23)
	for _, b := range buckets {
		assert.Equal(t, time.Hour, b.Width())
	}
	assert.Equal(t, 0, buckets[len(buckets)-1].End.Hour())
}

func TestHoursConversions(t *testing.T) {
	buckets, err := GenerateBuckets(models.Bounds{Min: at(1, 6, 0), Max: at(2, 3, 0)}, DefaultBucketWidth)
	require.NoError(t, err)

	assert.Equal(t, 48.0, TotalHours(buckets))
	assert.Equal(t, 27.0, HoursSinceStart(buckets, at(2, 3, 0)))
	assert.True(t, at(1, 13, 30).Equal(TimeAtHours(buckets, 13.5)))

	assert.Equal(t, 0.0, TotalHours(nil))
	assert.True(t, TimeAtHours(nil, 3).IsZero())
}
