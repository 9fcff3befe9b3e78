package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/chris/tgrid/pkg/models"
)

// DefaultBucketWidth is the bucket width used when none is configured
const DefaultBucketWidth = 6 * time.Hour

var (
	// ErrInvalidWidth is returned for widths that do not tile a day evenly
	ErrInvalidWidth = errors.New("bucket width must be positive and divide 24h evenly")

	// ErrEmptyRange is returned when the bounds yield no visualizable range
	ErrEmptyRange = errors.New("bounds produce an empty bucket range")
)

// WidthFromHours converts a configured hour count to a bucket width
func WidthFromHours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// ValidateWidth checks that width is usable for bucket generation
func ValidateWidth(width time.Duration) error {
	if width <= 0 || (24*time.Hour)%width != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWidth, width)
	}
	return nil
}

// FloorMidnight returns midnight at the start of t's calendar day in loc
func FloorMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// GenerateBuckets derives the contiguous buckets covering bounds. The first
// bucket starts at midnight on or before bounds.Min and the last one ends at
// the midnight following bounds.Max's day, so an event exactly at midnight
// still gets a full day after it. Calendar arithmetic is done in bounds.Min's
// location. Bucket edges are wall-clock times, so every day starts a bucket at
// midnight even where a daylight-saving shift makes that day's buckets uneven.
func GenerateBuckets(bounds models.Bounds, width time.Duration) ([]models.Bucket, error) {
	if err := ValidateWidth(width); err != nil {
		return nil, err
	}
	if bounds.Max.Before(bounds.Min) {
		return nil, fmt.Errorf("%w: max %s before min %s", ErrEmptyRange, bounds.Max, bounds.Min)
	}

	loc := bounds.Min.Location()
	start := FloorMidnight(bounds.Min, loc)
	end := FloorMidnight(bounds.Max, loc).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, ErrEmptyRange
	}

	var edges []time.Time
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		year, month, date := day.Date()
		for offset := time.Duration(0); offset < 24*time.Hour; offset += width {
			edge := time.Date(year, month, date, 0, 0, 0, int(offset), loc)
			// a wall-clock hour skipped by a forward shift collapses onto the next edge
			if n := len(edges); n > 0 && !edges[n-1].Before(edge) {
				continue
			}
			edges = append(edges, edge)
		}
	}
	edges = append(edges, end)

	buckets := make([]models.Bucket, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		buckets = append(buckets, models.Bucket{
			Index: i,
			Start: edges[i],
			End:   edges[i+1],
		})
	}

	return buckets, nil
}

// TotalHours returns the hours spanned by buckets, the upper limit of the
// continuous axis
func TotalHours(buckets []models.Bucket) float64 {
	if len(buckets) == 0 {
		return 0
	}
	return buckets[len(buckets)-1].End.Sub(buckets[0].Start).Hours()
}

// HoursSinceStart returns t's position on the continuous axis
func HoursSinceStart(buckets []models.Bucket, t time.Time) float64 {
	if len(buckets) == 0 {
		return 0
	}
	return t.Sub(buckets[0].Start).Hours()
}

// TimeAtHours is the inverse of HoursSinceStart
func TimeAtHours(buckets []models.Bucket, hours float64) time.Time {
	if len(buckets) == 0 {
		return time.Time{}
	}
	return buckets[0].Start.Add(time.Duration(hours * float64(time.Hour)))
}
