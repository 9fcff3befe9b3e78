package timeline

import (
	"github.com/chris/tgrid/pkg/models"
)

// GroupByDate groups consecutive buckets that start on the same calendar day,
// in a single forward pass. Dates are taken in each bucket's own location.
func GroupByDate(buckets []models.Bucket) []models.DateGroup {
	var groups []models.DateGroup

	for _, b := range buckets {
		day := FloorMidnight(b.Start, b.Start.Location())
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Span++
			continue
		}
		groups = append(groups, models.DateGroup{
			Label:       DateLabel(day),
			Date:        day,
			StartBucket: b.Index,
			Span:        1,
		})
	}

	return groups
}

// DayLabels returns one label per calendar day covered by buckets, for
// range-slider tick marks
func DayLabels(buckets []models.Bucket) []string {
	groups := GroupByDate(buckets)
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	return labels
}
