package selection

import (
	"math"

	"github.com/chris/tgrid/pkg/models"
)

// GridToHours converts a bucket-index range to hours since dataset start.
// Column i covers [i*w, (i+1)*w), so the high handle maps to the end of its
// column.
func GridToHours(r models.SelectionRange, bucketHours float64) models.SelectionRange {
	return models.SelectionRange{
		Low:  r.Low * bucketHours,
		High: (r.High + 1) * bucketHours,
	}
}

// HoursToGrid is the inverse of GridToHours. The result never inverts.
func HoursToGrid(r models.SelectionRange, bucketHours float64) models.SelectionRange {
	if bucketHours <= 0 {
		return models.SelectionRange{}
	}
	low := r.Low / bucketHours
	high := math.Max(r.High/bucketHours-1, low)
	return models.SelectionRange{Low: low, High: high}
}
