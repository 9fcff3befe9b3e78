package timeline

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/pkg/models"
)

// BinWarning describes an event that could not be placed in any bucket
type BinWarning struct {
	Event  models.Event
	Reason string
}

func (w BinWarning) String() string {
	return fmt.Sprintf("%s/%s at %s: %s", w.Event.EntityID, w.Event.Name, w.Event.Timestamp.Format(time.RFC3339), w.Reason)
}

// Bin assigns each event to the bucket containing it and computes its
// fractional offset inside that bucket. Buckets are half-open, so an event on
// a boundary lands in the later bucket. The containing bucket is found by
// offset arithmetic, not by scanning.
//
// Events outside the bucket span are dropped with a warning. GenerateBuckets
// never produces such a span, so the drop is also logged at error level.
func Bin(events []models.Event, buckets []models.Bucket, log *zap.Logger) ([]models.BinnedEvent, []BinWarning) {
	log = logger.OrNop(log)

	if len(buckets) == 0 {
		warnings := make([]BinWarning, 0, len(events))
		for _, ev := range events {
			warnings = append(warnings, BinWarning{Event: ev, Reason: "no buckets"})
		}
		return nil, warnings
	}

	origin := buckets[0].Start
	last := len(buckets) - 1

	binned := make([]models.BinnedEvent, 0, len(events))
	var warnings []BinWarning

	for _, ev := range events {
		idx := locateBucket(buckets, ev.Timestamp)
		bucket := buckets[idx]
		if !bucket.Contains(ev.Timestamp) {
			warnings = append(warnings, BinWarning{Event: ev, Reason: "timestamp outside bucket range"})
			log.Error("Event outside bucket range",
				zap.String("entity", ev.EntityID),
				zap.String("event", ev.Name),
				zap.Time("timestamp", ev.Timestamp),
				zap.Time("first_bucket_start", origin),
				zap.Time("last_bucket_end", buckets[last].End))
			continue
		}

		binned = append(binned, models.BinnedEvent{
			Event:       ev,
			BucketIndex: idx,
			Fraction:    float64(ev.Timestamp.Sub(bucket.Start)) / float64(bucket.Width()),
		})
	}

	return binned, warnings
}

// locateBucket returns the index of the bucket containing t, clamped to the
// bucket span. The offset estimate is exact for uniform buckets; around a
// daylight-saving shift it is corrected by stepping to the neighbour.
func locateBucket(buckets []models.Bucket, t time.Time) int {
	last := len(buckets) - 1
	span := buckets[last].End.Sub(buckets[0].Start)
	idx := bucketIndex(t, buckets[0].Start, span/time.Duration(len(buckets)), last)
	for idx > 0 && t.Before(buckets[idx].Start) {
		idx--
	}
	for idx < last && !t.Before(buckets[idx].End) {
		idx++
	}
	return idx
}

// bucketIndex returns floor((t - origin) / width) clamped to [0, last]
func bucketIndex(t, origin time.Time, width time.Duration, last int) int {
	offset := t.Sub(origin)
	if offset < 0 {
		return 0
	}
	idx := int(offset / width)
	if idx > last {
		return last
	}
	return idx
}

// Classifier maps a binned event to a presentation category. all is the full
// binned set for the dataset.
type Classifier interface {
	Classify(ev models.BinnedEvent, all []models.BinnedEvent) models.Category
}

// ClassifierFunc adapts a plain function to Classifier
type ClassifierFunc func(ev models.BinnedEvent, all []models.BinnedEvent) models.Category

func (f ClassifierFunc) Classify(ev models.BinnedEvent, all []models.BinnedEvent) models.Category {
	return f(ev, all)
}

// preparer is implemented by classifiers that precompute state over the full
// set once per Classify pass
type preparer interface {
	Prepare(all []models.BinnedEvent)
}

// Classify returns a copy of binned with each event's Category set by c.
// A nil classifier leaves every category empty.
func Classify(binned []models.BinnedEvent, c Classifier) []models.BinnedEvent {
	out := make([]models.BinnedEvent, len(binned))
	copy(out, binned)
	if c == nil {
		return out
	}

	if p, ok := c.(preparer); ok {
		p.Prepare(binned)
	}
	for i := range out {
		out[i].Category = c.Classify(binned[i], binned)
	}
	return out
}

// ReferenceClassifier tags the reference entity's events as truth, events of
// other entities sharing a timestamp with any reference event as match, and
// everything else as discrepancy.
type ReferenceClassifier struct {
	EntityID string

	refTimes map[int64]struct{}
}

// NewReferenceClassifier creates a classifier keyed on entityID
func NewReferenceClassifier(entityID string) *ReferenceClassifier {
	return &ReferenceClassifier{EntityID: entityID}
}

// Prepare indexes the reference timestamps of all
func (r *ReferenceClassifier) Prepare(all []models.BinnedEvent) {
	r.refTimes = make(map[int64]struct{})
	for _, be := range all {
		if be.Event.EntityID == r.EntityID {
			r.refTimes[be.Event.Timestamp.UnixNano()] = struct{}{}
		}
	}
}

func (r *ReferenceClassifier) Classify(ev models.BinnedEvent, all []models.BinnedEvent) models.Category {
	if ev.Event.EntityID == r.EntityID {
		return models.CategoryTruth
	}

	if r.refTimes == nil {
		// Not prepared, fall back to a scan
		for _, be := range all {
			if be.Event.EntityID == r.EntityID && be.Event.Timestamp.Equal(ev.Event.Timestamp) {
				return models.CategoryMatch
			}
		}
		return models.CategoryDiscrepancy
	}

	if _, ok := r.refTimes[ev.Event.Timestamp.UnixNano()]; ok {
		return models.CategoryMatch
	}
	return models.CategoryDiscrepancy
}

// CellKey identifies one grid cell
type CellKey struct {
	EntityID string
	Bucket   int
}

// CellIndex is a read-only lookup of binned events by (entity, bucket),
// built once per render pass
type CellIndex struct {
	cells map[CellKey][]models.BinnedEvent
}

// NewCellIndex groups binned by cell, each cell ordered by fraction
func NewCellIndex(binned []models.BinnedEvent) *CellIndex {
	ix := &CellIndex{cells: make(map[CellKey][]models.BinnedEvent)}
	for _, be := range binned {
		key := CellKey{EntityID: be.Event.EntityID, Bucket: be.BucketIndex}
		ix.cells[key] = append(ix.cells[key], be)
	}
	for _, cell := range ix.cells {
		sort.SliceStable(cell, func(i, j int) bool {
			return cell[i].Fraction < cell[j].Fraction
		})
	}
	return ix
}

// Cell returns the events in the given cell, or nil
func (ix *CellIndex) Cell(entityID string, bucket int) []models.BinnedEvent {
	return ix.cells[CellKey{EntityID: entityID, Bucket: bucket}]
}

// Len returns the number of non-empty cells
func (ix *CellIndex) Len() int {
	return len(ix.cells)
}
