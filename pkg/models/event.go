package models

import "time"

// Attribute is a single pass-through key/value carried alongside an event's timestamp
type Attribute struct {
	Key   string
	Value any
}

// Event represents one time-stamped occurrence belonging to an entity
type Event struct {
	EntityID   string
	Name       string
	Timestamp  time.Time
	Attributes []Attribute // input order, DateTime excluded
}

// Attribute returns the value stored under key and whether it was present
func (e Event) Attribute(key string) (any, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// Bounds is the minimum and maximum timestamp across a loaded dataset
type Bounds struct {
	Min time.Time
	Max time.Time
}

// Span returns the duration between Min and Max
func (b Bounds) Span() time.Duration {
	return b.Max.Sub(b.Min)
}

// Bucket is a half-open interval [Start, End) of the discretized timeline
type Bucket struct {
	Index int
	Start time.Time
	End   time.Time
}

// Width returns the bucket duration
func (b Bucket) Width() time.Duration {
	return b.End.Sub(b.Start)
}

// Contains reports whether t lies in [Start, End)
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Category is the presentation class assigned to a binned event
type Category string

const (
	CategoryNone        Category = ""
	CategoryTruth       Category = "truth"
	CategoryMatch       Category = "match"
	CategoryDiscrepancy Category = "discrepancy"
)

// BinnedEvent pairs an event with its containing bucket and position inside it
type BinnedEvent struct {
	Event       Event
	BucketIndex int
	Fraction    float64 // [0, 1)
	Category    Category
}

// DateGroup is a run of consecutive buckets sharing a calendar date
type DateGroup struct {
	Label       string
	Date        time.Time // midnight of the group's day
	StartBucket int
	Span        int
}

// EndBucket returns the last bucket index covered by the group
func (g DateGroup) EndBucket() int {
	return g.StartBucket + g.Span - 1
}

// SelectionRange is the currently visible window, in bucket indices or hours
type SelectionRange struct {
	Low  float64
	High float64
}

// Width returns High - Low
func (r SelectionRange) Width() float64 {
	return r.High - r.Low
}
