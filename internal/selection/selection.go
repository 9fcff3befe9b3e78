package selection

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/pkg/models"
)

// maxNotifyRounds bounds re-notification when subscribers keep proposing
// changes from inside their callbacks
const maxNotifyRounds = 16

// Limits are the inclusive bounds a range may occupy
type Limits struct {
	Min float64
	Max float64
}

// GridLimits returns the limits of a grid with n buckets, [0, n-1]
func GridLimits(n int) Limits {
	return Limits{Min: 0, Max: math.Max(float64(n-1), 0)}
}

// HoursLimits returns the limits of the continuous axis, [0, totalHours]
func HoursLimits(totalHours float64) Limits {
	return Limits{Min: 0, Max: math.Max(totalHours, 0)}
}

// Full returns the range covering all of l
func (l Limits) Full() models.SelectionRange {
	return models.SelectionRange{Low: l.Min, High: l.Max}
}

func (l Limits) clamp(v float64) float64 {
	return math.Min(math.Max(v, l.Min), l.Max)
}

// RangeClampWarning reports an update that was adjusted instead of applied verbatim
type RangeClampWarning struct {
	Requested models.SelectionRange
	Applied   models.SelectionRange
	Reason    string
}

func (w *RangeClampWarning) String() string {
	return fmt.Sprintf("requested [%g, %g], applied [%g, %g]: %s",
		w.Requested.Low, w.Requested.High, w.Applied.Low, w.Applied.High, w.Reason)
}

// Subscriber is notified with the applied range after every change
type Subscriber interface {
	RangeChanged(r models.SelectionRange)
}

// SubscriberFunc adapts a plain function to Subscriber
type SubscriberFunc func(r models.SelectionRange)

func (f SubscriberFunc) RangeChanged(r models.SelectionRange) {
	f(r)
}

type subscription struct {
	id  int
	sub Subscriber
}

// Selection is the single owner of the visible range for one loaded dataset.
// Views propose changes through SetLow/SetHigh/SetRange/Shift and observe the
// applied value through Subscribe; nothing else writes the range.
// Selection is not safe for concurrent use.
type Selection struct {
	log     *zap.Logger
	limits  Limits
	current models.SelectionRange

	subs   []subscription
	nextID int

	notifying bool
	dirty     bool
}

// Option is a functional option for configuring the Selection
type Option func(*Selection)

// WithLogger sets the logger used for clamp diagnostics
func WithLogger(log *zap.Logger) Option {
	return func(s *Selection) {
		s.log = log
	}
}

// New creates a Selection over limits starting at initial, clamped into limits
func New(limits Limits, initial models.SelectionRange, opts ...Option) *Selection {
	if limits.Max < limits.Min {
		limits.Max = limits.Min
	}
	s := &Selection{limits: limits}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)

	s.current, _ = s.clampRange(initial)
	return s
}

// Range returns the current range
func (s *Selection) Range() models.SelectionRange {
	return s.current
}

// Limits returns the bounds of the range
func (s *Selection) Limits() Limits {
	return s.limits
}

// SetLow moves the low handle. A value above the high handle lands on it.
func (s *Selection) SetLow(low float64) *RangeClampWarning {
	requested := models.SelectionRange{Low: low, High: s.current.High}
	if math.IsNaN(low) {
		return s.reject(requested, "low is not a number")
	}

	next := s.current
	next.Low = s.limits.clamp(low)
	reason := ""
	if next.Low != low {
		reason = "low outside limits"
	}
	if next.Low > next.High {
		next.Low = next.High
		reason = "low above high"
	}
	return s.apply(requested, next, reason)
}

// SetHigh moves the high handle. A value below the low handle lands on it.
func (s *Selection) SetHigh(high float64) *RangeClampWarning {
	requested := models.SelectionRange{Low: s.current.Low, High: high}
	if math.IsNaN(high) {
		return s.reject(requested, "high is not a number")
	}

	next := s.current
	next.High = s.limits.clamp(high)
	reason := ""
	if next.High != high {
		reason = "high outside limits"
	}
	if next.High < next.Low {
		next.High = next.Low
		reason = "high below low"
	}
	return s.apply(requested, next, reason)
}

// SetRange moves both handles. An inverted request collapses onto low.
func (s *Selection) SetRange(low, high float64) *RangeClampWarning {
	requested := models.SelectionRange{Low: low, High: high}
	if math.IsNaN(low) || math.IsNaN(high) {
		return s.reject(requested, "range is not a number")
	}

	next, reason := s.clampRange(requested)
	return s.apply(requested, next, reason)
}

// Shift pans the range by delta keeping its width, stopping at the limits
func (s *Selection) Shift(delta float64) *RangeClampWarning {
	requested := models.SelectionRange{Low: s.current.Low + delta, High: s.current.High + delta}
	if math.IsNaN(delta) {
		return s.reject(requested, "shift is not a number")
	}

	next := requested
	reason := ""
	if next.Low < s.limits.Min {
		next = models.SelectionRange{Low: s.limits.Min, High: s.limits.Min + s.current.Width()}
		reason = "shift past lower limit"
	}
	if next.High > s.limits.Max {
		next = models.SelectionRange{Low: s.limits.Max - s.current.Width(), High: s.limits.Max}
		reason = "shift past upper limit"
	}
	return s.apply(requested, next, reason)
}

// Reset selects the full limits
func (s *Selection) Reset() {
	s.apply(s.limits.Full(), s.limits.Full(), "")
}

// VisibleBuckets returns the integer column span of the current range
func (s *Selection) VisibleBuckets() (first, last int) {
	return VisibleColumns(s.current)
}

// VisibleColumns returns every column a grid-unit range touches. The high
// handle extends to High+1 on the continuous axis, so a fractional High
// reaches into the next column.
func VisibleColumns(r models.SelectionRange) (first, last int) {
	first = int(math.Floor(r.Low))
	last = int(math.Ceil(r.High))
	if last < first {
		last = first
	}
	return first, last
}

// Subscribe registers sub for change notifications. The returned function
// removes it.
func (s *Selection) Subscribe(sub Subscriber) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, sub: sub})

	return func() {
		for i, existing := range s.subs {
			if existing.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Selection) clampRange(r models.SelectionRange) (models.SelectionRange, string) {
	next := models.SelectionRange{Low: s.limits.clamp(r.Low), High: s.limits.clamp(r.High)}
	reason := ""
	if next != r {
		reason = "range outside limits"
	}
	if next.Low > next.High {
		next.High = next.Low
		reason = "low above high"
	}
	return next, reason
}

func (s *Selection) reject(requested models.SelectionRange, reason string) *RangeClampWarning {
	w := &RangeClampWarning{Requested: requested, Applied: s.current, Reason: reason}
	s.log.Debug("Range update ignored", zap.String("reason", reason))
	return w
}

func (s *Selection) apply(requested, next models.SelectionRange, reason string) *RangeClampWarning {
	var w *RangeClampWarning
	if reason != "" {
		w = &RangeClampWarning{Requested: requested, Applied: next, Reason: reason}
		s.log.Debug("Range update clamped",
			zap.Float64("requested_low", requested.Low),
			zap.Float64("requested_high", requested.High),
			zap.Float64("low", next.Low),
			zap.Float64("high", next.High),
			zap.String("reason", reason))
	}

	if next == s.current {
		return w
	}
	s.current = next
	s.notify()
	return w
}

// notify delivers the current range to every subscriber. Updates made from
// inside a callback are applied immediately but delivered in a further round,
// so every subscriber ends on the same final value.
func (s *Selection) notify() {
	if s.notifying {
		s.dirty = true
		return
	}
	s.notifying = true
	defer func() { s.notifying = false }()

	for round := 0; round < maxNotifyRounds; round++ {
		s.dirty = false
		r := s.current
		subs := append([]subscription(nil), s.subs...)
		for _, sub := range subs {
			sub.sub.RangeChanged(r)
		}
		if !s.dirty {
			return
		}
	}
	s.log.Warn("Range subscribers did not settle", zap.Int("rounds", maxNotifyRounds))
}
