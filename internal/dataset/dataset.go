package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/config"
	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/internal/selection"
	"github.com/chris/tgrid/internal/store"
	"github.com/chris/tgrid/internal/timeline"
	"github.com/chris/tgrid/pkg/models"
)

// Options configures how a raw payload becomes a Dataset
type Options struct {
	BucketWidth  time.Duration
	Classifier   timeline.Classifier
	InitialRange *models.SelectionRange // bucket indices; nil selects everything
	Location     *time.Location         // zone for timestamps without an offset
	Log          *zap.Logger
	Now          func() time.Time
}

// OptionsFromConfig maps a validated Config onto Options
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) Options {
	opts := Options{
		BucketWidth: timeline.WidthFromHours(cfg.BucketWidthHours),
		Log:         log,
	}
	if cfg.Classification == config.ClassificationReference {
		opts.Classifier = timeline.NewReferenceClassifier(cfg.ReferenceEntityID)
	}

	ir := cfg.InitialRange
	if ir.HasLow || ir.HasHigh {
		r := models.SelectionRange{Low: 0, High: math.Inf(1)}
		if ir.HasLow {
			r.Low = ir.Low
		}
		if ir.HasHigh {
			r.High = ir.High
		}
		opts.InitialRange = &r
	}
	return opts
}

func (o Options) withDefaults() Options {
	if o.BucketWidth == 0 {
		o.BucketWidth = timeline.DefaultBucketWidth
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Log = logger.OrNop(o.Log)
	return o
}

// Dataset is everything derived from one successful load. All fields except
// the Selection are read-only once built.
type Dataset struct {
	ID       uuid.UUID
	Source   string
	LoadedAt time.Time

	Entities    []string
	Events      []models.Event
	Bounds      models.Bounds
	BucketWidth time.Duration
	Buckets     []models.Bucket
	Binned      []models.BinnedEvent
	Groups      []models.DateGroup
	Grid        *timeline.Grid

	Warnings    []store.MalformedRecordWarning
	BinWarnings []timeline.BinWarning

	// Selection is the only mutable part, owned here and shared by every view
	Selection *selection.Selection
}

// Build runs the full pipeline: load, generate buckets, bin, classify, group,
// and create the dataset's range selection
func Build(raw []byte, source string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	if err := timeline.ValidateWidth(opts.BucketWidth); err != nil {
		return nil, err
	}

	s := store.New(store.WithLogger(opts.Log), store.WithLocation(opts.Location))
	loaded, err := s.Load(raw)
	if err != nil {
		return nil, err
	}

	buckets, err := timeline.GenerateBuckets(loaded.Bounds, opts.BucketWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to generate buckets: %w", err)
	}

	binned, binWarnings := timeline.Bin(loaded.Events, buckets, opts.Log)
	binned = timeline.Classify(binned, opts.Classifier)

	limits := selection.GridLimits(len(buckets))
	initial := limits.Full()
	if opts.InitialRange != nil {
		initial = *opts.InitialRange
	}

	d := &Dataset{
		ID:          uuid.New(),
		Source:      source,
		LoadedAt:    opts.Now(),
		Entities:    loaded.Entities,
		Events:      loaded.Events,
		Bounds:      loaded.Bounds,
		BucketWidth: opts.BucketWidth,
		Buckets:     buckets,
		Binned:      binned,
		Grid:        timeline.NewGrid(loaded.Entities, buckets, binned),
		Warnings:    loaded.Warnings,
		BinWarnings: binWarnings,
		Selection:   selection.New(limits, initial, selection.WithLogger(opts.Log)),
	}
	d.Groups = d.Grid.Groups

	opts.Log.Info("Dataset loaded",
		zap.String("dataset_id", d.ID.String()),
		zap.String("source", source),
		zap.Int("entities", len(d.Entities)),
		zap.Int("events", len(d.Events)),
		zap.Int("buckets", len(d.Buckets)),
		zap.Int("skipped", len(d.Warnings)))

	return d, nil
}

// BucketHours returns the bucket width in hours
func (d *Dataset) BucketHours() float64 {
	return d.BucketWidth.Hours()
}

// TotalHours returns the length of the continuous axis
func (d *Dataset) TotalHours() float64 {
	return timeline.TotalHours(d.Buckets)
}

// HoursRange returns the current selection on the continuous axis
func (d *Dataset) HoursRange() models.SelectionRange {
	return selection.GridToHours(d.Selection.Range(), d.BucketHours())
}

// SetHoursRange proposes a continuous-axis range, applied to the shared
// selection in bucket units
func (d *Dataset) SetHoursRange(low, high float64) *selection.RangeClampWarning {
	r := selection.HoursToGrid(models.SelectionRange{Low: low, High: high}, d.BucketHours())
	return d.Selection.SetRange(r.Low, r.High)
}

// SetTimeRange proposes a range given as instants, e.g. from date-time entry
func (d *Dataset) SetTimeRange(start, end time.Time) *selection.RangeClampWarning {
	return d.SetHoursRange(timeline.HoursSinceStart(d.Buckets, start), timeline.HoursSinceStart(d.Buckets, end))
}

// VisibleTimes returns the instants covered by the current selection
func (d *Dataset) VisibleTimes() (time.Time, time.Time) {
	first, last := d.Selection.VisibleBuckets()
	return d.Buckets[first].Start, d.Buckets[last].End
}

// VisibleBinned returns the binned events inside the visible columns
func (d *Dataset) VisibleBinned() []models.BinnedEvent {
	first, last := d.Selection.VisibleBuckets()
	var out []models.BinnedEvent
	for _, be := range d.Binned {
		if be.BucketIndex >= first && be.BucketIndex <= last {
			out = append(out, be)
		}
	}
	return out
}

// CategoryCounts tallies binned events per category
func (d *Dataset) CategoryCounts() map[models.Category]int {
	counts := make(map[models.Category]int)
	for _, be := range d.Binned {
		counts[be.Category]++
	}
	return counts
}
