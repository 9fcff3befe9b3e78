package server

import (
	"time"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/selection"
	"github.com/chris/tgrid/internal/timeline"
	"github.com/chris/tgrid/pkg/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RangeRequest proposes both handles of the visible range
type RangeRequest struct {
	Low  *float64 `json:"low" binding:"required"`
	High *float64 `json:"high" binding:"required"`
	Unit string   `json:"unit" binding:"omitempty,oneof=buckets hours"`
}

// HandleRequest proposes a single handle
type HandleRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// RangeResponse is the applied range in both units
type RangeResponse struct {
	DatasetID   string  `json:"dataset_id"`
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	HoursLow    float64 `json:"hours_low"`
	HoursHigh   float64 `json:"hours_high"`
	FirstBucket int     `json:"first_bucket"`
	LastBucket  int     `json:"last_bucket"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Warning     string  `json:"warning,omitempty"`
}

// BucketResponse is one timeline bucket
type BucketResponse struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// DateGroupResponse is one date header span
type DateGroupResponse struct {
	Label       string `json:"label"`
	StartBucket int    `json:"start_bucket"`
	Span        int    `json:"span"`
}

// BinnedEventResponse is one binned event with its detail text
type BinnedEventResponse struct {
	EntityID   string         `json:"entity_id"`
	Name       string         `json:"name"`
	Timestamp  string         `json:"timestamp"`
	Bucket     int            `json:"bucket"`
	Fraction   float64        `json:"fraction"`
	Category   string         `json:"category,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Detail     string         `json:"detail"`
}

// TimelineResponse is the full render-ready dataset
type TimelineResponse struct {
	DatasetID   string                `json:"dataset_id"`
	Source      string                `json:"source,omitempty"`
	BucketHours float64               `json:"bucket_hours"`
	Entities    []string              `json:"entities"`
	Buckets     []BucketResponse      `json:"buckets"`
	DateGroups  []DateGroupResponse   `json:"date_groups"`
	Events      []BinnedEventResponse `json:"events"`
	Warnings    []string              `json:"warnings,omitempty"`
	Range       RangeResponse         `json:"range"`
}

// LoadResponse reports a successful dataset replacement
type LoadResponse struct {
	DatasetID string   `json:"dataset_id"`
	Entities  int      `json:"entities"`
	Events    int      `json:"events"`
	Buckets   int      `json:"buckets"`
	Warnings  []string `json:"warnings,omitempty"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func newRangeResponse(d *dataset.Dataset, w *selection.RangeClampWarning) RangeResponse {
	r := d.Selection.Range()
	hours := d.HoursRange()
	first, last := d.Selection.VisibleBuckets()
	start, end := d.VisibleTimes()

	resp := RangeResponse{
		DatasetID:   d.ID.String(),
		Low:         r.Low,
		High:        r.High,
		HoursLow:    hours.Low,
		HoursHigh:   hours.High,
		FirstBucket: first,
		LastBucket:  last,
		Start:       formatTime(start),
		End:         formatTime(end),
	}
	if w != nil {
		resp.Warning = w.String()
	}
	return resp
}

func newBinnedEventResponse(be models.BinnedEvent) BinnedEventResponse {
	resp := BinnedEventResponse{
		EntityID:  be.Event.EntityID,
		Name:      be.Event.Name,
		Timestamp: formatTime(be.Event.Timestamp),
		Bucket:    be.BucketIndex,
		Fraction:  be.Fraction,
		Category:  string(be.Category),
		Detail:    timeline.DetailText(be),
	}
	if len(be.Event.Attributes) > 0 {
		resp.Attributes = make(map[string]any, len(be.Event.Attributes))
		for _, a := range be.Event.Attributes {
			resp.Attributes[a.Key] = a.Value
		}
	}
	return resp
}

func newTimelineResponse(d *dataset.Dataset) TimelineResponse {
	resp := TimelineResponse{
		DatasetID:   d.ID.String(),
		Source:      d.Source,
		BucketHours: d.BucketHours(),
		Entities:    d.Entities,
		Buckets:     make([]BucketResponse, 0, len(d.Buckets)),
		DateGroups:  make([]DateGroupResponse, 0, len(d.Groups)),
		Events:      make([]BinnedEventResponse, 0, len(d.Binned)),
		Warnings:    warningStrings(d),
		Range:       newRangeResponse(d, nil),
	}
	for _, b := range d.Buckets {
		resp.Buckets = append(resp.Buckets, BucketResponse{
			Index: b.Index,
			Start: formatTime(b.Start),
			End:   formatTime(b.End),
			Label: timeline.TimeLabel(b.Start),
		})
	}
	for _, g := range d.Groups {
		resp.DateGroups = append(resp.DateGroups, DateGroupResponse{
			Label:       g.Label,
			StartBucket: g.StartBucket,
			Span:        g.Span,
		})
	}
	for _, be := range d.Binned {
		resp.Events = append(resp.Events, newBinnedEventResponse(be))
	}
	return resp
}

func warningStrings(d *dataset.Dataset) []string {
	var out []string
	for _, w := range d.Warnings {
		out = append(out, w.String())
	}
	for _, w := range d.BinWarnings {
		out = append(out, w.String())
	}
	return out
}
