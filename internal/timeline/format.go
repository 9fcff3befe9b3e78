package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/chris/tgrid/pkg/models"
)

const (
	dateLabelFormat = "%d-%b"
	timeLabelFormat = "%I:%M %p"
	eventTimeFormat = "%d-%b %I:%M %p"
	inputTimeLayout = "2006-01-02 15:04"
)

// DateLabel formats a date header, e.g. "01-Jan"
func DateLabel(t time.Time) string {
	return strftime.Format(dateLabelFormat, t)
}

// TimeLabel formats a bucket start for the time header, e.g. "6:00 AM"
func TimeLabel(t time.Time) string {
	return strings.TrimPrefix(strftime.Format(timeLabelFormat, t), "0")
}

// EventTimeLabel formats an event timestamp for detail text, e.g. "01-Jan 06:00 AM"
func EventTimeLabel(t time.Time) string {
	return strftime.Format(eventTimeFormat, t)
}

// DetailText returns the hover text for a binned event
func DetailText(be models.BinnedEvent) string {
	text := fmt.Sprintf("%s: %s at %s", be.Event.EntityID, be.Event.Name, EventTimeLabel(be.Event.Timestamp))
	for _, a := range be.Event.Attributes {
		text += fmt.Sprintf("\n  %s: %v", a.Key, a.Value)
	}
	return text
}

// InputTimeLayout is the layout used for typed date-time range entry
func InputTimeLayout() string {
	return inputTimeLayout
}

// FormatInputTime formats t for a date-time entry field
func FormatInputTime(t time.Time) string {
	return t.Format(inputTimeLayout)
}

// ParseInputTime parses a typed date-time in loc
func ParseInputTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(inputTimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("want %s: %w", inputTimeLayout, err)
	}
	return t, nil
}

// BucketAt returns the index of the bucket containing t, clamped to the
// bucket range
func BucketAt(buckets []models.Bucket, t time.Time) int {
	if len(buckets) == 0 {
		return 0
	}
	return locateBucket(buckets, t)
}
