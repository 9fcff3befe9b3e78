package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chris/tgrid/pkg/models"
)

// DatasetSummary is one row of the datasets table
type DatasetSummary struct {
	ID          string
	Source      string
	LoadedAt    time.Time
	BucketWidth time.Duration
	Range       models.SelectionRange
}

// RowCounts holds per-table row counts for one dataset
type RowCounts struct {
	Events     int
	Attributes int
	Buckets    int
	Binned     int
	DateGroups int
}

// ErrDatasetNotFound is returned when a dataset ID has no rows
var ErrDatasetNotFound = errors.New("dataset not found")

// ListDatasets returns every exported dataset, newest first
func (db *DB) ListDatasets(ctx context.Context) ([]DatasetSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, source, loaded_at, bucket_width_seconds, range_low, range_high
		FROM datasets
		ORDER BY loaded_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var out []DatasetSummary
	for rows.Next() {
		var s DatasetSummary
		var loadedAt, widthSeconds int64
		if err := rows.Scan(&s.ID, &s.Source, &loadedAt, &widthSeconds, &s.Range.Low, &s.Range.High); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		s.LoadedAt = time.Unix(loadedAt, 0)
		s.BucketWidth = time.Duration(widthSeconds) * time.Second
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountRows returns how many rows each table holds for dataset id
func (db *DB) CountRows(ctx context.Context, id string) (RowCounts, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM datasets WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return RowCounts{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err != nil {
		return RowCounts{}, fmt.Errorf("failed to look up dataset: %w", err)
	}

	var c RowCounts
	err = db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events WHERE dataset_id = ?1),
			(SELECT COUNT(*) FROM event_attributes a JOIN events e ON e.id = a.event_id WHERE e.dataset_id = ?1),
			(SELECT COUNT(*) FROM buckets WHERE dataset_id = ?1),
			(SELECT COUNT(*) FROM binned_events WHERE dataset_id = ?1),
			(SELECT COUNT(*) FROM date_groups WHERE dataset_id = ?1)`, id).
		Scan(&c.Events, &c.Attributes, &c.Buckets, &c.Binned, &c.DateGroups)
	if err != nil {
		return RowCounts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

// BinnedEventsInRange reads back the binned events of dataset id whose bucket
// lies in [first, last], in their original order
func (db *DB) BinnedEventsInRange(ctx context.Context, id string, first, last int) ([]models.BinnedEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT e.id, e.entity_id, e.name, e.timestamp, e.utc_offset, b.bucket_index, b.fraction, b.category
		FROM binned_events b
		JOIN events e ON e.id = b.event_id
		WHERE b.dataset_id = ? AND b.bucket_index BETWEEN ? AND ?
		ORDER BY e.position`, id, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to query binned events: %w", err)
	}

	var out []models.BinnedEvent
	var eventIDs []int64
	for rows.Next() {
		var be models.BinnedEvent
		var eventID, ns int64
		var offset int
		var category string
		if err := rows.Scan(&eventID, &be.Event.EntityID, &be.Event.Name, &ns, &offset, &be.BucketIndex, &be.Fraction, &category); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan binned event: %w", err)
		}
		be.Event.Timestamp = time.Unix(0, ns).In(zoneForOffset(offset))
		be.Category = models.Category(category)
		out = append(out, be)
		eventIDs = append(eventIDs, eventID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, eventID := range eventIDs {
		attrs, err := db.attributes(ctx, eventID)
		if err != nil {
			return nil, err
		}
		out[i].Event.Attributes = attrs
	}
	return out, nil
}

func (db *DB) attributes(ctx context.Context, eventID int64) ([]models.Attribute, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT key, value FROM event_attributes
		WHERE event_id = ?
		ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	var out []models.Attribute
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to decode attribute %s: %w", key, err)
		}
		out = append(out, models.Attribute{Key: key, Value: value})
	}
	return out, rows.Err()
}

func zoneForOffset(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}
