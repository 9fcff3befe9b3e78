package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/pkg/models"
)

// SaveDataset writes d and everything derived from it in one transaction.
// Saving a dataset ID that already exists replaces the earlier rows.
func (db *DB) SaveDataset(ctx context.Context, d *dataset.Dataset) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export transaction: %w", err)
	}
	defer tx.Rollback()

	id := d.ID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear dataset %s: %w", id, err)
	}

	r := d.Selection.Range()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, source, loaded_at, bucket_width_seconds, min_timestamp, max_timestamp, range_low, range_high)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		d.Source,
		d.LoadedAt.Unix(),
		int64(d.BucketWidth/time.Second),
		d.Bounds.Min.UnixNano(),
		d.Bounds.Max.UnixNano(),
		r.Low,
		r.High,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	for _, b := range d.Buckets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO buckets (dataset_id, bucket_index, start_time, end_time)
			VALUES (?, ?, ?, ?)`,
			id, b.Index, b.Start.UnixNano(), b.End.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert bucket %d: %w", b.Index, err)
		}
	}

	for _, g := range d.Groups {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO date_groups (dataset_id, label, date, start_bucket, span)
			VALUES (?, ?, ?, ?, ?)`,
			id, g.Label, g.Date.UnixNano(), g.StartBucket, g.Span); err != nil {
			return fmt.Errorf("failed to insert date group %s: %w", g.Label, err)
		}
	}

	for i, be := range d.Binned {
		eventID, err := insertEvent(ctx, tx, id, i, be.Event)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO binned_events (event_id, dataset_id, bucket_index, fraction, category)
			VALUES (?, ?, ?, ?, ?)`,
			eventID, id, be.BucketIndex, be.Fraction, string(be.Category)); err != nil {
			return fmt.Errorf("failed to insert binned event %s/%s: %w", be.Event.EntityID, be.Event.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}

	db.log.Info("Dataset exported",
		zap.String("dataset_id", id),
		zap.String("path", db.path),
		zap.Int("events", len(d.Binned)),
		zap.Int("buckets", len(d.Buckets)))
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, datasetID string, position int, ev models.Event) (int64, error) {
	_, offset := ev.Timestamp.Zone()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (dataset_id, position, entity_id, name, timestamp, utc_offset)
		VALUES (?, ?, ?, ?, ?, ?)`,
		datasetID, position, ev.EntityID, ev.Name, ev.Timestamp.UnixNano(), offset)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event %s/%s: %w", ev.EntityID, ev.Name, err)
	}

	eventID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	for i, a := range ev.Attributes {
		value, err := json.Marshal(a.Value)
		if err != nil {
			return 0, fmt.Errorf("failed to encode attribute %s: %w", a.Key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_attributes (event_id, position, key, value)
			VALUES (?, ?, ?, ?)`,
			eventID, i, a.Key, string(value)); err != nil {
			return 0, fmt.Errorf("failed to insert attribute %s: %w", a.Key, err)
		}
	}
	return eventID, nil
}

// DeleteDataset removes a dataset and its derived rows
func (db *DB) DeleteDataset(ctx context.Context, id string) (bool, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete dataset %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
