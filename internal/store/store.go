package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/pkg/models"
)

// rawRecord is the shape of one event value after decoding but before
// normalisation into models.Event
type rawRecord interface {
	instant() time.Time
}

// TimestampOnly is a record given as a bare ISO-8601 string
type TimestampOnly struct {
	At time.Time
}

func (r TimestampOnly) instant() time.Time { return r.At }

// TimestampWithAttributes is a record given as an object with a DateTime key
type TimestampWithAttributes struct {
	At         time.Time
	Attributes []models.Attribute
}

func (r TimestampWithAttributes) instant() time.Time { return r.At }

// Result is a successfully loaded dataset
type Result struct {
	Events   []models.Event
	Entities []string // input order
	Bounds   models.Bounds
	Warnings []MalformedRecordWarning
}

// Store parses raw event payloads into canonical events
type Store struct {
	log      *zap.Logger
	loc      *time.Location
	warnings []MalformedRecordWarning
}

// Option is a functional option for configuring the Store
type Option func(*Store)

// WithLogger sets the logger used for skip warnings
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithLocation sets the zone used for timestamps that carry no offset
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

// New creates a new Store
func New(opts ...Option) *Store {
	s := &Store{
		loc: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

// Warnings returns the records skipped by the most recent load
func (s *Store) Warnings() []MalformedRecordWarning {
	return s.warnings
}

// LoadFile loads events from a JSON file
func (s *Store) LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.Load(data)
}

// LoadReader loads events from r
func (s *Store) LoadReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return s.Load(data)
}

type entityEvents struct {
	events []models.Event
	byName map[string]int
}

// Load parses a payload of the form {entity: {event: timestamp | {"DateTime": ..., ...}}}.
// Malformed records are skipped and recorded; the load fails only when the
// payload itself is unusable or no timestamp parses.
func (s *Store) Load(raw []byte) (*Result, error) {
	s.warnings = nil

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		return nil, &InvalidInputError{Err: fmt.Errorf("top level must be an object: %w", err)}
	}

	var order []string
	entities := make(map[string]*entityEvents)

	for dec.More() {
		entityID, err := readKey(dec)
		if err != nil {
			return nil, &InvalidInputError{Err: err}
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, &InvalidInputError{Err: fmt.Errorf("entity %q: %w", entityID, err)}
		}

		if _, seen := entities[entityID]; seen {
			s.warn(MalformedRecordWarning{EntityID: entityID, Reason: "duplicate entity, earlier events replaced"})
		} else {
			order = append(order, entityID)
		}
		entities[entityID] = s.decodeEntity(entityID, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &InvalidInputError{Err: errors.New("unexpected data after top-level object")}
	}

	result := &Result{Entities: order}
	for _, id := range order {
		result.Events = append(result.Events, entities[id].events...)
	}
	result.Warnings = s.warnings

	if len(result.Events) == 0 {
		return nil, &EmptyDatasetError{Skipped: len(s.warnings)}
	}
	result.Bounds = computeBounds(result.Events)

	s.log.Debug("Loaded events",
		zap.Int("events", len(result.Events)),
		zap.Int("entities", len(order)),
		zap.Int("skipped", len(s.warnings)),
		zap.Time("min", result.Bounds.Min),
		zap.Time("max", result.Bounds.Max))

	return result, nil
}

func (s *Store) decodeEntity(entityID string, value json.RawMessage) *entityEvents {
	ee := &entityEvents{byName: make(map[string]int)}

	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		s.warn(MalformedRecordWarning{EntityID: entityID, Reason: "entity value is not an object", Raw: string(value)})
		return ee
	}

	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			// Already validated as JSON by the outer decoder
			break
		}
		var rawEvent json.RawMessage
		if err := dec.Decode(&rawEvent); err != nil {
			break
		}

		rec, reason := s.decodeRecord(rawEvent)
		if rec == nil {
			s.warn(MalformedRecordWarning{EntityID: entityID, EventName: name, Reason: reason, Raw: string(rawEvent)})
			continue
		}

		ev := normalize(entityID, name, rec)
		if i, dup := ee.byName[name]; dup {
			ee.events[i] = ev
			continue
		}
		ee.byName[name] = len(ee.events)
		ee.events = append(ee.events, ev)
	}
	return ee
}

// decodeRecord classifies a raw event value. A nil record comes with the
// reason it was rejected.
func (s *Store) decodeRecord(raw json.RawMessage) (rawRecord, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, "empty value"
	}

	switch trimmed[0] {
	case '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return nil, err.Error()
		}
		ts, err := ParseTimestamp(str, s.loc)
		if err != nil {
			return nil, err.Error()
		}
		return TimestampOnly{At: ts}, ""

	case '{':
		attrs, dateTime, err := decodeAttributes(trimmed)
		if err != nil {
			return nil, err.Error()
		}
		str, ok := dateTime.(string)
		if dateTime == nil {
			return nil, "missing " + DateTimeKey
		}
		if !ok {
			return nil, DateTimeKey + " is not a string"
		}
		ts, err := ParseTimestamp(str, s.loc)
		if err != nil {
			return nil, err.Error()
		}
		return TimestampWithAttributes{At: ts, Attributes: attrs}, ""
	}

	return nil, "value is neither a timestamp string nor an object"
}

// decodeAttributes returns the object's keys in order, except DateTime which is
// returned separately
func decodeAttributes(raw []byte) ([]models.Attribute, any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var attrs []models.Attribute
	var dateTime any
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, nil, err
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if key == DateTimeKey {
			dateTime = value
			continue
		}
		attrs = append(attrs, models.Attribute{Key: key, Value: value})
	}
	return attrs, dateTime, nil
}

func normalize(entityID, name string, rec rawRecord) models.Event {
	ev := models.Event{
		EntityID:  entityID,
		Name:      name,
		Timestamp: rec.instant(),
	}
	if withAttrs, ok := rec.(TimestampWithAttributes); ok {
		ev.Attributes = withAttrs.Attributes
	}
	return ev
}

func computeBounds(events []models.Event) models.Bounds {
	b := models.Bounds{Min: events[0].Timestamp, Max: events[0].Timestamp}
	for _, ev := range events[1:] {
		if ev.Timestamp.Before(b.Min) {
			b.Min = ev.Timestamp
		}
		if ev.Timestamp.After(b.Max) {
			b.Max = ev.Timestamp
		}
	}
	return b
}

func (s *Store) warn(w MalformedRecordWarning) {
	s.warnings = append(s.warnings, w)
	s.log.Warn("Skipping malformed record",
		zap.String("entity", w.EntityID),
		zap.String("event", w.EventName),
		zap.String("reason", w.Reason))
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}
