package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/timeline"
)

const payload = `{
	"Flight XYZ": {"Flight Departure": "2024-01-01T06:00:00"},
	"Alice": {
		"Check-in": {"DateTime": "2024-01-01T06:00:00", "Port Origin": "LHR"},
		"Boarding": "2024-01-01T12:00:00"
	},
	"Bob": {"Check-in": "2024-01-02T03:00:00", "Landing": "soon"}
}`

func init() {
	gin.SetMode(gin.TestMode)
}

// MockLoader is a mock implementation of Loader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Current() *dataset.Dataset {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*dataset.Dataset)
}

func (m *MockLoader) Load(raw []byte, source string) (*dataset.Dataset, error) {
	args := m.Called(raw, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataset.Dataset), args.Error(1)
}

func loadedSession(t *testing.T) *dataset.Session {
	t.Helper()
	s := dataset.NewSession(dataset.Options{Classifier: timeline.NewReferenceClassifier("Flight XYZ")})
	_, err := s.Load([]byte(payload), "test")
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_HealthCheck(t *testing.T) {
	mockLoader := new(MockLoader)
	handler := NewHandler(mockLoader, zap.NewNop())

	w := doJSON(t, handler, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode[map[string]string](t, w)
	assert.Equal(t, "ok", response["status"])
	mockLoader.AssertNotCalled(t, "Current")
}

func TestHandler_NoDataset(t *testing.T) {
	mockLoader := new(MockLoader)
	mockLoader.On("Current").Return(nil)
	handler := NewHandler(mockLoader, zap.NewNop())

	for _, path := range []string{"/timeline", "/range"} {
		w := doJSON(t, handler, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "no_dataset", decode[ErrorResponse](t, w).Error)
	}
	mockLoader.AssertExpectations(t)
}

func TestHandler_GetTimeline(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	w := doJSON(t, handler, http.MethodGet, "/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[TimelineResponse](t, w)
	assert.Equal(t, s.Current().ID.String(), response.DatasetID)
	assert.Equal(t, []string{"Flight XYZ", "Alice", "Bob"}, response.Entities)
	assert.Len(t, response.Buckets, 8)
	assert.Equal(t, "6:00 AM", response.Buckets[1].Label)
	require.Len(t, response.DateGroups, 2)
	assert.Equal(t, "01-Jan", response.DateGroups[0].Label)
	assert.Equal(t, 4, response.DateGroups[0].Span)
	assert.Len(t, response.Events, 4)
	assert.Len(t, response.Warnings, 1)
	assert.Equal(t, 6.0, response.BucketHours)

	checkIn := response.Events[1]
	assert.Equal(t, "Alice", checkIn.EntityID)
	assert.Equal(t, "match", checkIn.Category)
	assert.Equal(t, "LHR", checkIn.Attributes["Port Origin"])
	assert.Contains(t, checkIn.Detail, "Alice: Check-in at 01-Jan 06:00 AM")

	assert.Equal(t, 0.0, response.Range.Low)
	assert.Equal(t, 7.0, response.Range.High)
}

func TestHandler_SetRange(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	w := doJSON(t, handler, http.MethodPut, "/range", map[string]any{"low": 2, "high": 5})
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[RangeResponse](t, w)
	assert.Equal(t, 2.0, response.Low)
	assert.Equal(t, 5.0, response.High)
	assert.Equal(t, 12.0, response.HoursLow)
	assert.Equal(t, 36.0, response.HoursHigh)
	assert.Equal(t, 2, response.FirstBucket)
	assert.Equal(t, 5, response.LastBucket)
	assert.Equal(t, "2024-01-01T12:00:00Z", response.Start)
	assert.Equal(t, "2024-01-02T12:00:00Z", response.End)
	assert.Empty(t, response.Warning)

	got := doJSON(t, handler, http.MethodGet, "/range", nil)
	assert.Equal(t, response, decode[RangeResponse](t, got))
}

func TestHandler_SetRange_Hours(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	w := doJSON(t, handler, http.MethodPut, "/range", map[string]any{"low": 6, "high": 18, "unit": "hours"})
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[RangeResponse](t, w)
	assert.Equal(t, 1.0, response.Low)
	assert.Equal(t, 2.0, response.High)
	assert.Equal(t, 6.0, response.HoursLow)
	assert.Equal(t, 18.0, response.HoursHigh)
}

// TestHandler_SetRange_Clamped tests out-of-range requests are clamped and echoed
func TestHandler_SetRange_Clamped(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	w := doJSON(t, handler, http.MethodPut, "/range", map[string]any{"low": -4, "high": 99})
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[RangeResponse](t, w)
	assert.Equal(t, 0.0, response.Low)
	assert.Equal(t, 7.0, response.High)
	assert.Contains(t, response.Warning, "outside limits")
}

func TestHandler_SetHandles(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	w := doJSON(t, handler, http.MethodPut, "/range/low", map[string]any{"value": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode[RangeResponse](t, w).Low)

	w = doJSON(t, handler, http.MethodPut, "/range/high", map[string]any{"value": 1})
	require.Equal(t, http.StatusOK, w.Code)
	response := decode[RangeResponse](t, w)
	assert.Equal(t, 3.0, response.Low)
	assert.Equal(t, 3.0, response.High)
	assert.Contains(t, response.Warning, "high below low")
}

func TestHandler_InvalidRangeRequest(t *testing.T) {
	s := loadedSession(t)
	handler := NewHandler(s, zap.NewNop())

	tests := []struct {
		name string
		path string
		body any
	}{
		{"missing high", "/range", map[string]any{"low": 1}},
		{"unknown unit", "/range", map[string]any{"low": 1, "high": 2, "unit": "days"}},
		{"missing value", "/range/low", map[string]any{}},
		{"wrong type", "/range/high", map[string]any{"value": "six"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, handler, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decode[ErrorResponse](t, w).Error)
		})
	}

	assert.Equal(t, 0.0, s.Current().Selection.Range().Low)
	assert.Equal(t, 7.0, s.Current().Selection.Range().High)
}

func TestHandler_LoadDataset(t *testing.T) {
	s := loadedSession(t)
	previous := s.Current()
	handler := NewHandler(s, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/dataset?source=upload", bytes.NewBufferString(`{"A": {"x": "2024-03-01T10:00:00"}}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	response := decode[LoadResponse](t, w)
	assert.Equal(t, 1, response.Events)
	assert.Equal(t, 4, response.Buckets)
	assert.NotEqual(t, previous.ID.String(), response.DatasetID)
	assert.Equal(t, "upload", s.Current().Source)
}

// TestHandler_LoadDataset_Rejected tests a rejected payload keeps the previous dataset
func TestHandler_LoadDataset_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"A": `, http.StatusBadRequest, "invalid_input"},
		{"no valid timestamps", `{"A": {"x": "later"}}`, http.StatusUnprocessableEntity, "empty_dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedSession(t)
			previous := s.Current()
			handler := NewHandler(s, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/dataset", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Error)
			assert.Same(t, previous, s.Current())
		})
	}
}

func TestHandler_LoadDataset_InternalError(t *testing.T) {
	mockLoader := new(MockLoader)
	mockLoader.On("Load", []byte(`{}`), "").Return(nil, errors.New("disk full"))
	handler := NewHandler(mockLoader, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/dataset", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decode[ErrorResponse](t, w).Error)
	mockLoader.AssertExpectations(t)
}

var _ Loader = (*dataset.Session)(nil)
