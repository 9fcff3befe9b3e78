package selection

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chris/tgrid/pkg/models"
)

// MockSubscriber is a mock implementation of Subscriber
type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) RangeChanged(r models.SelectionRange) {
	m.Called(r)
}

func rng(low, high float64) models.SelectionRange {
	return models.SelectionRange{Low: low, High: high}
}

func newGrid(n int) *Selection {
	limits := GridLimits(n)
	return New(limits, limits.Full())
}

func TestNew_ClampsInitial(t *testing.T) {
	s := New(GridLimits(8), rng(-3, 20))
	assert.Equal(t, rng(0, 7), s.Range())

	s = New(GridLimits(8), rng(5, 2))
	assert.Equal(t, rng(5, 5), s.Range())
}

// TestSetLow_AboveTotalClampsToHigh tests the documented overshoot example
func TestSetLow_AboveTotalClampsToHigh(t *testing.T) {
	s := newGrid(8)

	w := s.SetLow(8)
	require.NotNil(t, w)
	assert.Equal(t, rng(7, 7), s.Range())
	assert.Equal(t, rng(8, 7), w.Requested)
	assert.Equal(t, rng(7, 7), w.Applied)
}

func TestSetLow_AboveHigh(t *testing.T) {
	s := New(GridLimits(8), rng(1, 4))

	w := s.SetLow(6)
	require.NotNil(t, w)
	assert.Equal(t, "low above high", w.Reason)
	assert.Equal(t, rng(4, 4), s.Range())
}

func TestSetHigh_BelowLow(t *testing.T) {
	s := New(GridLimits(8), rng(3, 6))

	w := s.SetHigh(1)
	require.NotNil(t, w)
	assert.Equal(t, "high below low", w.Reason)
	assert.Equal(t, rng(3, 3), s.Range())
}

func TestSetHigh_OutsideLimits(t *testing.T) {
	s := New(GridLimits(8), rng(3, 6))

	w := s.SetHigh(100)
	require.NotNil(t, w)
	assert.Equal(t, rng(3, 7), s.Range())
}

func TestSetRange(t *testing.T) {
	s := newGrid(8)

	assert.Nil(t, s.SetRange(2, 5))
	assert.Equal(t, rng(2, 5), s.Range())

	w := s.SetRange(6, 1)
	require.NotNil(t, w)
	assert.Equal(t, rng(6, 6), s.Range())

	w = s.SetRange(-1, 99)
	require.NotNil(t, w)
	assert.Equal(t, rng(0, 7), s.Range())
}

func TestSetNaNIgnored(t *testing.T) {
	s := New(GridLimits(8), rng(2, 5))

	assert.NotNil(t, s.SetLow(math.NaN()))
	assert.NotNil(t, s.SetHigh(math.NaN()))
	assert.NotNil(t, s.SetRange(1, math.NaN()))
	assert.NotNil(t, s.Shift(math.NaN()))
	assert.Equal(t, rng(2, 5), s.Range())
}

func TestShift(t *testing.T) {
	s := New(GridLimits(8), rng(2, 4))

	assert.Nil(t, s.Shift(1))
	assert.Equal(t, rng(3, 5), s.Range())

	w := s.Shift(10)
	require.NotNil(t, w)
	assert.Equal(t, rng(5, 7), s.Range())

	w = s.Shift(-10)
	require.NotNil(t, w)
	assert.Equal(t, rng(0, 2), s.Range())
}

func TestReset(t *testing.T) {
	s := New(GridLimits(8), rng(2, 4))
	s.Reset()
	assert.Equal(t, rng(0, 7), s.Range())
}

func TestVisibleBuckets(t *testing.T) {
	s := New(GridLimits(8), rng(1.6, 4.2))
	first, last := s.VisibleBuckets()
	assert.Equal(t, 1, first)
	assert.Equal(t, 5, last)

	s.SetRange(2, 3)
	first, last = s.VisibleBuckets()
	assert.Equal(t, 2, first)
	assert.Equal(t, 3, last)
}

// TestVisibleColumns_CoversHoursWindow tests the columns of a converted hours
// range contain both hours edges
func TestVisibleColumns_CoversHoursWindow(t *testing.T) {
	tests := []struct {
		name        string
		hours       models.SelectionRange
		first, last int
	}{
		{"narrower than a column", models.SelectionRange{Low: 1, High: 5}, 0, 1},
		{"straddles a boundary", models.SelectionRange{Low: 3, High: 9}, 0, 1},
		{"column edges", models.SelectionRange{Low: 6, High: 18}, 1, 2},
		{"three columns", models.SelectionRange{Low: 5, High: 13}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := VisibleColumns(HoursToGrid(tt.hours, 6))
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

// TestInvariant_AdversarialSequences tests low <= high after random update sequences
func TestInvariant_AdversarialSequences(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + r.Intn(40)
		s := newGrid(n)
		limits := s.Limits()

		for step := 0; step < 50; step++ {
			v := r.Float64()*float64(n+20) - 10
			switch r.Intn(4) {
			case 0:
				s.SetLow(v)
			case 1:
				s.SetHigh(v)
			case 2:
				s.SetRange(v, r.Float64()*float64(n+20)-10)
			case 3:
				s.Shift(v / 2)
			}

			cur := s.Range()
			require.LessOrEqual(t, cur.Low, cur.High)
			require.GreaterOrEqual(t, cur.Low, limits.Min)
			require.LessOrEqual(t, cur.High, limits.Max)
		}
	}
}

// TestSubscribe_NotifiesOnChange tests every subscriber receives the applied range
func TestSubscribe_NotifiesOnChange(t *testing.T) {
	s := newGrid(8)

	chart := new(MockSubscriber)
	table := new(MockSubscriber)
	chart.On("RangeChanged", rng(0, 3)).Once()
	table.On("RangeChanged", rng(0, 3)).Once()

	s.Subscribe(chart)
	s.Subscribe(table)

	s.SetHigh(3)

	chart.AssertExpectations(t)
	table.AssertExpectations(t)
}

// TestSubscribe_NoOpDoesNotNotify tests that an unchanged range is not published
func TestSubscribe_NoOpDoesNotNotify(t *testing.T) {
	s := newGrid(8)
	sub := new(MockSubscriber)
	s.Subscribe(sub)

	s.SetRange(0, 7)
	s.SetLow(-5)

	sub.AssertNotCalled(t, "RangeChanged", mock.Anything)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := newGrid(8)

	calls := 0
	unsubscribe := s.Subscribe(SubscriberFunc(func(models.SelectionRange) { calls++ }))
	s.SetLow(1)
	unsubscribe()
	s.SetLow(2)
	unsubscribe()

	assert.Equal(t, 1, calls)
}

// TestSubscribe_ReentrantUpdateConverges tests a subscriber proposing a change from
// inside its callback: all subscribers end on the same final value
func TestSubscribe_ReentrantUpdateConverges(t *testing.T) {
	s := newGrid(24)

	var slider, field []models.SelectionRange

	// Slider snaps to whole columns
	s.Subscribe(SubscriberFunc(func(r models.SelectionRange) {
		slider = append(slider, r)
		s.SetRange(math.Round(r.Low), math.Round(r.High))
	}))
	s.Subscribe(SubscriberFunc(func(r models.SelectionRange) {
		field = append(field, r)
	}))

	s.SetRange(2.4, 9.6)

	assert.Equal(t, rng(2, 10), s.Range())
	require.NotEmpty(t, slider)
	require.NotEmpty(t, field)
	assert.Equal(t, s.Range(), slider[len(slider)-1])
	assert.Equal(t, s.Range(), field[len(field)-1])
}

// TestSubscribe_NonSettlingStops tests a subscriber that never settles cannot loop forever
func TestSubscribe_NonSettlingStops(t *testing.T) {
	s := newGrid(1000)
	calls := 0
	s.Subscribe(SubscriberFunc(func(r models.SelectionRange) {
		calls++
		s.SetLow(r.Low + 1)
	}))

	s.SetLow(1)
	assert.Equal(t, maxNotifyRounds, calls)
}

func TestHoursLimits(t *testing.T) {
	s := New(HoursLimits(48), rng(6, 18))
	assert.Equal(t, rng(6, 18), s.Range())

	s.SetHigh(60)
	assert.Equal(t, rng(6, 48), s.Range())
}

func TestGridLimits_Empty(t *testing.T) {
	assert.Equal(t, Limits{Min: 0, Max: 0}, GridLimits(0))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, rng(0, 48), GridToHours(rng(0, 7), 6))
	assert.Equal(t, rng(12, 24), GridToHours(rng(2, 3), 6))

	assert.Equal(t, rng(0, 7), HoursToGrid(rng(0, 48), 6))
	assert.Equal(t, rng(2, 3), HoursToGrid(rng(12, 24), 6))
	assert.Equal(t, rng(1, 1), HoursToGrid(rng(6, 6), 6))
	assert.Equal(t, models.SelectionRange{}, HoursToGrid(rng(6, 12), 0))
}

func TestRangeClampWarning_String(t *testing.T) {
	s := newGrid(8)
	w := s.SetLow(9)
	require.NotNil(t, w)
	assert.Contains(t, w.String(), "requested [9, 7]")
}
