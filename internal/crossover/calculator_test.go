package crossover

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func barsFromCloses(closes ...float64) []Bar {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return bars
}

func positions(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Position
	}
	return out
}

func signals(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Signal
	}
	return out
}

func TestCalculateRejectsInvalidWindows(t *testing.T) {
	bars := barsFromCloses(1, 2, 3)

	tests := []struct {
		name    string
		windows Windows
	}{
		{"zero short", Windows{Short: 0, Long: 3}},
		{"negative short", Windows{Short: -2, Long: 3}},
		{"zero long", Windows{Short: 2, Long: 0}},
		{"negative long", Windows{Short: 2, Long: -1}},
	}
	for _, tt := range tests {
		_, err := Calculate(bars, tt.windows)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("%s: expected ErrInvalidWindow, got %v", tt.name, err)
		}
	}
}

func TestCalculateIncreasingSeries(t *testing.T) {
	rows, err := Calculate(barsFromCloses(1, 2, 3, 4, 5), Windows{Short: 2, Long: 3})
	assert.NoError(t, err)
	assert.Equal(t, 5, len(rows))

	wantShort := []Average{{}, {1.5, true}, {2.5, true}, {3.5, true}, {4.5, true}}
	wantLong := []Average{{}, {}, {2, true}, {3, true}, {4, true}}
	for i, row := range rows {
		assert.Equal(t, wantShort[i], row.SMAShort)
		assert.Equal(t, wantLong[i], row.SMALong)
	}

	if diff := cmp.Diff([]int{0, 0, 1, 1, 1}, positions(rows)); diff != "" {
		t.Fatalf("unexpected positions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 0, 1, 0, 0}, signals(rows)); diff != "" {
		t.Fatalf("unexpected signals (-want +got):\n%s", diff)
	}
}

func TestCalculateShortSeriesIsFlat(t *testing.T) {
	rows, err := Calculate(barsFromCloses(5, 4, 6, 8, 9), DefaultWindows)
	assert.NoError(t, err)

	for i, row := range rows {
		assert.False(t, row.SMALong.Valid)
		assert.Equal(t, 0, row.Position)
		assert.Equal(t, 0, row.Signal)
		if i < DefaultWindows.Short-1 {
			assert.False(t, row.SMAShort.Valid)
		}
	}
}

func TestCalculateEmptySeries(t *testing.T) {
	rows, err := Calculate(nil, DefaultWindows)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(rows))
}

func TestCalculateConstantSeriesTies(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 187.25
	}

	rows, err := Calculate(barsFromCloses(closes...), DefaultWindows)
	assert.NoError(t, err)

	for i, row := range rows {
		if row.SMAShort.Valid && row.SMALong.Valid {
			assert.Equal(t, row.SMAShort.Value, row.SMALong.Value)
			assert.Equal(t, 187.25, row.SMALong.Value)
		}
		assert.Equal(t, 0, row.Position)
		if row.Signal != 0 {
			t.Fatalf("row %d: expected no signal, got %d", i, row.Signal)
		}
	}
}

func TestCalculateCrossDownAndUp(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 12, 10, 8, 7, 9, 12, 15}
	rows, err := Calculate(barsFromCloses(closes...), Windows{Short: 2, Long: 4})
	assert.NoError(t, err)

	// long average becomes defined at index 3
	if diff := cmp.Diff([]int{0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1}, positions(rows)); diff != "" {
		t.Fatalf("unexpected positions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 0, 0, 1, 0, -1, 0, 0, 0, 1, 0}, signals(rows)); diff != "" {
		t.Fatalf("unexpected signals (-want +got):\n%s", diff)
	}
}

func TestCalculateEqualWindowsCompareMeans(t *testing.T) {
	closes := []float64{3, 9, 1, 7, 2, 8, 4}
	rows, err := Calculate(barsFromCloses(closes...), Windows{Short: 3, Long: 3})
	assert.NoError(t, err)

	for _, row := range rows {
		assert.Equal(t, row.SMAShort, row.SMALong)
		assert.Equal(t, 0, row.Position)
		assert.Equal(t, 0, row.Signal)
	}
}

func TestCalculateShortWindowLongerThanLong(t *testing.T) {
	// Windows are compared as given; a "short" window longer than the
	// "long" one simply inverts the crossover.
	rows, err := Calculate(barsFromCloses(1, 2, 3, 4, 5), Windows{Short: 3, Long: 2})
	assert.NoError(t, err)
	if diff := cmp.Diff([]int{0, 0, 0, 0, 0}, positions(rows)); diff != "" {
		t.Fatalf("unexpected positions (-want +got):\n%s", diff)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	closes := []float64{20, 21, 19, 18, 22, 25, 24, 23, 26, 27, 25, 22, 21, 20, 24}
	windows := Windows{Short: 3, Long: 5}

	first, err := Calculate(barsFromCloses(closes...), windows)
	assert.NoError(t, err)

	second, err := Calculate(Bars(first), windows)
	assert.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("rerun changed derived columns (-first +second):\n%s", diff)
	}
}

func TestCalculateDoesNotModifyInput(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4)
	snapshot := append([]Bar(nil), bars...)

	_, err := Calculate(bars, Windows{Short: 1, Long: 2})
	assert.NoError(t, err)

	if diff := cmp.Diff(snapshot, bars); diff != "" {
		t.Fatalf("input bars modified (-before +after):\n%s", diff)
	}
}

func TestCalculateNaNCloseLeavesWindowUndefined(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6)
	bars[2].Close = math.NaN()

	rows, err := Calculate(bars, Windows{Short: 2, Long: 3})
	assert.NoError(t, err)

	// windows covering index 2 stay undefined
	assert.True(t, rows[1].SMAShort.Valid)
	assert.False(t, rows[2].SMAShort.Valid)
	assert.False(t, rows[3].SMAShort.Valid)
	assert.True(t, rows[4].SMAShort.Valid)
	assert.False(t, rows[4].SMALong.Valid)
	assert.True(t, rows[5].SMALong.Valid)
	assert.Equal(t, 5.0, rows[5].SMALong.Value)
}
