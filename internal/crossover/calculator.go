package crossover

import (
	"fmt"
	"math"
)

// Calculate decorates bars with short and long simple moving averages of the
// close price, a long/flat position flag and the position transition signal.
// The returned rows have the same length and order as bars; bars is not modified.
func Calculate(bars []Bar, w Windows) ([]Row, error) {
	if w.Short <= 0 {
		return nil, fmt.Errorf("short window %d: %w", w.Short, ErrInvalidWindow)
	}
	if w.Long <= 0 {
		return nil, fmt.Errorf("long window %d: %w", w.Long, ErrInvalidWindow)
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	rows := make([]Row, len(bars))
	for i, bar := range bars {
		row := Row{
			Bar:      bar,
			SMAShort: trailingMean(closes, i, w.Short),
			SMALong:  trailingMean(closes, i, w.Long),
		}

		if row.SMAShort.Valid && row.SMALong.Valid && row.SMAShort.Value > row.SMALong.Value {
			row.Position = 1
		}
		if i > 0 {
			row.Signal = row.Position - rows[i-1].Position
		}

		rows[i] = row
	}

	return rows, nil
}

// Bars returns the base bar columns of rows, dropping the derived columns
func Bars(rows []Row) []Bar {
	bars := make([]Bar, len(rows))
	for i, row := range rows {
		bars[i] = row.Bar
	}
	return bars
}

// trailingMean averages values[end-window+1 : end+1]. The mean is undefined
// until the window is full or when any value inside it is NaN.
func trailingMean(values []float64, end, window int) Average {
	start := end - window + 1
	if start < 0 {
		return Average{}
	}

	// Neumaier compensated summation so that equal prices over windows of
	// different length produce identical means.
	var sum, comp float64
	for _, v := range values[start : end+1] {
		if math.IsNaN(v) {
			return Average{}
		}
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			comp += (sum - t) + v
		} else {
			comp += (v - t) + sum
		}
		sum = t
	}

	return Average{Value: (sum + comp) / float64(window), Valid: true}
}
