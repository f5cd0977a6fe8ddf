package crossover

import (
	"errors"
	"time"
)

var (
	// ErrInvalidWindow is returned when a moving average window is not positive.
	ErrInvalidWindow = errors.New("window must be positive")

	// ErrMissingClose is returned when a bar source carries no close prices.
	ErrMissingClose = errors.New("series has no close column")
)

// Bar represents a single historical price observation
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Average is a moving average value that is only defined once its window is full
type Average struct {
	Value float64
	Valid bool
}

// Row is a bar decorated with the crossover columns
type Row struct {
	Bar
	SMAShort Average
	SMALong  Average
	// Position is 1 while the short average is above the long average, else 0.
	Position int
	// Signal is the change in position from the previous row: -1, 0 or +1.
	Signal int
}

// Windows holds the short and long moving average lengths
type Windows struct {
	Short int
	Long  int
}

// DefaultWindows are the window lengths used when none are configured
var DefaultWindows = Windows{Short: 10, Long: 20}
