package historical

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/crossover"
)

// dateLayouts are tried in order when parsing the date column
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"20060102 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVFeed serves bars from a local CSV file with a header row. Only the
// close column is required; a symbol column, when present, filters rows.
type CSVFeed struct {
	path   string
	logger *zerolog.Logger
	file   *os.File
}

// NewCSVFeed creates a feed reading path
func NewCSVFeed(path string, logger *zerolog.Logger) *CSVFeed {
	return &CSVFeed{path: path, logger: logger}
}

// Connect opens the file
func (cf *CSVFeed) Connect(ctx context.Context) error {
	file, err := os.Open(cf.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cf.path, err)
	}
	cf.file = file
	return nil
}

// Disconnect closes the file
func (cf *CSVFeed) Disconnect() error {
	if cf.file == nil {
		return nil
	}
	err := cf.file.Close()
	cf.file = nil
	return err
}

// RequestBars parses the file and hands the bars for req.Symbol to r in
// date order. Duration and bar size are not applied to file data.
func (cf *CSVFeed) RequestBars(ctx context.Context, reqID int, req Request, r Receiver) error {
	if cf.file == nil {
		return fmt.Errorf("csv feed is not connected")
	}

	df := dataframe.ReadCSV(cf.file)
	if isEmptyFrame(df.Err) {
		cf.logger.Debug().Str("path", cf.path).Msg("csv has no rows")
		r.End(reqID, time.Time{}, time.Time{})
		return nil
	}
	if df.Err != nil {
		return fmt.Errorf("failed to read %s: %w", cf.path, df.Err)
	}
	for _, name := range df.Names() {
		if lower := strings.ToLower(strings.TrimSpace(name)); lower != name {
			df = df.Rename(lower, name)
		}
	}

	bars, err := barsFromFrame(df, req.Symbol)
	if err != nil {
		return fmt.Errorf("%s: %w", cf.path, err)
	}

	cf.logger.Debug().Str("path", cf.path).Int("rows", df.Nrow()).Int("bars", len(bars)).Msg("parsed csv bars")

	var start, end time.Time
	if len(bars) > 0 {
		start, end = bars[0].Date, bars[len(bars)-1].Date
	}
	for _, bar := range bars {
		r.Bar(reqID, bar)
	}
	r.End(reqID, start, end)
	return nil
}

// isEmptyFrame reports whether err is gota's error for a file without data rows
func isEmptyFrame(err error) bool {
	return err != nil && strings.Contains(err.Error(), "empty DataFrame")
}

// barsFromFrame converts a dataframe with lower-case column names into bars
func barsFromFrame(df dataframe.DataFrame, symbol string) ([]crossover.Bar, error) {
	names := df.Names()
	if !slices.Contains(names, "close") {
		return nil, crossover.ErrMissingClose
	}

	var symbols []string
	if slices.Contains(names, "symbol") {
		symbols = df.Col("symbol").Records()
	}

	dates, err := frameDates(df)
	if err != nil {
		return nil, err
	}

	closes := df.Col("close").Float()
	opens := floatColumn(df, "open")
	highs := floatColumn(df, "high")
	lows := floatColumn(df, "low")
	volumes := floatColumn(df, "volume")

	bars := make([]crossover.Bar, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if symbols != nil && symbol != "" && !strings.EqualFold(symbols[i], symbol) {
			continue
		}
		bars = append(bars, crossover.Bar{
			Date:   dates[i],
			Open:   opens[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: int64(volumes[i]),
		})
	}

	slices.SortStableFunc(bars, func(a, b crossover.Bar) int {
		return a.Date.Compare(b.Date)
	})
	return bars, nil
}

// frameDates reads the date column, falling back to a unix timestamp column
func frameDates(df dataframe.DataFrame) ([]time.Time, error) {
	names := df.Names()
	dates := make([]time.Time, df.Nrow())

	switch {
	case slices.Contains(names, "date"):
		for i, record := range df.Col("date").Records() {
			t, err := parseDate(record)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			dates[i] = t
		}
	case slices.Contains(names, "timestamp"):
		for i, record := range df.Col("timestamp").Records() {
			secs, err := strconv.ParseInt(record, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid timestamp %q: %w", i+1, record, err)
			}
			dates[i] = time.Unix(secs, 0).UTC()
		}
	}
	return dates, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// floatColumn returns the named column as floats, or zeros when absent.
// Missing cells read as zero.
func floatColumn(df dataframe.DataFrame, name string) []float64 {
	values := make([]float64, df.Nrow())
	if !slices.Contains(df.Names(), name) {
		return values
	}
	for i, v := range df.Col(name).Float() {
		if !math.IsNaN(v) {
			values[i] = v
		}
	}
	return values
}
