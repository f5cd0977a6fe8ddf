package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/sabarim/crossover/internal/crossover"
	"github.com/shopspring/decimal"
)

// Column names of the decorated series
const (
	ColDate     = "date"
	ColOpen     = "open"
	ColHigh     = "high"
	ColLow      = "low"
	ColClose    = "close"
	ColVolume   = "volume"
	ColSMAShort = "sma_short"
	ColSMALong  = "sma_long"
	ColPosition = "position"
	ColSignal   = "signal"
)

// pricePlaces is the rounding applied to prices and averages in reports
const pricePlaces = 4

// Frame builds a dataframe of the decorated series. Undefined averages are NaN.
func Frame(rows []crossover.Row) dataframe.DataFrame {
	n := len(rows)
	dates := make([]string, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]int, n)
	shorts := make([]float64, n)
	longs := make([]float64, n)
	positions := make([]int, n)
	signals := make([]int, n)

	for i, row := range rows {
		dates[i] = formatDate(row)
		opens[i] = round(row.Open)
		highs[i] = round(row.High)
		lows[i] = round(row.Low)
		closes[i] = round(row.Close)
		volumes[i] = int(row.Volume)
		shorts[i] = average(row.SMAShort)
		longs[i] = average(row.SMALong)
		positions[i] = row.Position
		signals[i] = row.Signal
	}

	return dataframe.New(
		series.New(dates, series.String, ColDate),
		series.New(opens, series.Float, ColOpen),
		series.New(highs, series.Float, ColHigh),
		series.New(lows, series.Float, ColLow),
		series.New(closes, series.Float, ColClose),
		series.New(volumes, series.Int, ColVolume),
		series.New(shorts, series.Float, ColSMAShort),
		series.New(longs, series.Float, ColSMALong),
		series.New(positions, series.Int, ColPosition),
		series.New(signals, series.Int, ColSignal),
	)
}

// Tail returns the last n rows of df
func Tail(df dataframe.DataFrame, n int) dataframe.DataFrame {
	total := df.Nrow()
	if n >= total {
		return df
	}
	indexes := make([]int, 0, n)
	for i := total - n; i < total; i++ {
		indexes = append(indexes, i)
	}
	return df.Subset(indexes)
}

// PrintTail writes the last n rows of the decorated series to w as an
// aligned table, each row prefixed with its position in the series.
func PrintTail(w io.Writer, rows []crossover.Row, n int) error {
	tail := Tail(Frame(rows), n)
	first := len(rows) - tail.Nrow()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, record := range tail.Records() {
		index := ""
		if i > 0 {
			index = strconv.Itoa(first + i - 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", index, strings.Join(record, "\t"))
	}
	return tw.Flush()
}

// PrintSummary writes a short run summary to w
func PrintSummary(w io.Writer, symbol string, s crossover.Summary) error {
	state := "flat"
	if s.Position == 1 {
		state = "long"
	}
	_, err := fmt.Fprintf(w,
		"%s: %d bars, %d entries, %d exits, %s as of %s\nmarket return %s%%, strategy return %s%%\n",
		symbol, s.Bars, s.Entries, s.Exits, state, s.LastDate.Format("2006-01-02"),
		percent(s.MarketReturn), percent(s.StrategyReturn),
	)
	return err
}

func formatDate(row crossover.Row) string {
	if row.Date.IsZero() {
		return ""
	}
	if row.Date.Hour() == 0 && row.Date.Minute() == 0 && row.Date.Second() == 0 {
		return row.Date.Format("2006-01-02")
	}
	return row.Date.Format("2006-01-02 15:04:05")
}

func average(a crossover.Average) float64 {
	if !a.Valid {
		return math.NaN()
	}
	return round(a.Value)
}

func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(pricePlaces).Float64()
	return f
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(2)
}
