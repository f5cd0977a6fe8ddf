package historical

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Request describes the historical bars to fetch for one instrument
type Request struct {
	Symbol string
	// Duration is how far back from End to fetch, e.g. "1 M" or "30 D".
	Duration string
	// BarSize is the bar interval, e.g. "1 day" or "5 mins".
	BarSize string
	// End is the end of the window; the zero value means now.
	End time.Time
}

// Window returns the start and end of the request window
func (r Request) Window(now time.Time) (time.Time, time.Time, error) {
	span, err := ParseDuration(r.Duration)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := r.End
	if end.IsZero() {
		end = now
	}
	return span.Start(end), end, nil
}

// SpanUnit is the unit of a request duration
type SpanUnit string

const (
	Seconds SpanUnit = "S"
	Days    SpanUnit = "D"
	Weeks   SpanUnit = "W"
	Months  SpanUnit = "M"
	Years   SpanUnit = "Y"
)

// Span is a parsed request duration such as "1 M"
type Span struct {
	Count int
	Unit  SpanUnit
}

// ParseDuration parses a "<count> <unit>" duration where unit is one of
// S, D, W, M or Y.
func ParseDuration(s string) (Span, error) {
	count, unit, err := splitCountUnit(s)
	if err != nil {
		return Span{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch u := SpanUnit(strings.ToUpper(unit)); u {
	case Seconds, Days, Weeks, Months, Years:
		return Span{Count: count, Unit: u}, nil
	default:
		return Span{}, fmt.Errorf("invalid duration %q: unknown unit %q", s, unit)
	}
}

// Start returns the beginning of the span ending at end
func (s Span) Start(end time.Time) time.Time {
	switch s.Unit {
	case Seconds:
		return end.Add(-time.Duration(s.Count) * time.Second)
	case Days:
		return end.AddDate(0, 0, -s.Count)
	case Weeks:
		return end.AddDate(0, 0, -7*s.Count)
	case Months:
		return end.AddDate(0, -s.Count, 0)
	case Years:
		return end.AddDate(-s.Count, 0, 0)
	}
	return end
}

func (s Span) String() string {
	return fmt.Sprintf("%d %s", s.Count, s.Unit)
}

// BarUnit is the unit of a bar size
type BarUnit string

const (
	Second BarUnit = "sec"
	Minute BarUnit = "min"
	Hour   BarUnit = "hour"
	Day    BarUnit = "day"
	Week   BarUnit = "week"
	Month  BarUnit = "month"
)

// BarSize is a parsed bar interval such as "1 day"
type BarSize struct {
	Count int
	Unit  BarUnit
}

// ParseBarSize parses a "<count> <unit>" bar size. Units may be plural:
// "1 min", "5 mins", "1 hour", "1 day", "1 week", "1 month".
func ParseBarSize(s string) (BarSize, error) {
	count, unit, err := splitCountUnit(s)
	if err != nil {
		return BarSize{}, fmt.Errorf("invalid bar size %q: %w", s, err)
	}

	unit = strings.TrimSuffix(strings.ToLower(unit), "s")
	switch u := BarUnit(unit); u {
	case Second, Minute, Hour, Day, Week, Month:
		return BarSize{Count: count, Unit: u}, nil
	default:
		return BarSize{}, fmt.Errorf("invalid bar size %q: unknown unit %q", s, unit)
	}
}

// Intraday reports whether bars are shorter than a day
func (b BarSize) Intraday() bool {
	return b.Unit == Second || b.Unit == Minute || b.Unit == Hour
}

func (b BarSize) String() string {
	if b.Count == 1 {
		return fmt.Sprintf("1 %s", b.Unit)
	}
	return fmt.Sprintf("%d %ss", b.Count, b.Unit)
}

func splitCountUnit(s string) (int, string, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("expected \"<count> <unit>\"")
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("count: %w", err)
	}
	if count <= 0 {
		return 0, "", fmt.Errorf("count must be positive")
	}
	return count, fields[1], nil
}
