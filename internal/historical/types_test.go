package historical

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestParseDuration(t *testing.T) {
	end := time.Date(2024, time.March, 31, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		in    string
		start time.Time
	}{
		{"1 M", time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)},
		{"30 D", time.Date(2024, time.March, 1, 16, 0, 0, 0, time.UTC)},
		{"2 W", time.Date(2024, time.March, 17, 16, 0, 0, 0, time.UTC)},
		{"1 Y", time.Date(2023, time.March, 31, 16, 0, 0, 0, time.UTC)},
		{"3600 S", time.Date(2024, time.March, 31, 15, 0, 0, 0, time.UTC)},
		{"1 m", time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		span, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
			continue
		}
		if got := span.Start(end); !got.Equal(tt.start) {
			t.Errorf("%q: expected start %v, got %v", tt.in, tt.start, got)
		}
	}

	for _, bad := range []string{"", "1", "M 1", "0 D", "-3 D", "1 Q", "1 M extra"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestParseBarSize(t *testing.T) {
	tests := []struct {
		in   string
		want BarSize
	}{
		{"1 day", BarSize{1, Day}},
		{"1 min", BarSize{1, Minute}},
		{"5 mins", BarSize{5, Minute}},
		{"1 hour", BarSize{1, Hour}},
		{"2 hours", BarSize{2, Hour}},
		{"1 week", BarSize{1, Week}},
		{"1 month", BarSize{1, Month}},
		{"30 secs", BarSize{30, Second}},
		{"1 DAY", BarSize{1, Day}},
	}
	for _, tt := range tests {
		got, err := ParseBarSize(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"day", "1 fortnight", "0 day", "x day"} {
		if _, err := ParseBarSize(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}

	assert.Equal(t, "5 mins", BarSize{5, Minute}.String())
	assert.Equal(t, "1 day", BarSize{1, Day}.String())
	assert.True(t, BarSize{1, Hour}.Intraday())
	assert.False(t, BarSize{1, Day}.Intraday())
}

func TestRequestWindow(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	start, end, err := Request{Duration: "1 M"}.Window(now)
	assert.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), start)

	fixed := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	start, end, err = Request{Duration: "5 D", End: fixed}.Window(now)
	assert.NoError(t, err)
	assert.Equal(t, fixed, end)
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), start)

	_, _, err = Request{Duration: "soon"}.Window(now)
	assert.Error(t, err)
}
