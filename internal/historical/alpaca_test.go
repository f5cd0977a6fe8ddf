package historical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/config"
)

type fakeBars struct {
	symbol string
	req    marketdata.GetBarsRequest
	bars   []marketdata.Bar
	err    error
}

func (f *fakeBars) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol = symbol
	f.req = req
	return f.bars, f.err
}

func newTestAlpacaFeed(client BarsClient) *AlpacaFeed {
	logger := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Alpaca.Feed = "sip"
	return &AlpacaFeed{
		config: cfg,
		logger: &logger,
		dial: func(ctx context.Context) (BarsClient, error) {
			return client, nil
		},
	}
}

func TestAlpacaFeedRequestBars(t *testing.T) {
	day := time.Date(2024, time.May, 1, 4, 0, 0, 0, time.UTC)
	client := &fakeBars{bars: []marketdata.Bar{
		{Timestamp: day, Open: 169.5, High: 172.7, Low: 169.1, Close: 169.3, Volume: 50383147},
		{Timestamp: day.AddDate(0, 0, 1), Open: 172.5, High: 173.4, Low: 170.9, Close: 173.0, Volume: 94214915},
	}}
	feed := newTestAlpacaFeed(client)
	assert.NoError(t, feed.Connect(context.Background()))

	end := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	rec := &recorder{}
	err := feed.RequestBars(context.Background(), 1, Request{Symbol: "AAPL", Duration: "1 M", BarSize: "1 day", End: end}, rec)
	assert.NoError(t, err)

	assert.Equal(t, "AAPL", client.symbol)
	assert.Equal(t, marketdata.OneDay, client.req.TimeFrame)
	assert.Equal(t, end, client.req.End)
	assert.Equal(t, end.AddDate(0, -1, 0), client.req.Start)
	assert.Equal(t, marketdata.SIP, client.req.Feed)

	assert.Equal(t, 2, len(rec.bars))
	assert.Equal(t, 173.0, rec.bars[1].Close)
	assert.Equal(t, int64(94214915), rec.bars[1].Volume)
	assert.Equal(t, 1, rec.ended)
}

func TestAlpacaFeedErrors(t *testing.T) {
	client := &fakeBars{err: errors.New("forbidden")}
	feed := newTestAlpacaFeed(client)

	// Ensure requesting before connecting fails.
	err := feed.RequestBars(context.Background(), 1, Request{Symbol: "AAPL", Duration: "1 M", BarSize: "1 day"}, &recorder{})
	assert.Error(t, err)

	assert.NoError(t, feed.Connect(context.Background()))

	rec := &recorder{}
	err = feed.RequestBars(context.Background(), 1, Request{Symbol: "AAPL", Duration: "1 M", BarSize: "1 day"}, rec)
	assert.Error(t, err)
	assert.Equal(t, 0, rec.ended)

	err = feed.RequestBars(context.Background(), 1, Request{Symbol: "AAPL", Duration: "1 M", BarSize: "30 secs"}, rec)
	assert.Error(t, err)
}

func TestAlpacaTimeFrame(t *testing.T) {
	tests := []struct {
		size BarSize
		want marketdata.TimeFrame
	}{
		{BarSize{1, Minute}, marketdata.NewTimeFrame(1, marketdata.Min)},
		{BarSize{15, Minute}, marketdata.NewTimeFrame(15, marketdata.Min)},
		{BarSize{4, Hour}, marketdata.NewTimeFrame(4, marketdata.Hour)},
		{BarSize{1, Day}, marketdata.OneDay},
		{BarSize{1, Week}, marketdata.NewTimeFrame(1, marketdata.Week)},
		{BarSize{3, Month}, marketdata.NewTimeFrame(3, marketdata.Month)},
	}
	for _, tt := range tests {
		got, err := alpacaTimeFrame(tt.size)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []BarSize{{1, Second}, {90, Minute}, {2, Day}, {5, Month}} {
		if _, err := alpacaTimeFrame(bad); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}
