package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/auth"
	"github.com/sabarim/crossover/internal/config"
	"github.com/sabarim/crossover/internal/crossover"
)

// BarsClient is the subset of *marketdata.Client used by AlpacaFeed
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFeed fetches historical stock bars from Alpaca market data
type AlpacaFeed struct {
	config *config.Config
	logger *zerolog.Logger
	dial   func(ctx context.Context) (BarsClient, error)

	client BarsClient
}

// NewAlpacaFeed creates an Alpaca feed that authenticates through authManager
func NewAlpacaFeed(cfg *config.Config, authManager *auth.Manager, logger *zerolog.Logger) *AlpacaFeed {
	return &AlpacaFeed{
		config: cfg,
		logger: logger,
		dial: func(ctx context.Context) (BarsClient, error) {
			creds, err := authManager.Credentials(ctx, config.BrokerAlpaca, false)
			if err != nil {
				return nil, err
			}
			return marketdata.NewClient(marketdata.ClientOpts{
				APIKey:    creds.APIKey,
				APISecret: creds.APISecret,
				BaseURL:   cfg.Alpaca.BaseURL,
			}), nil
		},
	}
}

// Connect creates the market data client
func (af *AlpacaFeed) Connect(ctx context.Context) error {
	client, err := af.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Alpaca client: %w", err)
	}
	af.client = client
	af.logger.Info().Str("feed", af.config.Alpaca.Feed).Msg("connected to Alpaca")
	return nil
}

// Disconnect drops the client
func (af *AlpacaFeed) Disconnect() error {
	af.client = nil
	af.logger.Debug().Msg("disconnected from Alpaca")
	return nil
}

// RequestBars fetches the bars for req and hands them to r
func (af *AlpacaFeed) RequestBars(ctx context.Context, reqID int, req Request, r Receiver) error {
	if af.client == nil {
		return fmt.Errorf("alpaca feed is not connected")
	}

	barSize, err := ParseBarSize(req.BarSize)
	if err != nil {
		return err
	}
	timeFrame, err := alpacaTimeFrame(barSize)
	if err != nil {
		return err
	}
	start, end, err := req.Window(time.Now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	af.logger.Info().
		Str("symbol", req.Symbol).
		Str("bar_size", barSize.String()).
		Time("start", start).
		Time("end", end).
		Msg("requesting historical bars")

	bars, err := af.client.GetBars(req.Symbol, marketdata.GetBarsRequest{
		TimeFrame: timeFrame,
		Start:     start,
		End:       end,
		Feed:      parseFeed(af.config.Alpaca.Feed),
	})
	if err != nil {
		return fmt.Errorf("failed to get bars: %w", err)
	}

	for _, bar := range bars {
		r.Bar(reqID, crossover.Bar{
			Date:   bar.Timestamp,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}
	r.End(reqID, start, end)
	return nil
}

// alpacaTimeFrame maps a bar size onto an Alpaca time frame
func alpacaTimeFrame(b BarSize) (marketdata.TimeFrame, error) {
	switch {
	case b.Unit == Minute && b.Count < 60:
		return marketdata.NewTimeFrame(b.Count, marketdata.Min), nil
	case b.Unit == Hour && b.Count < 24:
		return marketdata.NewTimeFrame(b.Count, marketdata.Hour), nil
	case b.Unit == Day && b.Count == 1:
		return marketdata.OneDay, nil
	case b.Unit == Week && b.Count == 1:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case b.Unit == Month && (b.Count == 1 || b.Count == 2 || b.Count == 3 || b.Count == 6 || b.Count == 12):
		return marketdata.NewTimeFrame(b.Count, marketdata.Month), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("bar size %q is not supported by Alpaca", b)
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
