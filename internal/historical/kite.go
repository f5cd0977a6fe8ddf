package historical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/auth"
	"github.com/sabarim/crossover/internal/config"
	"github.com/sabarim/crossover/internal/crossover"
	"github.com/sabarim/crossover/internal/instruments"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Kite rejects minute requests longer than this
const kiteMinuteLimit = 60 * 24 * time.Hour

// KiteClient is the subset of *kiteconnect.Client used by KiteFeed
type KiteClient interface {
	instruments.Lister
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// KiteFeed fetches historical candles from Kite/Zerodha
type KiteFeed struct {
	config *config.Config
	logger *zerolog.Logger
	dial   func(ctx context.Context) (KiteClient, error)

	client      KiteClient
	instruments *instruments.InstrumentManager
}

// NewKiteFeed creates a Kite feed that authenticates through authManager
func NewKiteFeed(cfg *config.Config, authManager *auth.Manager, logger *zerolog.Logger) *KiteFeed {
	return &KiteFeed{
		config: cfg,
		logger: logger,
		dial: func(ctx context.Context) (KiteClient, error) {
			creds, err := authManager.Credentials(ctx, config.BrokerKite, true)
			if err != nil {
				return nil, err
			}
			client := kiteconnect.New(creds.APIKey)
			client.SetAccessToken(creds.SessionToken)
			return client, nil
		},
	}
}

// Connect authenticates and loads the instrument list used to resolve symbols
func (kf *KiteFeed) Connect(ctx context.Context) error {
	client, err := kf.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to get authenticated Kite client: %w", err)
	}

	manager := instruments.NewInstrumentManager(kf.config.Kite.Exchange, kf.config.Kite.InstrumentsPath, client, kf.logger)
	if err := manager.Load(); err != nil {
		return fmt.Errorf("failed to load instruments: %w", err)
	}

	kf.client = client
	kf.instruments = manager
	kf.logger.Info().Str("exchange", kf.config.Kite.Exchange).Msg("connected to Kite")
	return nil
}

// Disconnect drops the client. Kite is a REST API, so there is no session to close
// and the access token stays valid for other tools.
func (kf *KiteFeed) Disconnect() error {
	kf.client = nil
	kf.instruments = nil
	kf.logger.Debug().Msg("disconnected from Kite")
	return nil
}

// RequestBars downloads the candles for req and hands them to r
func (kf *KiteFeed) RequestBars(ctx context.Context, reqID int, req Request, r Receiver) error {
	if kf.client == nil {
		return fmt.Errorf("kite feed is not connected")
	}

	barSize, err := ParseBarSize(req.BarSize)
	if err != nil {
		return err
	}
	interval, err := kiteInterval(barSize)
	if err != nil {
		return err
	}
	from, to, err := req.Window(time.Now())
	if err != nil {
		return err
	}

	instrument, err := kf.instruments.GetInstrumentBySymbol(req.Symbol)
	if err != nil {
		return err
	}

	kf.logger.Info().
		Str("symbol", instrument.TradingSymbol).
		Str("interval", interval).
		Time("from", from).
		Time("to", to).
		Msg("downloading historical data")

	candles, err := kf.downloadWithRetry(ctx, instrument.InstrumentToken, from, to, interval)
	if err != nil {
		return err
	}

	for _, candle := range candles {
		r.Bar(reqID, candle)
	}
	r.End(reqID, from, to)
	return nil
}

// downloadWithRetry downloads the window, splitting minute requests into
// 60-day chunks.
func (kf *KiteFeed) downloadWithRetry(ctx context.Context, instrumentToken int64, from, to time.Time, interval string) ([]crossover.Bar, error) {
	if !strings.HasSuffix(interval, "minute") || to.Sub(from) <= kiteMinuteLimit {
		return kf.downloadChunk(ctx, instrumentToken, from, to, interval)
	}

	kf.logger.Info().
		Float64("days", to.Sub(from).Hours()/24).
		Msg("duration exceeds the 60-day limit for minute data, chunking requests")

	var all []crossover.Bar
	for currentFrom := from; currentFrom.Before(to); {
		if !currentFrom.Equal(from) {
			if err := wait(ctx, kf.requestDelay()); err != nil {
				return nil, err
			}
		}

		currentTo := currentFrom.Add(kiteMinuteLimit)
		if currentTo.After(to) {
			currentTo = to
		}

		chunk, err := kf.downloadChunk(ctx, instrumentToken, currentFrom, currentTo, interval)
		if err != nil {
			return nil, fmt.Errorf("error downloading chunk from %s to %s: %w",
				currentFrom.Format("2006-01-02"), currentTo.Format("2006-01-02"), err)
		}
		all = append(all, chunk...)

		currentFrom = currentTo.Add(time.Second)
	}
	return all, nil
}

// downloadChunk downloads a single window with retries. When Kite reports
// that the window is too large it is split in half.
func (kf *KiteFeed) downloadChunk(ctx context.Context, instrumentToken int64, from, to time.Time, interval string) ([]crossover.Bar, error) {
	var lastErr error
	for i := 0; i < kf.config.Kite.MaxRetries; i++ {
		data, err := kf.client.GetHistoricalData(int(instrumentToken), interval, from, to, false, false)
		if err == nil {
			bars := make([]crossover.Bar, 0, len(data))
			for _, d := range data {
				bars = append(bars, crossover.Bar{
					Date:   d.Date.Time,
					Open:   d.Open,
					High:   d.High,
					Low:    d.Low,
					Close:  d.Close,
					Volume: int64(d.Volume),
				})
			}
			return bars, nil
		}
		lastErr = err

		kf.logger.Warn().Err(err).Int("attempt", i+1).Msg("error downloading chunk")

		if isRangeTooLarge(err) {
			if to.Sub(from) <= 5*24*time.Hour {
				return nil, fmt.Errorf("even a small date range failed: %w", err)
			}
			return kf.downloadSplit(ctx, instrumentToken, from, to, interval)
		}

		if i < kf.config.Kite.MaxRetries-1 {
			if err := wait(ctx, 2*kf.requestDelay()); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("failed to download chunk after %d retries: %w", kf.config.Kite.MaxRetries, lastErr)
}

func (kf *KiteFeed) downloadSplit(ctx context.Context, instrumentToken int64, from, to time.Time, interval string) ([]crossover.Bar, error) {
	mid := from.Add(to.Sub(from) / 2)
	kf.logger.Info().Str("at", mid.Format("2006-01-02")).Msg("reducing chunk size")

	first, err := kf.downloadChunk(ctx, instrumentToken, from, mid, interval)
	if err != nil {
		return nil, err
	}
	if err := wait(ctx, kf.requestDelay()); err != nil {
		return nil, err
	}
	second, err := kf.downloadChunk(ctx, instrumentToken, mid.Add(time.Second), to, interval)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

func (kf *KiteFeed) requestDelay() time.Duration {
	return time.Duration(kf.config.Kite.RequestDelay) * time.Millisecond
}

func isRangeTooLarge(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "interval exceeds max limit") ||
		strings.Contains(msg, "too many candles requested")
}

// kiteInterval maps a bar size onto a Kite candle interval
func kiteInterval(b BarSize) (string, error) {
	switch b.Unit {
	case Minute:
		switch b.Count {
		case 1:
			return "minute", nil
		case 3, 5, 10, 15, 30, 60:
			return fmt.Sprintf("%dminute", b.Count), nil
		}
	case Hour:
		if b.Count == 1 {
			return "60minute", nil
		}
	case Day:
		if b.Count == 1 {
			return "day", nil
		}
	}
	return "", fmt.Errorf("bar size %q is not supported by Kite", b)
}
