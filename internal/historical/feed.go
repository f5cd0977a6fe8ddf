package historical

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/auth"
	"github.com/sabarim/crossover/internal/config"
	"github.com/sabarim/crossover/internal/crossover"
)

// ErrNoData is returned by Fetch when the feed delivered no bars.
var ErrNoData = errors.New("no data retrieved")

// requestID identifies the single historical request of a Fetch
const requestID = 1

// Receiver consumes the answer to a historical data request
type Receiver interface {
	// Bar is called once per bar, in increasing date order.
	Bar(reqID int, bar crossover.Bar)
	// End is called once when data retrieval for reqID is complete.
	End(reqID int, start, end time.Time)
}

// Feed is a historical market data source
type Feed interface {
	Connect(ctx context.Context) error
	// RequestBars delivers the bars for req to r and must finish with End
	// unless it returns an error.
	RequestBars(ctx context.Context, reqID int, req Request, r Receiver) error
	Disconnect() error
}

// NewFeed returns the feed selected by cfg.Broker.Name
func NewFeed(cfg *config.Config, logger *zerolog.Logger) (Feed, error) {
	switch cfg.Broker.Name {
	case config.BrokerAlpaca:
		return NewAlpacaFeed(cfg, auth.NewManager(cfg, logger), logger), nil
	case config.BrokerKite:
		return NewKiteFeed(cfg, auth.NewManager(cfg, logger), logger), nil
	case config.BrokerCSV:
		return NewCSVFeed(cfg.CSV.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown broker: %q", cfg.Broker.Name)
	}
}

// Fetch connects to feed, requests the bars for req, waits for the end of
// data and disconnects. Disconnect runs on every path once Connect succeeded.
func Fetch(ctx context.Context, feed Feed, req Request, logger *zerolog.Logger) ([]crossover.Bar, error) {
	if err := feed.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := feed.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	c := newCollector(requestID)
	if err := feed.RequestBars(ctx, requestID, req, c); err != nil {
		return nil, fmt.Errorf("failed to request bars for %s: %w", req.Symbol, err)
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	bars := c.result()
	logger.Info().
		Str("symbol", req.Symbol).
		Int("bars", len(bars)).
		Time("start", c.start).
		Time("end", c.end).
		Msg("historical data received")

	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// collector accumulates the bars of one request until its end notification
type collector struct {
	reqID int

	mu    sync.Mutex
	bars  []crossover.Bar
	start time.Time
	end   time.Time

	once sync.Once
	done chan struct{}
}

func newCollector(reqID int) *collector {
	return &collector{reqID: reqID, done: make(chan struct{})}
}

func (c *collector) Bar(reqID int, bar crossover.Bar) {
	if reqID != c.reqID {
		return
	}
	c.mu.Lock()
	c.bars = append(c.bars, bar)
	c.mu.Unlock()
}

func (c *collector) End(reqID int, start, end time.Time) {
	if reqID != c.reqID {
		return
	}
	c.mu.Lock()
	c.start, c.end = start, end
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

func (c *collector) result() []crossover.Bar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bars
}

// wait blocks for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
