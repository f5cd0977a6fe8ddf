package instruments

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Lister downloads the instrument dump of an exchange.
// *kiteconnect.Client satisfies it.
type Lister interface {
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
}

// InstrumentManager resolves trading symbols to instruments
type InstrumentManager struct {
	exchange    string
	cachePath   string
	lister      Lister
	logger      *zerolog.Logger
	instruments map[string]Instrument
}

// NewInstrumentManager creates a new instrument manager for exchange.
// The dump is cached as CSV at cachePath.
func NewInstrumentManager(exchange, cachePath string, lister Lister, logger *zerolog.Logger) *InstrumentManager {
	return &InstrumentManager{
		exchange:    exchange,
		cachePath:   cachePath,
		lister:      lister,
		logger:      logger,
		instruments: make(map[string]Instrument),
	}
}

// Load fills the manager from the cache file, downloading and caching the
// exchange dump when no cache exists.
func (im *InstrumentManager) Load() error {
	list, err := im.readCache()
	switch {
	case err == nil:
		im.logger.Debug().Str("path", im.cachePath).Msg("using cached instruments")
	case errors.Is(err, fs.ErrNotExist):
		list, err = im.download()
		if err != nil {
			return err
		}
		if err := im.writeCache(list); err != nil {
			return err
		}
	default:
		return err
	}

	for _, instrument := range list {
		if instrument.Exchange != "" && instrument.Exchange != im.exchange {
			continue
		}
		im.instruments[instrument.TradingSymbol] = instrument
	}

	im.logger.Info().Int("count", len(im.instruments)).Str("exchange", im.exchange).Msg("loaded instruments")
	return nil
}

// download fetches the exchange dump from the broker
func (im *InstrumentManager) download() ([]Instrument, error) {
	im.logger.Info().Str("exchange", im.exchange).Msg("downloading instruments")

	dump, err := im.lister.GetInstrumentsByExchange(im.exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s instruments: %w", im.exchange, err)
	}

	list := make([]Instrument, 0, len(dump))
	for _, inst := range dump {
		list = append(list, Instrument{
			InstrumentToken: int64(inst.InstrumentToken),
			ExchangeToken:   int64(inst.ExchangeToken),
			TradingSymbol:   inst.Tradingsymbol,
			Name:            inst.Name,
			TickSize:        inst.TickSize,
			InstrumentType:  inst.InstrumentType,
			Segment:         inst.Segment,
			Exchange:        inst.Exchange,
		})
	}
	return list, nil
}

func (im *InstrumentManager) readCache() ([]Instrument, error) {
	file, err := os.Open(im.cachePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var list []Instrument
	if err := gocsv.UnmarshalFile(file, &list); err != nil {
		return nil, fmt.Errorf("failed to parse instruments cache %s: %w", im.cachePath, err)
	}
	return list, nil
}

func (im *InstrumentManager) writeCache(list []Instrument) error {
	if err := os.MkdirAll(filepath.Dir(im.cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create instruments directory: %w", err)
	}

	file, err := os.Create(im.cachePath)
	if err != nil {
		return fmt.Errorf("failed to create instruments file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&list, file); err != nil {
		return fmt.Errorf("failed to save instruments: %w", err)
	}
	return nil
}

// GetInstrumentBySymbol returns an instrument by its trading symbol
func (im *InstrumentManager) GetInstrumentBySymbol(symbol string) (Instrument, error) {
	instrument, ok := im.instruments[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("instrument not found: %s", symbol)
	}
	return instrument, nil
}
