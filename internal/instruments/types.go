package instruments

// Instrument represents a trading instrument as stored in the local cache
type Instrument struct {
	InstrumentToken int64   `csv:"instrument_token"`
	ExchangeToken   int64   `csv:"exchange_token"`
	TradingSymbol   string  `csv:"tradingsymbol"`
	Name            string  `csv:"name"`
	TickSize        float64 `csv:"tick_size"`
	InstrumentType  string  `csv:"instrument_type"`
	Segment         string  `csv:"segment"`
	Exchange        string  `csv:"exchange"`
}
