package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Supported broker names
const (
	BrokerAlpaca = "alpaca"
	BrokerKite   = "kite"
	BrokerCSV    = "csv"
)

// Config defines the application configuration structure
type Config struct {
	Broker   BrokerConfig   `mapstructure:"broker"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Alpaca   AlpacaConfig   `mapstructure:"alpaca"`
	Kite     KiteConfig     `mapstructure:"kite"`
	CSV      CSVConfig      `mapstructure:"csv"`
	Request  RequestConfig  `mapstructure:"request"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
}

// BrokerConfig selects the historical data source
type BrokerConfig struct {
	Name string `mapstructure:"name"`
}

// AuthConfig defines authentication configuration
type AuthConfig struct {
	AuthServiceURL    string `mapstructure:"auth_service_url"`
	AuthServiceAPIKey string `mapstructure:"auth_service_api_key"`
	ApiKey            string `mapstructure:"api_key"`
	ApiSecret         string `mapstructure:"api_secret"`
	SessionToken      string `mapstructure:"session_token"`
}

// AlpacaConfig defines the Alpaca market data settings
type AlpacaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Feed    string `mapstructure:"feed"`
}

// KiteConfig defines the Kite historical data settings
type KiteConfig struct {
	Exchange        string `mapstructure:"exchange"`
	InstrumentsPath string `mapstructure:"instruments_path"`
	RequestDelay    int    `mapstructure:"request_delay"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CSVConfig defines the local file source
type CSVConfig struct {
	Path string `mapstructure:"path"`
}

// RequestConfig describes the bars to fetch
type RequestConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Duration string `mapstructure:"duration"`
	BarSize  string `mapstructure:"bar_size"`
}

// StrategyConfig holds the moving average windows
type StrategyConfig struct {
	ShortWindow int `mapstructure:"short_window"`
	LongWindow  int `mapstructure:"long_window"`
}

// OutputConfig controls the report and exports
type OutputConfig struct {
	Tail        int    `mapstructure:"tail"`
	CSVPath     string `mapstructure:"csv_path"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps nested config keys to environment variables
var envBindings = map[string]string{
	"broker.name": "CROSSOVER_BROKER",

	"auth.auth_service_url":     "CROSSOVER_AUTH_SERVICE_URL",
	"auth.auth_service_api_key": "CROSSOVER_AUTH_SERVICE_KEY",
	"auth.api_key":              "CROSSOVER_API_KEY",
	"auth.api_secret":           "CROSSOVER_API_SECRET",
	"auth.session_token":        "CROSSOVER_SESSION_TOKEN",

	"alpaca.base_url": "CROSSOVER_ALPACA_BASE_URL",
	"alpaca.feed":     "CROSSOVER_ALPACA_FEED",

	"kite.exchange":         "CROSSOVER_KITE_EXCHANGE",
	"kite.instruments_path": "CROSSOVER_INSTRUMENTS_PATH",
	"kite.request_delay":    "CROSSOVER_REQUEST_DELAY",
	"kite.max_retries":      "CROSSOVER_MAX_RETRIES",

	"csv.path": "CROSSOVER_CSV_PATH",

	"request.symbol":   "CROSSOVER_SYMBOL",
	"request.duration": "CROSSOVER_DURATION",
	"request.bar_size": "CROSSOVER_BAR_SIZE",

	"strategy.short_window": "CROSSOVER_SHORT_WINDOW",
	"strategy.long_window":  "CROSSOVER_LONG_WINDOW",

	"output.tail":         "CROSSOVER_TAIL",
	"output.csv_path":     "CROSSOVER_OUTPUT_CSV",
	"output.parquet_path": "CROSSOVER_OUTPUT_PARQUET",

	"log.level":  "CROSSOVER_LOG_LEVEL",
	"log.format": "CROSSOVER_LOG_FORMAT",
}

// LoadConfig loads configuration from file and overrides with environment
// variables. A missing file is not an error; defaults and environment are used.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CROSSOVER")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyDefaults(&config)
	return config, nil
}

// isMissingFile reports whether err means the config file does not exist.
// viper only returns ConfigFileNotFoundError when searching config paths.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs error

	switch c.Broker.Name {
	case BrokerAlpaca:
	case BrokerKite:
		if c.Kite.MaxRetries <= 0 {
			errs = errors.Join(errs, errors.New("kite.max_retries must be > 0"))
		}
	case BrokerCSV:
		if c.CSV.Path == "" {
			errs = errors.Join(errs, errors.New("csv.path is required for the csv broker"))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown broker: %q", c.Broker.Name))
	}

	if c.Request.Symbol == "" {
		errs = errors.Join(errs, errors.New("symbol cannot be empty"))
	}
	if c.Strategy.ShortWindow <= 0 {
		errs = errors.Join(errs, errors.New("short-window must be > 0"))
	}
	if c.Strategy.LongWindow <= 0 {
		errs = errors.Join(errs, errors.New("long-window must be > 0"))
	}
	if c.Strategy.ShortWindow > c.Strategy.LongWindow {
		errs = errors.Join(errs, errors.New("short-window must be <= long-window"))
	}
	if c.Output.Tail <= 0 {
		errs = errors.Join(errs, errors.New("tail must be > 0"))
	}
	return errs
}

// applyDefaults sets default values for any config values not set from file or environment
func applyDefaults(config *Config) {
	if config.Broker.Name == "" {
		config.Broker.Name = BrokerAlpaca
	}

	if config.Alpaca.Feed == "" {
		config.Alpaca.Feed = "iex"
	}

	if config.Kite.Exchange == "" {
		config.Kite.Exchange = "NSE"
	}
	if config.Kite.InstrumentsPath == "" {
		config.Kite.InstrumentsPath = "./instruments.csv"
	}
	if config.Kite.RequestDelay == 0 {
		config.Kite.RequestDelay = 500
	}
	if config.Kite.MaxRetries == 0 {
		config.Kite.MaxRetries = 3
	}

	if config.Request.Symbol == "" {
		config.Request.Symbol = "AAPL"
	}
	if config.Request.Duration == "" {
		config.Request.Duration = "1 M"
	}
	if config.Request.BarSize == "" {
		config.Request.BarSize = "1 day"
	}

	if config.Strategy.ShortWindow == 0 {
		config.Strategy.ShortWindow = 10
	}
	if config.Strategy.LongWindow == 0 {
		config.Strategy.LongWindow = 20
	}

	if config.Output.Tail == 0 {
		config.Output.Tail = 5
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}
