package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/config"
	"github.com/sabarim/crossover/internal/crossover"
	"github.com/sabarim/crossover/internal/historical"
	"github.com/sabarim/crossover/internal/report"
	"github.com/spf13/cobra"
)

const noDataMessage = "No data retrieved. Ensure the broker terminal is running and accessible."

var (
	configFile  string
	brokerName  string
	csvPath     string
	symbol      string
	duration    string
	barSize     string
	shortWindow int
	longWindow  int
	tail        int
	outputCSV   string
	parquetPath string
	verbose     bool
	version     bool
)

var version_string = "0.1.0"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crossover",
		Short:         "Moving average crossover signals over broker historical data",
		Long:          `Fetches historical bars for one instrument from a broker, computes short and long simple moving averages of the close, and reports the resulting position and crossover signals.`,
		RunE:          runRootCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "config.yaml", "Path to config file")
	flags.StringVar(&brokerName, "broker", "", "Historical data source: alpaca, kite or csv")
	flags.StringVar(&csvPath, "csv", "", "Bars file for the csv broker")
	flags.StringVar(&symbol, "symbol", "", "Instrument symbol (default AAPL)")
	flags.StringVar(&duration, "duration", "", "How far back to fetch, e.g. \"1 M\" or \"30 D\"")
	flags.StringVar(&barSize, "bar-size", "", "Bar size, e.g. \"1 day\" or \"5 mins\"")
	flags.IntVar(&shortWindow, "short-window", 0, "Short moving average window (default 10)")
	flags.IntVar(&longWindow, "long-window", 0, "Long moving average window (default 20)")
	flags.IntVar(&tail, "tail", 0, "Number of trailing rows to print (default 5)")
	flags.StringVar(&outputCSV, "output-csv", "", "Write the decorated series to this CSV file")
	flags.StringVar(&parquetPath, "output-parquet", "", "Write the decorated series to this Parquet file")
	flags.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flags.BoolVar(&version, "version", false, "Print version information")

	return rootCmd
}

func runRootCommand(cmd *cobra.Command, args []string) error {
	if version {
		fmt.Fprintf(cmd.OutOrStdout(), "crossover version %s\n", version_string)
		return nil
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	logger.Debug().
		Str("broker", cfg.Broker.Name).
		Str("symbol", cfg.Request.Symbol).
		Str("duration", cfg.Request.Duration).
		Str("bar_size", cfg.Request.BarSize).
		Int("short_window", cfg.Strategy.ShortWindow).
		Int("long_window", cfg.Strategy.LongWindow).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigchan)
	go func() {
		select {
		case sig := <-sigchan:
			logger.Warn().Str("signal", sig.String()).Msg("received signal, initiating shutdown")
			cancel()
		case <-ctx.Done():
		}
	}()

	feed, err := historical.NewFeed(&cfg, &logger)
	if err != nil {
		return err
	}

	return run(ctx, &cfg, feed, cmd.OutOrStdout(), &logger)
}

// run fetches the bars, decorates them and writes the report to out
func run(ctx context.Context, cfg *config.Config, feed historical.Feed, out io.Writer, logger *zerolog.Logger) error {
	req := historical.Request{
		Symbol:   cfg.Request.Symbol,
		Duration: cfg.Request.Duration,
		BarSize:  cfg.Request.BarSize,
	}

	bars, err := historical.Fetch(ctx, feed, req, logger)
	if errors.Is(err, historical.ErrNoData) {
		fmt.Fprintln(out, noDataMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching historical data: %w", err)
	}

	rows, err := crossover.Calculate(bars, crossover.Windows{
		Short: cfg.Strategy.ShortWindow,
		Long:  cfg.Strategy.LongWindow,
	})
	if err != nil {
		return fmt.Errorf("calculating crossover: %w", err)
	}

	if err := report.PrintTail(out, rows, cfg.Output.Tail); err != nil {
		return fmt.Errorf("printing report: %w", err)
	}
	if err := report.PrintSummary(out, cfg.Request.Symbol, crossover.Summarize(rows)); err != nil {
		return fmt.Errorf("printing summary: %w", err)
	}

	if cfg.Output.CSVPath != "" {
		if err := report.WriteCSV(cfg.Output.CSVPath, rows); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Output.CSVPath).Int("rows", len(rows)).Msg("wrote csv")
	}
	if cfg.Output.ParquetPath != "" {
		if err := report.WriteParquet(cfg.Output.ParquetPath, cfg.Request.Symbol, rows); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Output.ParquetPath).Int("rows", len(rows)).Msg("wrote parquet")
	}

	return nil
}

// applyFlags overrides configuration with the flags set on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("broker") {
		cfg.Broker.Name = brokerName
	}
	if flags.Changed("csv") {
		cfg.CSV.Path = csvPath
	}
	if flags.Changed("symbol") {
		cfg.Request.Symbol = symbol
	}
	if flags.Changed("duration") {
		cfg.Request.Duration = duration
	}
	if flags.Changed("bar-size") {
		cfg.Request.BarSize = barSize
	}
	if flags.Changed("short-window") {
		cfg.Strategy.ShortWindow = shortWindow
	}
	if flags.Changed("long-window") {
		cfg.Strategy.LongWindow = longWindow
	}
	if flags.Changed("tail") {
		cfg.Output.Tail = tail
	}
	if flags.Changed("output-csv") {
		cfg.Output.CSVPath = outputCSV
	}
	if flags.Changed("output-parquet") {
		cfg.Output.ParquetPath = parquetPath
	}
	if verbose {
		cfg.Log.Level = zerolog.LevelDebugValue
	}
}

// newLogger builds the process logger from cfg
func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
