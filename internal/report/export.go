package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sabarim/crossover/internal/crossover"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// SignalRecord is one decorated bar in the parquet export
type SignalRecord struct {
	Symbol    string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp int64    `parquet:"name=timestamp, type=INT64, encoding=DELTA_BINARY_PACKED"`
	Date      string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open      float64  `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High      float64  `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low       float64  `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close     float64  `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume    int64    `parquet:"name=volume, type=INT64, encoding=DELTA_BINARY_PACKED"`
	SMAShort  *float64 `parquet:"name=sma_short, type=DOUBLE, repetitiontype=OPTIONAL"`
	SMALong   *float64 `parquet:"name=sma_long, type=DOUBLE, repetitiontype=OPTIONAL"`
	Position  int32    `parquet:"name=position, type=INT32"`
	Signal    int32    `parquet:"name=signal, type=INT32"`
}

// WriteCSV writes the decorated series to path
func WriteCSV(path string, rows []crossover.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := Frame(rows).WriteCSV(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteParquet writes the decorated series to a GZIP compressed parquet file
func WriteParquet(path, symbol string, rows []crossover.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(SignalRecord), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.PageSize = 8 * 1024

	for _, row := range rows {
		record := SignalRecord{
			Symbol:    symbol,
			Timestamp: row.Date.Unix(),
			Date:      formatDate(row),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			SMAShort:  optional(row.SMAShort),
			SMALong:   optional(row.SMALong),
			Position:  int32(row.Position),
			Signal:    int32(row.Signal),
		}
		if err := pw.Write(record); err != nil {
			return fmt.Errorf("failed to write parquet data: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func optional(a crossover.Average) *float64 {
	if !a.Valid {
		return nil
	}
	v := a.Value
	return &v
}
