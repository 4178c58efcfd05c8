package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/magnet/market"
)

// BarRecord is the on-disk Parquet schema for bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteParquet writes bars to path, creating parent directories.
func WriteParquet(path, symbol string, bars []market.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = BarRecord{
			Symbol:    symbol,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return parquet.WriteFile(path, records)
}

// ReadParquet reads every bar in path, sorted by time.
func ReadParquet(path string) ([]market.Bar, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	bars := make([]market.Bar, len(records))
	for i, r := range records {
		bars[i] = market.Bar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

// ParquetSource serves bars from a Parquet file written by WriteParquet.
type ParquetSource struct {
	Path           string
	SecondaryIndex float64
	Location       *time.Location // calendar days for HistoricalBars, nil is UTC
}

func (p *ParquetSource) load() ([]market.Bar, error) {
	bars, err := ReadParquet(p.Path)
	if err != nil {
		return nil, fmt.Errorf("data: %w: %w", market.ErrDataUnavailable, err)
	}
	return bars, nil
}

func (p *ParquetSource) CurrentQuote(ctx context.Context) (market.Quote, error) {
	bars, err := p.load()
	if err != nil {
		return market.Quote{}, err
	}
	return quoteFromBars(bars, p.SecondaryIndex)
}

func (p *ParquetSource) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	bars, err := p.load()
	if err != nil {
		return nil, err
	}
	return market.LastDays(bars, days, p.Location), nil
}
