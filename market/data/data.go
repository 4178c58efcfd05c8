// Package data provides market.Source implementations: in-memory, file
// backed (CSV, SQLite, Parquet), the Yahoo chart API, a synthetic generator
// and a primary/secondary fallback.
package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/magnet/market"
)

// Static serves a fixed slice of bars. It is safe for concurrent use as
// long as Bars is not modified.
type Static struct {
	Bars           []market.Bar
	SecondaryIndex float64
	Location       *time.Location // calendar days for HistoricalBars, nil is UTC
}

// NewStatic returns a Static over bars.
func NewStatic(bars []market.Bar) *Static {
	return &Static{Bars: bars}
}

func (s *Static) CurrentQuote(ctx context.Context) (market.Quote, error) {
	return quoteFromBars(s.Bars, s.SecondaryIndex)
}

func (s *Static) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	bars := market.LastDays(s.Bars, days, s.Location)
	return append([]market.Bar(nil), bars...), nil
}

// quoteFromBars builds a quote from the last bar. A non-positive index is
// reported as market.DefaultSecondaryIndex.
func quoteFromBars(bars []market.Bar, index float64) (market.Quote, error) {
	if len(bars) == 0 {
		return market.Quote{}, fmt.Errorf("data: %w: no bars", market.ErrDataUnavailable)
	}
	if index <= 0 {
		index = market.DefaultSecondaryIndex
	}
	last := bars[len(bars)-1]
	return market.Quote{
		Price:          last.Close,
		Volume:         last.Volume,
		SecondaryIndex: index,
		Time:           last.Time,
	}, nil
}

// Fallback asks Primary first and Secondary when Primary fails or has no
// bars.
type Fallback struct {
	Primary   market.Source
	Secondary market.Source
	Log       *slog.Logger
}

func (f *Fallback) log() *slog.Logger {
	if f.Log == nil {
		return slog.Default()
	}
	return f.Log
}

func (f *Fallback) CurrentQuote(ctx context.Context) (market.Quote, error) {
	q, err := f.Primary.CurrentQuote(ctx)
	if err == nil || f.Secondary == nil {
		return q, err
	}
	f.log().Warn("primary quote failed, using secondary", "err", err)
	return f.Secondary.CurrentQuote(ctx)
}

func (f *Fallback) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	bars, err := f.Primary.HistoricalBars(ctx, days)
	if (err == nil && len(bars) > 0) || f.Secondary == nil {
		return bars, err
	}
	f.log().Warn("primary history failed, using secondary", "err", err, "bars", len(bars))
	return f.Secondary.HistoricalBars(ctx, days)
}
