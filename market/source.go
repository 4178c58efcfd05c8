package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable is returned when a source is unreachable or has no bars
// to offer. Callers treat it as "no result", never as an empty dataset.
var ErrDataUnavailable = errors.New("market data unavailable")

// DefaultSecondaryIndex is reported when the volatility index cannot be read.
const DefaultSecondaryIndex = 15.0

// Quote is the latest snapshot of the future plus the secondary (VIX) level.
type Quote struct {
	Price          float64   `json:"price"`
	Volume         float64   `json:"volume"`
	SecondaryIndex float64   `json:"secondary_index"`
	Time           time.Time `json:"time"`
}

// Source supplies market data to the simulation. Both calls may fail; the
// core degrades a failure to ErrDataUnavailable.
type Source interface {
	CurrentQuote(ctx context.Context) (Quote, error)
	HistoricalBars(ctx context.Context, days int) ([]Bar, error)
}

// LastBars returns at most n trailing bars of bars.
func LastBars(bars []Bar, n int) []Bar {
	if n <= 0 || n >= len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

// LastDays keeps the bars of the last n distinct calendar dates in loc
// (nil is UTC). n <= 0 keeps everything.
func LastDays(bars []Bar, n int, loc *time.Location) []Bar {
	if n <= 0 || len(bars) == 0 {
		return bars
	}
	if loc == nil {
		loc = time.UTC
	}
	seen := 0
	prev := ""
	for i := len(bars) - 1; i >= 0; i-- {
		d := bars[i].Time.In(loc).Format("2006-01-02")
		if d != prev {
			seen++
			prev = d
			if seen > n {
				return bars[i+1:]
			}
		}
	}
	return bars
}
