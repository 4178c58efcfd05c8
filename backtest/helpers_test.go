package backtest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

type stubSource struct {
	bars []market.Bar
	err  error
}

func (s *stubSource) CurrentQuote(ctx context.Context) (market.Quote, error) {
	if len(s.bars) == 0 {
		return market.Quote{}, market.ErrDataUnavailable
	}
	last := s.bars[len(s.bars)-1]
	return market.Quote{Price: last.Close, Volume: last.Volume, SecondaryIndex: market.DefaultSecondaryIndex, Time: last.Time}, nil
}

func (s *stubSource) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	return s.bars, s.err
}

// seqRand replays vals in a loop.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) RecordTrade(ctx context.Context, runID string, tr TradeRecord) error {
	f.calls++
	return io.ErrClosedPipe
}

type memRecorder struct {
	runIDs []string
	trades []TradeRecord
}

func (m *memRecorder) RecordTrade(ctx context.Context, runID string, tr TradeRecord) error {
	m.runIDs = append(m.runIDs, runID)
	m.trades = append(m.trades, tr)
	return nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// day returns closes as one-minute bars starting 14:30 UTC on the date.
func day(y int, m time.Month, d int, closes ...float64) []market.Bar {
	start := time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Time: start.Add(time.Duration(i) * time.Minute), Close: c, Volume: 100}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func join(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newRunner(bars []market.Bar, rnd Rand) *Runner {
	return &Runner{
		RunID:    "test-run",
		Source:   &stubSource{bars: bars},
		Detector: magnet.New(nil, 0, 0),
		Engine:   strategy.NewEngine(50),
		Ledger:   risk.NewLedger(100_000, risk.DefaultLimits(), quiet),
		Rand:     rnd,
		Options:  Options{Volatility: 0.15},
		Log:      quiet,
	}
}
