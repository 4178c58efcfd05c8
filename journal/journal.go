// Package journal persists simulated trades and run summaries.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/magnet/backtest"
)

// Journal records a run's trades as they happen and its summary at the
// end. Any Journal can be set as a backtest.Runner's Recorder.
type Journal interface {
	backtest.Recorder
	RecordRun(ctx context.Context, run Run) error
	Close() error
}

// Run describes one backtest run.
type Run struct {
	Created time.Time        `json:"created"`
	Source  string           `json:"source"` // data source name
	Days    int              `json:"days"`
	Seed    int64            `json:"seed"`
	Summary backtest.Summary `json:"summary"`
}

// NewRun stamps s with its metadata.
func NewRun(s backtest.Summary, source string, days int, seed int64) Run {
	return Run{
		Created: time.Now().UTC(),
		Source:  source,
		Days:    days,
		Seed:    seed,
		Summary: s,
	}
}

// Synchronized serializes RecordTrade so runs executing concurrently can
// share one recorder.
func Synchronized(r backtest.Recorder) backtest.Recorder {
	return &syncRecorder{r: r}
}

type syncRecorder struct {
	mu sync.Mutex
	r  backtest.Recorder
}

func (s *syncRecorder) RecordTrade(ctx context.Context, runID string, tr backtest.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.RecordTrade(ctx, runID, tr)
}
