package journal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/backtest"
)

// sliceRecorder is not safe for concurrent use on its own.
type sliceRecorder struct {
	trades []backtest.TradeRecord
}

func (s *sliceRecorder) RecordTrade(ctx context.Context, runID string, tr backtest.TradeRecord) error {
	s.trades = append(s.trades, tr)
	return nil
}

func TestSynchronized(t *testing.T) {
	t.Parallel()

	inner := &sliceRecorder{}
	rec := Synchronized(inner)

	var wg sync.WaitGroup
	for run := 0; run < 8; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr := backtest.TradeRecord{ID: fmt.Sprintf("%d-%d", run, i)}
				assert.NoError(t, rec.RecordTrade(context.Background(), fmt.Sprint(run), tr))
			}
		}(run)
	}
	wg.Wait()
	assert.Len(t, inner.trades, 400)
}

func TestSynchronized_SQLite(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	rec := Synchronized(j)
	ctx := context.Background()

	var wg sync.WaitGroup
	for run := 0; run < 4; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			for i, tr := range sampleTrades() {
				tr.ID = fmt.Sprintf("run%d-%d", run, i)
				assert.NoError(t, rec.RecordTrade(ctx, fmt.Sprintf("run%d", run), tr))
			}
		}(run)
	}
	wg.Wait()

	for run := 0; run < 4; run++ {
		trades, err := j.ListTradesByRunID(ctx, fmt.Sprintf("run%d", run))
		require.NoError(t, err)
		assert.Len(t, trades, 2)
	}
}
