package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/risk"
)

func sweepBars() []market.Bar {
	var bars []market.Bar
	for d := 2; d <= 4; d++ {
		bars = append(bars, day(2025, 1, d, repeat(6700, 30)...)...)
	}
	return bars
}

func seededFactory(bars []market.Bar) Factory {
	return func(seed int64) (*Runner, error) {
		r := newRunner(bars, NewRand(seed))
		r.RunID = fmt.Sprintf("seed-%d", seed)
		r.Engine.Butterfly.Width = 50
		r.Options.WinProbability = func(magnet.Score) float64 { return 0.5 }
		return r, nil
	}
}

func TestSweep_SeedsAreIndependent(t *testing.T) {
	t.Parallel()

	rep, err := Sweep(context.Background(), seededFactory(sweepBars()), []int64{7, 11, 7}, 3, 2)
	require.NoError(t, err)
	require.Len(t, rep.Results, 3)

	assert.Equal(t, int64(7), rep.Results[0].Seed)
	assert.Equal(t, int64(11), rep.Results[1].Seed)
	assert.Equal(t, rep.Results[0].Summary, rep.Results[2].Summary)

	for _, r := range rep.Results {
		assert.Equal(t, 30, r.Summary.TotalTrades)
	}
}

func TestSweep_MatchesSequentialRun(t *testing.T) {
	t.Parallel()

	bars := sweepBars()
	rep, err := Sweep(context.Background(), seededFactory(bars), []int64{3, 5}, 3, 0)
	require.NoError(t, err)

	r, err := seededFactory(bars)(5)
	require.NoError(t, err)
	s, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, s, rep.Results[1].Summary)
}

func TestSweep_Report(t *testing.T) {
	t.Parallel()

	rep := summarizeSweep([]SweepResult{
		{Seed: 1, Summary: &Summary{InitialBalance: 100, FinalBalance: 120, WinRate: Defined(0.6), Edge: Defined(0.2), MaxDrawdown: 10}},
		{Seed: 2, Summary: &Summary{InitialBalance: 100, FinalBalance: 80, WinRate: Defined(0.4), MaxDrawdown: 30}},
		{Seed: 3, Summary: &Summary{InitialBalance: 100, FinalBalance: 100}},
	})

	assert.Equal(t, 100.0, rep.MeanFinalBalance)
	assert.Equal(t, Defined(0.5), rep.MeanWinRate)
	assert.Equal(t, Defined(0.2), rep.MeanEdge)
	assert.Equal(t, 30.0, rep.WorstDrawdown)
	assert.Equal(t, 1, rep.Profitable)
}

func TestSweep_Errors(t *testing.T) {
	t.Parallel()

	bars := sweepBars()

	t.Run("no seeds", func(t *testing.T) {
		t.Parallel()
		_, err := Sweep(context.Background(), seededFactory(bars), nil, 3, 0)
		assert.Error(t, err)
	})

	t.Run("shared ledger", func(t *testing.T) {
		t.Parallel()

		shared := risk.NewLedger(100_000, risk.DefaultLimits(), quiet)
		f := func(seed int64) (*Runner, error) {
			r := newRunner(bars, NewRand(seed))
			r.Ledger = shared
			return r, nil
		}
		_, err := Sweep(context.Background(), f, []int64{1, 2}, 3, 0)
		assert.ErrorContains(t, err, "share a ledger")
	})

	t.Run("factory error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("bad config")
		f := func(seed int64) (*Runner, error) { return nil, boom }
		_, err := Sweep(context.Background(), f, []int64{1}, 3, 0)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("run error", func(t *testing.T) {
		t.Parallel()

		f := func(seed int64) (*Runner, error) {
			return newRunner(nil, NewRand(seed)), nil
		}
		_, err := Sweep(context.Background(), f, []int64{1, 2}, 3, 1)
		assert.ErrorIs(t, err, market.ErrDataUnavailable)
	})
}
