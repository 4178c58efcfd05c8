package backtest

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/magnet/risk"
)

// Factory builds a fresh Runner for one seed. Every call must return its
// own Ledger and Rand.
type Factory func(seed int64) (*Runner, error)

// SweepResult is the outcome of one seeded run.
type SweepResult struct {
	Seed    int64    `json:"seed"`
	Summary *Summary `json:"summary"`
}

// SweepReport collects the runs of a sweep in seed order.
type SweepReport struct {
	Results []SweepResult `json:"results"`

	MeanFinalBalance float64 `json:"mean_final_balance"`
	MeanWinRate      Stat    `json:"mean_win_rate"`
	MeanEdge         Stat    `json:"mean_edge"`
	WorstDrawdown    float64 `json:"worst_drawdown"`
	Profitable       int     `json:"profitable"`
}

// Sweep runs one backtest per seed, at most parallel at a time (0 means
// no limit). Runs share nothing but the factory. The first failed run
// cancels the rest.
func Sweep(ctx context.Context, factory Factory, seeds []int64, days, parallel int) (*SweepReport, error) {
	if factory == nil {
		return nil, fmt.Errorf("backtest: sweep needs a factory")
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("backtest: sweep needs at least one seed")
	}

	runners := make([]*Runner, len(seeds))
	ledgers := map[*risk.Ledger]int64{}
	for i, seed := range seeds {
		r, err := factory(seed)
		if err != nil {
			return nil, fmt.Errorf("backtest: seed %d: %w", seed, err)
		}
		if r == nil || r.Ledger == nil {
			return nil, fmt.Errorf("backtest: seed %d: runner has no ledger", seed)
		}
		if other, ok := ledgers[r.Ledger]; ok {
			return nil, fmt.Errorf("backtest: seeds %d and %d share a ledger", other, seed)
		}
		ledgers[r.Ledger] = seed
		runners[i] = r
	}

	results := make([]SweepResult, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range runners {
		i := i
		g.Go(func() error {
			s, err := runners[i].Run(gctx, days)
			if err != nil {
				return fmt.Errorf("backtest: seed %d: %w", seeds[i], err)
			}
			results[i] = SweepResult{Seed: seeds[i], Summary: s}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarizeSweep(results), nil
}

func summarizeSweep(results []SweepResult) *SweepReport {
	rep := &SweepReport{Results: results}

	var balance, winRate, edge float64
	var nWin, nEdge int
	for _, r := range results {
		s := r.Summary
		balance += s.FinalBalance
		if s.WinRate.Valid {
			winRate += s.WinRate.Value
			nWin++
		}
		if s.Edge.Valid {
			edge += s.Edge.Value
			nEdge++
		}
		rep.WorstDrawdown = math.Max(rep.WorstDrawdown, s.MaxDrawdown)
		if s.FinalBalance > s.InitialBalance {
			rep.Profitable++
		}
	}

	if len(results) > 0 {
		rep.MeanFinalBalance = balance / float64(len(results))
	}
	if nWin > 0 {
		rep.MeanWinRate = Defined(winRate / float64(nWin))
	}
	if nEdge > 0 {
		rep.MeanEdge = Defined(edge / float64(nEdge))
	}
	return rep
}
