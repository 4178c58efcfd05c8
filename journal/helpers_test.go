package journal

import (
	"time"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/strategy"
)

func sampleTrades() []backtest.TradeRecord {
	t0 := time.Date(2025, 1, 2, 14, 50, 0, 0, time.UTC)
	return []backtest.TradeRecord{
		{ID: "01A", Time: t0, Level: 6700, EntryPrice: 6701, Kind: strategy.IronButterfly,
			PnL: 1250, Outcome: backtest.Win, TimeAtLevel: 0.8, Contracts: 0},
		{ID: "01B", Time: t0.Add(time.Minute), Level: 6700, EntryPrice: 6699.5, Kind: strategy.MagneticStrangle,
			PnL: -750, Outcome: backtest.Loss, RiskReward: 800.0 / 750, TimeAtLevel: 2.0 / 3, Contracts: 1},
	}
}

func sampleRun(id string) Run {
	s := backtest.Aggregate(sampleTrades(), 100_000, 100_500)
	s.RunID = id
	s.Start = time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	s.End = time.Date(2025, 1, 2, 21, 0, 0, 0, time.UTC)
	return Run{
		Created: time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC),
		Source:  "csv",
		Days:    1,
		Seed:    42,
		Summary: s,
	}
}
