package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/journal"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/market/data"
)

func TestBacktest_Synthetic(t *testing.T) {
	var run journal.Run
	executeJSON(t, &run, "backtest", "--source", "synthetic", "--seed", "7", "--days", "3")

	assert.Equal(t, "synthetic", run.Source)
	assert.Equal(t, 3, run.Days)
	assert.Equal(t, int64(7), run.Seed)

	s := run.Summary
	assert.NotEmpty(t, s.RunID)
	assert.Len(t, s.Days, 3)
	assert.Equal(t, 100000.0, s.InitialBalance)
	assert.InDelta(t, s.InitialBalance+s.TotalPnL, s.FinalBalance, 1e-6)
	assert.Equal(t, s.TotalTrades, s.Wins+s.Losses)
}

func TestBacktest_SameSeedSameResult(t *testing.T) {
	var a, b journal.Run
	executeJSON(t, &a, "backtest", "--source", "synthetic", "--seed", "11", "--days", "2")
	executeJSON(t, &b, "backtest", "--source", "synthetic", "--seed", "11", "--days", "2")

	assert.Equal(t, a.Summary.TotalTrades, b.Summary.TotalTrades)
	assert.Equal(t, a.Summary.FinalBalance, b.Summary.FinalBalance)
	assert.NotEqual(t, a.Summary.RunID, b.Summary.RunID)
}

func TestBacktest_TextReport(t *testing.T) {
	out, err := execute(t, "backtest", "--source", "synthetic", "--seed", "3", "--days", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Magnet Backtest Result")
	assert.Contains(t, out, "Seed:          3")
}

func TestBacktest_DataUnavailable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")

	out, err := execute(t, "backtest", "--source", "csv", "--path", missing, "--seed", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrDataUnavailable))
	assert.Contains(t, out, "No result: market data unavailable")
}

func TestBacktest_OrgReport(t *testing.T) {
	org := filepath.Join(t.TempDir(), "report.org")

	_, err := execute(t, "backtest", "--source", "synthetic", "--seed", "5", "--days", "2", "--org", org)
	require.NoError(t, err)

	b, err := os.ReadFile(org)
	require.NoError(t, err)
	assert.Contains(t, string(b), "* BACKTEST: Price Magnet synthetic 2d")
	assert.Contains(t, string(b), ":SEED:        5")
	assert.Contains(t, string(b), "| seed | 5 |")
}

func TestBacktest_JournalAndRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	cfg := writeConfig(t, `
data:
  source: synthetic
journal:
  type: sqlite
  db_path: `+db+`
`)

	var run journal.Run
	executeJSON(t, &run, "backtest", "--config", cfg, "--seed", "9", "--days", "3")
	id := run.Summary.RunID
	require.NotEmpty(t, id)

	var runs []journal.Run
	executeJSON(t, &runs, "runs", "list", "--config", cfg)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].Summary.RunID)
	assert.Equal(t, int64(9), runs[0].Seed)
	assert.Equal(t, run.Summary.TotalTrades, runs[0].Summary.TotalTrades)
	assert.InDelta(t, run.Summary.FinalBalance, runs[0].Summary.FinalBalance, 1e-6)

	var shown struct {
		Run    journal.Run            `json:"run"`
		Trades []backtest.TradeRecord `json:"trades"`
	}
	executeJSON(t, &shown, "runs", "show", id, "--config", cfg)
	assert.Equal(t, id, shown.Run.Summary.RunID)
	assert.Len(t, shown.Trades, run.Summary.TotalTrades)

	out, err := execute(t, "runs", "show", id, "--config", cfg, "--org")
	require.NoError(t, err)
	assert.Contains(t, out, ":RUN_ID:      "+id)

	_, err = execute(t, "runs", "show", "nope", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRuns_NoDatabase(t *testing.T) {
	_, err := execute(t, "runs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal database")
}

func TestSweep(t *testing.T) {
	var rep backtest.SweepReport
	executeJSON(t, &rep, "sweep", "--source", "synthetic", "--seeds", "1,2,3", "--days", "2", "--parallel", "2")

	require.Len(t, rep.Results, 3)
	for i, r := range rep.Results {
		assert.Equal(t, int64(i+1), r.Seed)
		require.NotNil(t, r.Summary)
		assert.Equal(t, 100000.0, r.Summary.InitialBalance)
	}
	assert.LessOrEqual(t, rep.Profitable, 3)
}

func TestSweep_CountAndJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	cfg := writeConfig(t, `
data:
  source: synthetic
journal:
  type: sqlite
  db_path: `+db+`
`)

	out, err := execute(t, "sweep", "--config", cfg, "--count", "4", "--start-seed", "10", "--days", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Magnet Seed Sweep")
	assert.Contains(t, out, "Runs:          4")

	var runs []journal.Run
	executeJSON(t, &runs, "runs", "list", "--config", cfg, "--limit", "0")
	require.Len(t, runs, 4)

	for _, run := range runs {
		var shown struct {
			Run    journal.Run            `json:"run"`
			Trades []backtest.TradeRecord `json:"trades"`
		}
		executeJSON(t, &shown, "runs", "show", run.Summary.RunID, "--config", cfg)
		assert.Len(t, shown.Trades, run.Summary.TotalTrades, "seed %d", run.Seed)
	}
}

func TestSweep_ReplaysSameHistoryAsBacktest(t *testing.T) {
	// 10:00 to 23:55 EDT on the 10th, crossing 00:00 UTC.
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 168)
	for i := range bars {
		c := 6700 + float64(i%5)
		bars[i] = market.Bar{Time: start.Add(time.Duration(i) * 5 * time.Minute),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, data.WriteCSV(f, bars))
	require.NoError(t, f.Close())

	var run journal.Run
	executeJSON(t, &run, "backtest", "--source", "csv", "--path", path, "--days", "1", "--seed", "2")

	var rep backtest.SweepReport
	executeJSON(t, &rep, "sweep", "--source", "csv", "--path", path, "--days", "1", "--seeds", "2")
	require.Len(t, rep.Results, 1)

	assert.True(t, bars[0].Time.Equal(run.Summary.Start))
	assert.True(t, run.Summary.Start.Equal(rep.Results[0].Summary.Start))
	assert.True(t, run.Summary.End.Equal(rep.Results[0].Summary.End))
	assert.Len(t, rep.Results[0].Summary.Days, 1)
	assert.Equal(t, run.Summary.TotalTrades, rep.Results[0].Summary.TotalTrades)
}

func TestSweep_BadCount(t *testing.T) {
	_, err := execute(t, "sweep", "--source", "synthetic", "--count", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--count must be positive")
}
