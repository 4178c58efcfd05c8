package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/magnet/backtest"
)

// CSVJournal appends trades and runs to two CSV files.
type CSVJournal struct {
	trades *csv.Writer
	runs   *csv.Writer
	tf, rf *os.File
}

var _ Journal = (*CSVJournal)(nil)

var (
	tradeHeader = []string{"run_id", "trade_id", "time", "level", "entry_price", "kind", "pnl", "outcome", "risk_reward", "time_at_level", "contracts"}
	runHeader   = []string{"run_id", "created", "source", "days", "seed", "trades", "wins", "losses", "win_rate", "avg_win", "avg_loss", "total_pnl", "profit_factor", "edge", "edge_grade", "initial_balance", "final_balance", "max_drawdown", "faults"}
)

func NewCSV(tradesPath, runsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(runsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{trades: csv.NewWriter(tf), runs: csv.NewWriter(rf), tf: tf, rf: rf}
	if err := j.write(j.trades, tradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.runs, runHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(ctx context.Context, runID string, t backtest.TradeRecord) error {
	return j.write(j.trades, []string{
		runID,
		t.ID,
		t.Time.Format(time.RFC3339),
		f(t.Level),
		f(t.EntryPrice),
		string(t.Kind),
		f(t.PnL),
		string(t.Outcome),
		f(t.RiskReward),
		f(t.TimeAtLevel),
		strconv.Itoa(t.Contracts),
	})
}

func (j *CSVJournal) RecordRun(ctx context.Context, r Run) error {
	s := r.Summary
	return j.write(j.runs, []string{
		s.RunID,
		r.Created.Format(time.RFC3339),
		r.Source,
		strconv.Itoa(r.Days),
		strconv.FormatInt(r.Seed, 10),
		strconv.Itoa(s.TotalTrades),
		strconv.Itoa(s.Wins),
		strconv.Itoa(s.Losses),
		stat(s.WinRate),
		stat(s.AvgWin),
		stat(s.AvgLoss),
		f(s.TotalPnL),
		f(s.ProfitFactor),
		stat(s.Edge),
		string(s.EdgeGrade),
		f(s.InitialBalance),
		f(s.FinalBalance),
		f(s.MaxDrawdown),
		strconv.Itoa(s.Faults),
	})
}

func (j *CSVJournal) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.trades, j.runs} {
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, fh := range []*os.File{j.tf, j.rf} {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// stat leaves undefined values empty.
func stat(s backtest.Stat) string {
	if !s.Valid {
		return ""
	}
	return f(s.Value)
}
