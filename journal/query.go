package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/strategy"
)

// GetRun returns the run with runID. Per-day results are not stored.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, source, days, seed, start_time, end_time,
		       total_trades, wins, losses, win_rate, avg_win, avg_loss, avg_pnl,
		       total_pnl, profit_factor, edge, edge_grade,
		       initial_balance, final_balance, max_drawdown, max_drawdown_pct, faults, stopped
		FROM runs WHERE run_id = ?`, runID)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %q not found", runID)
	}
	return r, err
}

// ListRuns returns the most recent runs first, at most limit (0 is all).
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, created, source, days, seed, start_time, end_time,
		       total_trades, wins, losses, win_rate, avg_win, avg_loss, avg_pnl,
		       total_pnl, profit_factor, edge, edge_grade,
		       initial_balance, final_balance, max_drawdown, max_drawdown_pct, faults, stopped
		FROM runs ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTradesByRunID returns the trades of a run in time order.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]backtest.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, time, level, entry_price, kind, pnl, outcome, risk_reward, time_at_level, contracts
		FROM trades WHERE run_id = ?
		ORDER BY time, trade_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.TradeRecord
	for rows.Next() {
		var (
			t             backtest.TradeRecord
			ms            int64
			kind, outcome string
		)
		if err := rows.Scan(&t.ID, &ms, &t.Level, &t.EntryPrice, &kind, &t.PnL,
			&outcome, &t.RiskReward, &t.TimeAtLevel, &t.Contracts); err != nil {
			return nil, err
		}
		t.Time = time.UnixMilli(ms).UTC()
		t.Kind = strategy.Kind(kind)
		t.Outcome = backtest.Outcome(outcome)
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                        Run
		created, start, end      int64
		winRate, avgWin, avgLoss sql.NullFloat64
		avgPnL, edge             sql.NullFloat64
		grade                    string
	)
	s := &r.Summary
	err := sc.Scan(&s.RunID, &created, &r.Source, &r.Days, &r.Seed, &start, &end,
		&s.TotalTrades, &s.Wins, &s.Losses, &winRate, &avgWin, &avgLoss, &avgPnL,
		&s.TotalPnL, &s.ProfitFactor, &edge, &grade,
		&s.InitialBalance, &s.FinalBalance, &s.MaxDrawdown, &s.MaxDrawdownPct, &s.Faults, &s.Stopped)
	if err != nil {
		return Run{}, err
	}

	r.Created = time.UnixMilli(created).UTC()
	s.Start = time.UnixMilli(start).UTC()
	s.End = time.UnixMilli(end).UTC()
	s.WinRate = statOf(winRate)
	s.AvgWin = statOf(avgWin)
	s.AvgLoss = statOf(avgLoss)
	s.AvgPnL = statOf(avgPnL)
	s.Edge = statOf(edge)
	s.EdgeGrade = backtest.Grade(grade)
	return r, nil
}
