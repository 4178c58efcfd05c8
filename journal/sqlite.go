package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/magnet/backtest"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(ctx context.Context, runID string, t backtest.TradeRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, run_id, time, level, entry_price, kind, pnl, outcome, risk_reward, time_at_level, contracts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, runID, t.Time.UnixMilli(), t.Level, t.EntryPrice, string(t.Kind),
		t.PnL, string(t.Outcome), t.RiskReward, t.TimeAtLevel, t.Contracts,
	)
	return err
}

func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	s := r.Summary
	if s.RunID == "" {
		return fmt.Errorf("journal: run has no id")
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, created, source, days, seed, start_time, end_time,
		 total_trades, wins, losses, win_rate, avg_win, avg_loss, avg_pnl,
		 total_pnl, profit_factor, edge, edge_grade,
		 initial_balance, final_balance, max_drawdown, max_drawdown_pct, faults, stopped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, r.Created.UnixMilli(), r.Source, r.Days, r.Seed, s.Start.UnixMilli(), s.End.UnixMilli(),
		s.TotalTrades, s.Wins, s.Losses, nullStat(s.WinRate), nullStat(s.AvgWin), nullStat(s.AvgLoss), nullStat(s.AvgPnL),
		s.TotalPnL, s.ProfitFactor, nullStat(s.Edge), string(s.EdgeGrade),
		s.InitialBalance, s.FinalBalance, s.MaxDrawdown, s.MaxDrawdownPct, s.Faults, s.Stopped,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullStat(s backtest.Stat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: s.Value, Valid: s.Valid}
}

func statOf(n sql.NullFloat64) backtest.Stat {
	if !n.Valid {
		return backtest.Undefined
	}
	return backtest.Defined(n.Float64)
}
