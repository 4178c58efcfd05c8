package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/magnet/market"
)

const barSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	time INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, time)
);
`

// SQLiteStore keeps bars for one symbol in a SQLite database. Times are
// stored as unix milliseconds.
type SQLiteStore struct {
	db             *sql.DB
	Symbol         string
	SecondaryIndex float64
	Location       *time.Location // calendar days for HistoricalBars, nil is UTC
}

// OpenSQLite opens (and creates if needed) the bar database at path.
func OpenSQLite(path, symbol string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(barSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("data: bar schema: %w", err)
	}
	return &SQLiteStore{db: db, Symbol: symbol}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteBars upserts bars in a single transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []market.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, s.Symbol, b.Time.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("data: insert bar %s: %w", b.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns the bars in [from, to) in time order. Zero bounds are
// open.
func (s *SQLiteStore) ReadBars(ctx context.Context, from, to time.Time) ([]market.Bar, error) {
	lo, hi := int64(-1<<63), int64(1<<63-1)
	if !from.IsZero() {
		lo = from.UnixMilli()
	}
	if !to.IsZero() {
		hi = to.UnixMilli() - 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume FROM bars
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time`, s.Symbol, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var (
			ms int64
			b  market.Bar
		)
		if err := rows.Scan(&ms, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Time = time.UnixMilli(ms).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) CurrentQuote(ctx context.Context) (market.Quote, error) {
	var (
		ms int64
		b  market.Bar
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT time, close, volume FROM bars WHERE symbol = ?
		ORDER BY time DESC LIMIT 1`, s.Symbol).Scan(&ms, &b.Close, &b.Volume)
	if err == sql.ErrNoRows {
		return market.Quote{}, fmt.Errorf("data: %w: no bars for %s", market.ErrDataUnavailable, s.Symbol)
	}
	if err != nil {
		return market.Quote{}, err
	}
	b.Time = time.UnixMilli(ms).UTC()
	return quoteFromBars([]market.Bar{b}, s.SecondaryIndex)
}

func (s *SQLiteStore) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	bars, err := s.ReadBars(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("data: %w: %w", market.ErrDataUnavailable, err)
	}
	return market.LastDays(bars, days, s.Location), nil
}
