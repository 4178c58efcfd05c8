package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/backtest"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["runs"])
}

func TestSQLiteTrades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	for _, tr := range sampleTrades() {
		require.NoError(t, j.RecordTrade(ctx, "run-1", tr))
	}
	require.NoError(t, j.RecordTrade(ctx, "run-2", backtest.TradeRecord{ID: "01C", Time: time.Now()}))

	got, err := j.ListTradesByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, sampleTrades(), got)

	// Trade IDs are unique.
	assert.Error(t, j.RecordTrade(ctx, "run-1", sampleTrades()[0]))

	none, err := j.ListTradesByRunID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	run := sampleRun("run-1")
	require.NoError(t, j.RecordRun(ctx, run))

	got, err := j.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.Seed, got.Seed)
	assert.True(t, run.Created.Equal(got.Created))

	want := run.Summary
	want.Days = nil
	assert.Equal(t, want, got.Summary)

	_, err = j.GetRun(ctx, "nope")
	assert.ErrorContains(t, err, "not found")
}

func TestSQLiteRuns_UndefinedStatsAreNull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	s := backtest.Aggregate(nil, 100_000, 100_000)
	s.RunID = "empty"
	require.NoError(t, j.RecordRun(ctx, Run{Created: time.Now(), Source: "synthetic", Summary: s}))

	var winRate sql.NullFloat64
	require.NoError(t, j.db.QueryRow(`SELECT win_rate FROM runs WHERE run_id = 'empty'`).Scan(&winRate))
	assert.False(t, winRate.Valid)

	got, err := j.GetRun(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, backtest.Undefined, got.Summary.WinRate)
	assert.Equal(t, backtest.Undefined, got.Summary.Edge)
	assert.Equal(t, backtest.GradeUndefined, got.Summary.EdgeGrade)

	assert.Error(t, j.RecordRun(ctx, Run{}))
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	for i, id := range []string{"a", "b", "c"} {
		r := sampleRun(id)
		r.Created = r.Created.Add(time.Duration(i) * time.Hour)
		require.NoError(t, j.RecordRun(ctx, r))
	}

	runs, err := j.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Summary.RunID)
	assert.Equal(t, "b", runs[1].Summary.RunID)

	all, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
