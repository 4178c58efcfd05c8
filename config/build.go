package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/journal"
	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/market/data"
	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

// Detector builds the magnet detector.
func (c *Config) Detector() *magnet.Detector {
	return magnet.New(c.Magnet.Multipliers, c.Magnet.Tolerance, c.Magnet.Lookback)
}

// Engine builds the strategy engine.
func (c *Config) Engine() *strategy.Engine {
	s := c.Strategy
	e := strategy.NewEngine(s.Multiplier)
	e.Butterfly = s.Butterfly
	e.CallPremium = s.CallPremium
	e.PutPremium = s.PutPremium
	e.StrangleOffset = s.StrangleOffset
	e.ProtectiveWidth = s.ProtectiveWidth
	e.ExpiryDays = s.ExpiryDays
	return e
}

// Ledger builds a fresh ledger at the configured balance.
func (c *Config) Ledger(log *slog.Logger) *risk.Ledger {
	return risk.NewLedger(c.Account.Balance, c.Risk, log)
}

// Options builds the runner options.
func (c *Config) Options() (backtest.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return backtest.Options{}, err
	}
	return backtest.Options{
		Window:           c.Backtest.Window,
		Volatility:       c.Strategy.Volatility,
		EnforceDailyStop: c.Backtest.EnforceDailyStop,
		Session:          c.Backtest.Session,
		Location:         loc,
	}, nil
}

// Runner builds a runner with its own ledger and RNG for seed.
func (c *Config) Runner(src market.Source, seed int64, log *slog.Logger) (*backtest.Runner, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return &backtest.Runner{
		Source:   src,
		Detector: c.Detector(),
		Engine:   c.Engine(),
		Ledger:   c.Ledger(log),
		Rand:     backtest.NewRand(seed),
		Options:  opts,
		Log:      log,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenSource opens the configured data source, wrapped in a Fallback when one
// is configured. The closer releases any database handle.
func (c *Config) OpenSource(log *slog.Logger) (market.Source, io.Closer, error) {
	primary, closer, err := c.openSource(c.Data.Source, log)
	if err != nil {
		return nil, nil, err
	}
	if c.Data.Fallback == "" {
		return primary, closer, nil
	}

	secondary, closer2, err := c.openSource(c.Data.Fallback, log)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return &data.Fallback{Primary: primary, Secondary: secondary, Log: log}, multiCloser{closer, closer2}, nil
}

func (c *Config) openSource(kind string, log *slog.Logger) (market.Source, io.Closer, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case SourceSynthetic:
		return data.NewSynthetic(c.Backtest.Seed), nopCloser{}, nil
	case SourceCSV:
		return &data.CSVSource{Path: c.Data.Path, Location: loc}, nopCloser{}, nil
	case SourceParquet:
		return &data.ParquetSource{Path: c.Data.Path, Location: loc}, nopCloser{}, nil
	case SourceSQLite:
		s, err := data.OpenSQLite(c.Data.Path, c.Data.Symbol)
		if err != nil {
			return nil, nil, err
		}
		s.Location = loc
		return s, s, nil
	case SourceYahoo:
		y := data.NewYahoo(log)
		if c.Data.Symbol != "" {
			y.Symbol = c.Data.Symbol
		}
		y.SecondarySymbol = c.Data.SecondarySymbol
		return y, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", kind)
}

// Static wraps already fetched bars so every run of a sweep replays the same
// history, trimmed by the same calendar as the source that fetched them.
func (c *Config) Static(bars []market.Bar) (*data.Static, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	s := data.NewStatic(bars)
	s.Location = loc
	return s, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenJournal opens the configured journal, or nil when journaling is off.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(c.Journal.TradesFile, c.Journal.RunsFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(c.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, nil
}
