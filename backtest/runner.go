package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/pkg/id"
	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

// ErrSimulationFault wraps anything that goes wrong while simulating a
// single trade. The step is skipped and the run carries on.
var ErrSimulationFault = errors.New("simulation fault")

// DefaultWindow is the number of prior bars needed before the first step.
const DefaultWindow = 20

// Outcome of a simulated trade.
type Outcome string

const (
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

// TradeRecord is one simulated trade. Records are appended in order and
// never changed.
type TradeRecord struct {
	ID          string        `json:"id"`
	Time        time.Time     `json:"time"`
	Level       float64       `json:"level"`
	EntryPrice  float64       `json:"entry_price"`
	Kind        strategy.Kind `json:"kind"`
	PnL         float64       `json:"pnl"`
	Outcome     Outcome       `json:"outcome"`
	RiskReward  float64       `json:"risk_reward"`
	TimeAtLevel float64       `json:"time_at_level"`
	Contracts   int           `json:"contracts"` // suggested size, PnL is one lot
}

// Recorder receives each trade before it is booked. An error turns the
// step into a fault.
type Recorder interface {
	RecordTrade(ctx context.Context, runID string, tr TradeRecord) error
}

// Rand draws the uniform outcome of each trade.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded Rand. Seed 0 seeds from the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Options controls how the runner walks the data.
type Options struct {
	// Window is the number of trailing bars handed to the detector.
	Window int
	// Volatility is passed to the strategy engine.
	Volatility float64
	// EnforceDailyStop skips trades while the ledger refuses new risk.
	EnforceDailyStop bool
	// Session keeps only bars inside the intraday window.
	Session market.Session
	// Location decides calendar days and session times; nil keeps the
	// bars' own zone.
	Location *time.Location
	// WinProbability maps a score to the simulated win probability. The
	// default is the score's time-at-level, which is a placeholder, not a
	// calibrated model.
	WinProbability func(magnet.Score) float64
}

// Runner replays historical bars through detector, engine and ledger.
// A Runner and its Ledger belong to exactly one run.
type Runner struct {
	RunID    string
	Source   market.Source
	Detector *magnet.Detector
	Engine   *strategy.Engine
	Ledger   *risk.Ledger
	Rand     Rand
	Recorder Recorder
	Options  Options
	Log      *slog.Logger

	trades  []TradeRecord
	faults  int
	stopped int
}

func (r *Runner) validate() error {
	if r.Source == nil {
		return fmt.Errorf("backtest: Source is required")
	}
	if r.Detector == nil {
		return fmt.Errorf("backtest: Detector is required")
	}
	if r.Engine == nil {
		return fmt.Errorf("backtest: Engine is required")
	}
	if r.Ledger == nil {
		return fmt.Errorf("backtest: Ledger is required")
	}
	if r.Rand == nil {
		return fmt.Errorf("backtest: Rand is required")
	}
	return nil
}

// Trades returns a copy of the trades recorded so far.
func (r *Runner) Trades() []TradeRecord {
	return append([]TradeRecord(nil), r.trades...)
}

// Run replays the last days of history:
//  1. fetch bars; no bars is ErrDataUnavailable and no Summary
//  2. group by calendar day and reset the daily loss at each
//  3. step through every full window, simulating Sell recommendations
//  4. aggregate the recorded trades
func (r *Runner) Run(ctx context.Context, days int) (*Summary, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if r.Log == nil {
		r.Log = slog.Default()
	}
	if r.RunID == "" {
		r.RunID = id.New()
	}
	window := r.Options.Window
	if window <= 0 {
		window = DefaultWindow
	}
	log := r.Log.With("run_id", r.RunID)

	bars, err := r.Source.HistoricalBars(ctx, days)
	if err != nil {
		log.Error("historical data", "err", err)
		return nil, fmt.Errorf("backtest: %w: %w", market.ErrDataUnavailable, err)
	}
	bars, err = r.Options.Session.Filter(bars, r.Options.Location)
	if err != nil {
		return nil, fmt.Errorf("backtest: session: %w", err)
	}
	if len(bars) == 0 {
		log.Error("historical data", "err", "no bars")
		return nil, fmt.Errorf("backtest: %w: no bars for %d days", market.ErrDataUnavailable, days)
	}

	initial := r.Ledger.State().InitialBalance
	log.Info("backtest started", "days", days, "bars", len(bars), "balance", initial)

	var results []DayResult
	for _, day := range market.GroupByDay(bars, r.Options.Location) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.Ledger.ResetDailyLoss()
		first := len(r.trades)

		for i := window; i < len(day.Bars); i++ {
			r.step(ctx, log, day.Bars[i-window:i])
		}

		dr := DayResult{
			Date:       day.Date,
			Trades:     len(r.trades) - first,
			EndBalance: r.Ledger.Snapshot().CurrentBalance,
			Stopped:    !r.Ledger.CanTrade(),
		}
		for _, tr := range r.trades[first:] {
			dr.PnL += tr.PnL
		}
		results = append(results, dr)
		log.Info("day complete", "date", day.Date.Format("2006-01-02"),
			"trades", dr.Trades, "pnl", dr.PnL, "balance", dr.EndBalance)
	}

	s := Aggregate(r.trades, initial, r.Ledger.Snapshot().CurrentBalance)
	s.RunID = r.RunID
	s.Start = bars[0].Time
	s.End = bars[len(bars)-1].Time
	s.Days = results
	s.Faults = r.faults
	s.Stopped = r.stopped

	log.Info("backtest complete", "trades", s.TotalTrades, "final_balance", s.FinalBalance,
		"edge", s.Edge.String(), "faults", s.Faults)
	return &s, nil
}

// step evaluates one window and simulates at most one trade.
func (r *Runner) step(ctx context.Context, log *slog.Logger, window []market.Bar) {
	score, err := r.Detector.Evaluate(window)
	if err != nil || !score.Active {
		return
	}

	rec := r.Engine.Recommend(score, r.Options.Volatility)
	if !rec.IsSell() {
		return
	}
	if r.Options.EnforceDailyStop && !r.Ledger.CanTrade() {
		r.stopped++
		return
	}

	tr, err := r.simulate(ctx, window[len(window)-1], score, rec)
	if err != nil {
		r.faults++
		log.Error("trade skipped", "time", window[len(window)-1].Time, "err", err)
		return
	}
	log.Debug("trade", "kind", tr.Kind, "level", tr.Level, "outcome", tr.Outcome, "pnl", tr.PnL)
}

func (r *Runner) simulate(ctx context.Context, last market.Bar, score magnet.Score, rec strategy.Recommendation) (tr TradeRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrSimulationFault, p)
		}
	}()

	q := rec.Structure
	if q == nil {
		return tr, fmt.Errorf("%w: %s without a structure", ErrSimulationFault, rec.Action)
	}

	p := r.winProbability(score)
	outcome, pnl := Win, q.MaxProfit
	if r.Rand.Float64() >= p {
		// 0 - x keeps a zero risk from booking as -0.
		outcome, pnl = Loss, 0-q.MaxRisk
	}
	if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
		return tr, fmt.Errorf("%w: pnl %v", ErrSimulationFault, pnl)
	}

	tr = TradeRecord{
		ID:          id.At(last.Time),
		Time:        last.Time,
		Level:       score.Level,
		EntryPrice:  last.Close,
		Kind:        q.Kind,
		PnL:         pnl,
		Outcome:     outcome,
		RiskReward:  q.RiskReward,
		TimeAtLevel: score.TimeAtLevel,
		Contracts:   r.Ledger.SizePosition(*q, p),
	}

	if r.Recorder != nil {
		if err := r.Recorder.RecordTrade(ctx, r.RunID, tr); err != nil {
			return TradeRecord{}, fmt.Errorf("%w: record: %w", ErrSimulationFault, err)
		}
	}

	r.Ledger.Apply(pnl)
	r.trades = append(r.trades, tr)
	return tr, nil
}

func (r *Runner) winProbability(s magnet.Score) float64 {
	if r.Options.WinProbability != nil {
		return r.Options.WinProbability(s)
	}
	return s.TimeAtLevel
}
