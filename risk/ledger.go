package risk

import (
	"log/slog"
)

// Ledger owns one AccountState and is the only thing allowed to change it.
// It is not safe for concurrent use: every simulation run gets its own.
type Ledger struct {
	state AccountState
	log   *slog.Logger
}

// NewLedger opens a ledger at initialBalance. A nil logger uses
// slog.Default().
func NewLedger(initialBalance float64, limits Limits, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{
		state: AccountState{
			InitialBalance: initialBalance,
			CurrentBalance: initialBalance,
			Limits:         limits,
		},
		log: log,
	}
	log.Debug("ledger opened", "balance", initialBalance,
		"max_daily_loss", limits.MaxDailyLoss, "max_trade_loss", limits.MaxTradeLoss,
		"kelly_fraction", limits.KellyFraction)
	return l
}

// State returns a copy of the account state.
func (l *Ledger) State() AccountState {
	return l.state
}

// DailyLossLimit is the dollar loss that stops trading for the day.
func (l *Ledger) DailyLossLimit() float64 {
	return l.state.Limits.MaxDailyLoss * l.state.InitialBalance
}

// ResetDailyLoss starts a new trading day.
func (l *Ledger) ResetDailyLoss() {
	l.state.DailyLoss = 0
	l.log.Debug("daily loss reset", "balance", l.state.CurrentBalance)
}

// CanTrade is false once the day's losses reach the daily limit, and stays
// false until the next ResetDailyLoss whatever the balance does.
func (l *Ledger) CanTrade() bool {
	return l.state.DailyLoss < l.DailyLossLimit()
}

// Apply books a realised PnL. Only losses count toward the daily loss.
func (l *Ledger) Apply(pnl float64) {
	open := l.CanTrade()

	l.state.CurrentBalance += pnl
	if pnl < 0 {
		l.state.DailyLoss += -pnl
	}
	l.log.Debug("pnl applied", "pnl", pnl, "balance", l.state.CurrentBalance,
		"daily_loss", l.state.DailyLoss)

	if open && !l.CanTrade() {
		l.log.Warn("daily loss limit reached", "daily_loss", l.state.DailyLoss,
			"limit", l.DailyLossLimit())
	}
}

// Snapshot reads the current risk metrics without changing anything.
func (l *Ledger) Snapshot() Snapshot {
	limit := l.DailyLossLimit()
	return Snapshot{
		CurrentBalance:     l.state.CurrentBalance,
		DailyLoss:          l.state.DailyLoss,
		DailyLossLimit:     limit,
		RemainingDailyRisk: limit - l.state.DailyLoss,
		CanTrade:           l.CanTrade(),
	}
}
