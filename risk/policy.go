package risk

import "fmt"

// Limits are the account risk rules, as fractions of a balance.
type Limits struct {
	MaxDailyLoss  float64 `json:"max_daily_loss" yaml:"max_daily_loss"` // 0.03 of initial balance
	MaxTradeLoss  float64 `json:"max_trade_loss" yaml:"max_trade_loss"` // 0.01 of current balance
	KellyFraction float64 `json:"kelly_fraction" yaml:"kelly_fraction"` // 0.25 = quarter Kelly
}

// DefaultWinProbability sizes live signals when no calibrated estimate is
// given.
const DefaultWinProbability = 0.68

// DefaultLimits returns the standard 3% daily / 1% per trade / quarter Kelly.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyLoss:  0.03,
		MaxTradeLoss:  0.01,
		KellyFraction: 0.25,
	}
}

// Validate checks every limit is a fraction in (0, 1].
func (l Limits) Validate() error {
	if l.MaxDailyLoss <= 0 || l.MaxDailyLoss > 1 {
		return fmt.Errorf("max_daily_loss must be in (0, 1], got %v", l.MaxDailyLoss)
	}
	if l.MaxTradeLoss <= 0 || l.MaxTradeLoss > 1 {
		return fmt.Errorf("max_trade_loss must be in (0, 1], got %v", l.MaxTradeLoss)
	}
	if l.KellyFraction <= 0 || l.KellyFraction > 1 {
		return fmt.Errorf("kelly_fraction must be in (0, 1], got %v", l.KellyFraction)
	}
	return nil
}

// AccountState is the running account. Only a Ledger mutates it.
type AccountState struct {
	InitialBalance float64 `json:"initial_balance"`
	CurrentBalance float64 `json:"current_balance"`
	DailyLoss      float64 `json:"daily_loss"`
	Limits         Limits  `json:"limits"`
}

// Snapshot is a read-only view of the ledger for display.
type Snapshot struct {
	CurrentBalance     float64 `json:"current_balance"`
	DailyLoss          float64 `json:"daily_loss"`
	DailyLossLimit     float64 `json:"daily_loss_limit"`
	RemainingDailyRisk float64 `json:"remaining_daily_risk"` // negative once breached
	CanTrade           bool    `json:"can_trade"`
}
