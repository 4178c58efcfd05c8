package risk

import (
	"math"

	"github.com/rustyeddy/magnet/strategy"
)

// Sizing explains how a contract count was reached.
type Sizing struct {
	FullKelly   float64 `json:"full_kelly"`
	Fraction    float64 `json:"fraction"`     // scaled Kelly fraction of balance
	RiskDollars float64 `json:"risk_dollars"` // after the per-trade cap
	Capped      bool    `json:"capped"`
	Contracts   int     `json:"contracts"`
}

// SizePosition returns how many contracts of q to trade at win probability
// p. See Size for the steps.
func (l *Ledger) SizePosition(q strategy.StructureQuote, p float64) int {
	return l.Size(q, p).Contracts
}

// Size converts fractional Kelly into contracts:
//
//	kelly    = (p(R+1) - 1) / R, 0 when R <= 0
//	dollars  = kelly * KellyFraction * CurrentBalance
//	dollars  = min(dollars, MaxTradeLoss * CurrentBalance)
//	contracts = floor(dollars / MaxRisk), 0 when MaxRisk <= 0, never negative
func (l *Ledger) Size(q strategy.StructureQuote, p float64) Sizing {
	var s Sizing
	if q.RiskReward <= 0 {
		return s
	}

	balance := l.state.CurrentBalance
	s.FullKelly = Kelly(p, q.RiskReward)
	s.Fraction = s.FullKelly * l.state.Limits.KellyFraction
	s.RiskDollars = s.Fraction * balance

	maxRisk := l.state.Limits.MaxTradeLoss * balance
	if s.RiskDollars > maxRisk {
		s.RiskDollars = maxRisk
		s.Capped = true
	}

	if q.MaxRisk <= 0 || s.RiskDollars <= 0 {
		return s
	}
	s.Contracts = int(math.Floor(s.RiskDollars / q.MaxRisk))
	if s.Contracts < 0 {
		s.Contracts = 0
	}

	l.log.Debug("position sized", "kelly", s.FullKelly, "fraction", s.Fraction,
		"risk_dollars", s.RiskDollars, "contracts", s.Contracts)
	return s
}
