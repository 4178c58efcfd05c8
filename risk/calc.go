package risk

import "math"

// Kelly returns the full-Kelly fraction (p(R+1) - 1) / R for win
// probability p and reward/risk ratio R. It is 0 when R is not positive and
// may be negative when the bet has no edge.
func Kelly(p, rr float64) float64 {
	if rr <= 0 {
		return 0
	}
	return (p*(rr+1) - 1) / rr
}

// RiskPct is the planned risk as a fraction of balance.
func RiskPct(plannedRisk, balance float64) float64 {
	if balance <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / balance
}
