package risk

import (
	"fmt"

	"github.com/rustyeddy/magnet/strategy"
)

type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Decision is the outcome of a pre-trade check.
type Decision struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`

	Contracts      int     `json:"contracts"`
	PlannedRisk    float64 `json:"planned_risk"`
	PlannedRiskPct float64 `json:"planned_risk_pct"`
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Check evaluates opening contracts of q against the ledger's limits.
func (l *Ledger) Check(q strategy.StructureQuote, contracts int) Decision {
	d := Decision{Allowed: true, Contracts: contracts}

	if !l.CanTrade() {
		d.add("DAILY_LOSS_LIMIT",
			fmt.Sprintf("daily loss %.2f >= limit %.2f", l.state.DailyLoss, l.DailyLossLimit()))
	}
	if !q.HasDefinedRisk() {
		d.add("NO_RISK_DEFINED", fmt.Sprintf("%s max risk %.2f is not positive", q.Kind, q.MaxRisk))
		return d
	}
	if contracts <= 0 {
		d.add("NO_CONTRACTS", "contracts must be positive")
		return d
	}

	d.PlannedRisk = q.MaxRisk * float64(contracts)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, l.state.CurrentBalance)
	if d.PlannedRiskPct > l.state.Limits.MaxTradeLoss {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*l.state.Limits.MaxTradeLoss))
	}
	return d
}
