// Package strategy prices the premium-selling structures traded around a
// magnet and decides which one, if any, to sell.
package strategy

import "math"

// Kind names an options structure.
type Kind string

const (
	IronButterfly    Kind = "IRON_BUTTERFLY"
	MagneticStrangle Kind = "MAGNETIC_STRANGLE"
)

// Strikes holds the four legs of a defined-risk structure.
type Strikes struct {
	ShortCall float64 `json:"short_call"`
	ShortPut  float64 `json:"short_put"`
	LongCall  float64 `json:"long_call"`
	LongPut   float64 `json:"long_put"`
}

// StructureQuote is a priced structure. Premiums and strikes are in index
// points; MaxProfit and MaxRisk are in dollars (points times multiplier).
type StructureQuote struct {
	Kind           Kind    `json:"kind"`
	Strikes        Strikes `json:"strikes"`
	NetPremium     float64 `json:"net_premium"`
	MaxProfit      float64 `json:"max_profit"`
	MaxRisk        float64 `json:"max_risk"`
	RiskReward     float64 `json:"risk_reward"`
	UpperBreakEven float64 `json:"upper_break_even"`
	LowerBreakEven float64 `json:"lower_break_even"`
}

// HasDefinedRisk reports whether the quote carries a positive max risk.
// Quotes without one have a zero RiskReward and cannot be sized.
func (q StructureQuote) HasDefinedRisk() bool {
	return q.MaxRisk > 0
}

// PriceIronButterfly sells a call and a put at strike and buys wings width
// points away.
func PriceIronButterfly(strike, short, longCall, longPut, width, multiplier float64) StructureQuote {
	net := 2*short - (longCall + longPut)
	maxProfit := net * multiplier
	maxRisk := (width - net) * multiplier

	return StructureQuote{
		Kind: IronButterfly,
		Strikes: Strikes{
			ShortCall: strike,
			ShortPut:  strike,
			LongCall:  strike + width,
			LongPut:   strike - width,
		},
		NetPremium:     net,
		MaxProfit:      maxProfit,
		MaxRisk:        maxRisk,
		RiskReward:     riskReward(maxProfit, maxRisk),
		UpperBreakEven: strike + net,
		LowerBreakEven: strike - net,
	}
}

// PriceMagneticStrangle sells a call and a put offset points either side of
// the magnet, protected by the given long strikes. Max risk is the wider of
// the two spreads.
func PriceMagneticStrangle(level, callPremium, putPremium, buyCall, buyPut, offset, multiplier float64) StructureQuote {
	sellCall := level + offset
	sellPut := level - offset

	net := callPremium + putPremium
	maxRisk := math.Max(math.Abs(buyCall-sellCall), math.Abs(buyPut-sellPut)) * multiplier
	maxProfit := net * multiplier

	return StructureQuote{
		Kind: MagneticStrangle,
		Strikes: Strikes{
			ShortCall: sellCall,
			ShortPut:  sellPut,
			LongCall:  buyCall,
			LongPut:   buyPut,
		},
		NetPremium:     net,
		MaxProfit:      maxProfit,
		MaxRisk:        maxRisk,
		RiskReward:     riskReward(maxProfit, maxRisk),
		UpperBreakEven: sellCall + net,
		LowerBreakEven: sellPut - net,
	}
}

func riskReward(maxProfit, maxRisk float64) float64 {
	if maxRisk <= 0 {
		return 0
	}
	return maxProfit / maxRisk
}
