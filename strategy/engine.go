package strategy

import (
	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/pricing"
)

// Action is what the engine recommends doing at a magnet.
type Action string

const (
	Wait              Action = "WAIT"
	SellIronButterfly Action = "SELL_IRON_BUTTERFLY"
	SellStrangle      Action = "SELL_STRANGLE"
)

// Confidence grades a sell recommendation.
type Confidence string

const (
	High   Confidence = "HIGH"
	Medium Confidence = "MEDIUM"
)

// Time-at-level thresholds of the selection ladder. Both are exclusive.
const (
	ButterflyThreshold = 0.7
	StrangleThreshold  = 0.5
)

const (
	ReasonNotActive     = "magnet not active"
	ReasonInsufficient  = "insufficient consolidation"
	ReasonNoMagnetFound = "no magnet within tolerance"
)

// Recommendation is either a Wait with a reason or a Sell carrying the
// priced structure.
type Recommendation struct {
	Action     Action          `json:"action"`
	Reason     string          `json:"reason,omitempty"`
	Structure  *StructureQuote `json:"structure,omitempty"`
	Confidence Confidence      `json:"confidence,omitempty"`

	// Probability that each short strike finishes in the money.
	CallITM float64 `json:"call_itm,omitempty"`
	PutITM  float64 `json:"put_itm,omitempty"`
}

// IsSell reports whether the recommendation is to open a structure.
func (r Recommendation) IsSell() bool {
	return r.Action == SellIronButterfly || r.Action == SellStrangle
}

// WaitFor returns a Wait recommendation.
func WaitFor(reason string) Recommendation {
	return Recommendation{Action: Wait, Reason: reason}
}

// ButterflyParams are the fixed premiums used for the high-confidence setup.
type ButterflyParams struct {
	Short    float64 `json:"short" yaml:"short"`
	LongCall float64 `json:"long_call" yaml:"long_call"`
	LongPut  float64 `json:"long_put" yaml:"long_put"`
	Width    float64 `json:"width" yaml:"width"`
}

// DefaultButterfly is the butterfly sold at a strongly held magnet.
var DefaultButterfly = ButterflyParams{Short: 25, LongCall: 12.5, LongPut: 12.5, Width: 25}

// Engine turns magnet scores into recommendations.
type Engine struct {
	Multiplier      float64         // dollars per index point
	Butterfly       ButterflyParams // high-confidence structure
	CallPremium     float64         // strangle call premium, points
	PutPremium      float64         // strangle put premium, points
	StrangleOffset  float64         // short strikes at level +/- offset
	ProtectiveWidth float64         // long strikes at level +/- width
	ExpiryDays      float64         // horizon for ITM probabilities
}

// NewEngine returns an Engine with the default structure parameters.
func NewEngine(multiplier float64) *Engine {
	if multiplier <= 0 {
		multiplier = 50
	}
	return &Engine{
		Multiplier:      multiplier,
		Butterfly:       DefaultButterfly,
		CallPremium:     8,
		PutPremium:      8,
		StrangleOffset:  5,
		ProtectiveWidth: 20,
		ExpiryDays:      1,
	}
}

// IronButterfly prices a butterfly with the engine's multiplier.
func (e *Engine) IronButterfly(strike, short, longCall, longPut, width float64) StructureQuote {
	return PriceIronButterfly(strike, short, longCall, longPut, width, e.Multiplier)
}

// MagneticStrangle prices a strangle with the engine's offset and multiplier.
func (e *Engine) MagneticStrangle(level, callPremium, putPremium, buyCall, buyPut float64) StructureQuote {
	return PriceMagneticStrangle(level, callPremium, putPremium, buyCall, buyPut, e.StrangleOffset, e.Multiplier)
}

// Recommend applies the selection ladder using the engine's strangle
// premiums.
func (e *Engine) Recommend(score magnet.Score, vol float64) Recommendation {
	return e.RecommendWithPremiums(score, vol, e.CallPremium, e.PutPremium)
}

// RecommendWithPremiums applies the selection ladder:
//
//	inactive magnet        -> Wait
//	time-at-level > 0.7    -> Iron Butterfly, HIGH
//	time-at-level > 0.5    -> Magnetic Strangle, MEDIUM
//	otherwise              -> Wait
func (e *Engine) RecommendWithPremiums(score magnet.Score, vol, callPremium, putPremium float64) Recommendation {
	if !score.Active {
		return WaitFor(ReasonNotActive)
	}

	var (
		q      StructureQuote
		action Action
		conf   Confidence
	)
	switch {
	case score.TimeAtLevel > ButterflyThreshold:
		b := e.Butterfly
		q = e.IronButterfly(score.Level, b.Short, b.LongCall, b.LongPut, b.Width)
		action, conf = SellIronButterfly, High
	case score.TimeAtLevel > StrangleThreshold:
		q = e.MagneticStrangle(score.Level, callPremium, putPremium,
			score.Level+e.ProtectiveWidth, score.Level-e.ProtectiveWidth)
		action, conf = SellStrangle, Medium
	default:
		return WaitFor(ReasonInsufficient)
	}

	spot := score.Level + score.Distance
	return Recommendation{
		Action:     action,
		Structure:  &q,
		Confidence: conf,
		CallITM:    pricing.ITMProbability(spot, q.Strikes.ShortCall, e.ExpiryDays, vol, pricing.Call),
		PutITM:     pricing.ITMProbability(spot, q.Strikes.ShortPut, e.ExpiryDays, vol, pricing.Put),
	}
}
