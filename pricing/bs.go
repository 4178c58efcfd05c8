package pricing

import (
	"math"
	"strings"
)

// OptionKind selects the call or put side of a probability.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// ParseOptionKind accepts "call"/"c" and "put"/"p" in any case.
func ParseOptionKind(s string) (OptionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, true
	case "put", "p":
		return Put, true
	}
	return "", false
}

// ITMProbability estimates the risk-neutral probability that an option
// finishes in the money, N(d2) for calls and N(-d2) for puts, with a zero
// rate.
//
// Parameters:
//   - spot: price of the underlying future
//   - strike: option strike
//   - days: calendar days to expiry
//   - vol: annualised volatility as a decimal (0.15 = 15%)
//
// Degenerate inputs (zero or negative spot, strike, days or volatility)
// return 0.5 rather than an error.
func ITMProbability(spot, strike, days, vol float64, kind OptionKind) float64 {
	if vol <= 0 || spot <= 0 || strike <= 0 || days <= 0 {
		return 0.5
	}

	t := days / 365.0
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + 0.5*vol*vol*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	if kind == Put {
		return normCDF(-d2)
	}
	return normCDF(d2)
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}
