// Package indicators provides streaming technical indicators over bars.
package indicators

import "github.com/rustyeddy/magnet/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live analysis and backtests.
type Indicator interface {
	// Name returns a stable identifier like "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, 0 until Ready.
	Value() float64
}

// Run feeds bars to ind and returns its final value.
func Run(ind Indicator, bars []market.Bar) float64 {
	for _, b := range bars {
		ind.Update(b)
	}
	return ind.Value()
}
