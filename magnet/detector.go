// Package magnet finds round-number price levels ("magnets") and scores how
// strongly price is consolidating around them.
package magnet

import (
	"errors"
	"math"

	"github.com/rustyeddy/magnet/market"
)

var (
	// ErrEmptyWindow is returned when there are no bars to evaluate.
	ErrEmptyWindow = errors.New("magnet: empty window")

	// ErrNoMagnet is returned when the last close is farther than the
	// tolerance from every magnet level.
	ErrNoMagnet = errors.New("magnet: price out of tolerance")
)

// ActiveThreshold is the time-at-level a score must exceed to be active.
const ActiveThreshold = 0.6

// Default detector parameters.
const (
	DefaultTolerance = 3.0
	DefaultLookback  = 15
)

// DefaultMultipliers are the round-number steps, in evaluation order.
var DefaultMultipliers = []float64{50, 100}

// Score is the result of evaluating one window against its nearest magnet.
type Score struct {
	Level         float64 `json:"level"`
	Distance      float64 `json:"distance"` // last close minus level
	TimeAtLevel   float64 `json:"time_at_level"`
	VolumeAtLevel float64 `json:"volume_at_level"`
	Active        bool    `json:"active"`
	Bars          int     `json:"bars"`
	Close         float64 `json:"close"`
}

// Detector locates magnets. The zero value is not usable; use New.
type Detector struct {
	Multipliers []float64
	Tolerance   float64
	Lookback    int
}

// New returns a Detector. Empty multipliers and non-positive tolerance or
// lookback fall back to the defaults.
func New(multipliers []float64, tolerance float64, lookback int) *Detector {
	if len(multipliers) == 0 {
		multipliers = DefaultMultipliers
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Detector{
		Multipliers: append([]float64(nil), multipliers...),
		Tolerance:   tolerance,
		Lookback:    lookback,
	}
}

// NearestLevel returns the multiple of any configured multiplier closest to
// price and the absolute distance to it. Candidates are the two multiples
// bracketing the rounded price, collected multiplier by multiplier; on a tie
// the first candidate wins, so lower multipliers take precedence.
func (d *Detector) NearestLevel(price float64) (level, distance float64) {
	rounded := math.RoundToEven(price)

	distance = math.Inf(1)
	for _, m := range d.Multipliers {
		if m <= 0 {
			continue
		}
		base := math.Floor(rounded/m) * m
		for _, c := range [2]float64{base, base + m} {
			if dist := math.Abs(price - c); dist < distance {
				level, distance = c, dist
			}
		}
	}
	return level, distance
}

// Evaluate scores the window against the magnet nearest its last close.
// Only the trailing Lookback bars are counted; a shorter window is used
// whole.
func (d *Detector) Evaluate(window []market.Bar) (Score, error) {
	if len(window) == 0 {
		return Score{}, ErrEmptyWindow
	}

	last := window[len(window)-1].Close
	level, distance := d.NearestLevel(last)
	if math.IsInf(distance, 1) || distance > d.Tolerance {
		return Score{}, ErrNoMagnet
	}

	recent := market.LastBars(window, d.Lookback)
	inRange := 0
	volume := 0.0
	for _, b := range recent {
		if d.within(b.Close, level) {
			inRange++
			volume += b.Volume
		}
	}

	tal := float64(inRange) / float64(len(recent))
	return Score{
		Level:         level,
		Distance:      last - level,
		TimeAtLevel:   tal,
		VolumeAtLevel: volume,
		Active:        tal > ActiveThreshold,
		Bars:          len(recent),
		Close:         last,
	}, nil
}

func (d *Detector) within(price, level float64) bool {
	return math.Abs(price-level) <= d.Tolerance
}
