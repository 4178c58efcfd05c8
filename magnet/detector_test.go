package magnet

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/magnet/market"
)

func window(closes ...float64) []market.Bar {
	start := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNearestLevel(t *testing.T) {
	t.Parallel()

	d := New(nil, 0, 0)

	tests := []struct {
		name      string
		price     float64
		wantLevel float64
		wantDist  float64
	}{
		{"below fifty", 6712, 6700, 12},
		{"above fifty", 6741, 6750, 9},
		{"on level", 6800, 6800, 0},
		{"fraction", 6749.6, 6750, 0.4},
		{"tie prefers first candidate", 6725, 6700, 25},
		{"tie prefers fifty over hundred", 6775, 6750, 25},
		{"small price", 12, 0, 12},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			level, dist := d.NearestLevel(tt.price)
			assert.Equal(t, tt.wantLevel, level)
			assert.InDelta(t, tt.wantDist, dist, 1e-9)
		})
	}
}

func TestNearestLevel_Properties(t *testing.T) {
	t.Parallel()

	d := New([]float64{50, 100}, 3, 15)
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		price := 1000 + r.Float64()*9000
		level, dist := d.NearestLevel(price)

		assert.GreaterOrEqual(t, dist, 0.0)
		assert.InDelta(t, math.Abs(price-level), dist, 1e-9)
		assert.Zero(t, math.Mod(level, 50), "level %v is not a magnet", level)
		assert.LessOrEqual(t, dist, 25.5)
	}
}

func TestEvaluate_FullConsolidation(t *testing.T) {
	t.Parallel()

	d := New(nil, 3, 15)
	s, err := d.Evaluate(window(repeat(6701, 20)...))
	require.NoError(t, err)

	assert.Equal(t, 6700.0, s.Level)
	assert.Equal(t, 1.0, s.Distance)
	assert.Equal(t, 1.0, s.TimeAtLevel)
	assert.Equal(t, 1500.0, s.VolumeAtLevel)
	assert.Equal(t, 15, s.Bars)
	assert.True(t, s.Active)
}

func TestEvaluate_SignedDistance(t *testing.T) {
	t.Parallel()

	s, err := New(nil, 3, 15).Evaluate(window(6698))
	require.NoError(t, err)
	assert.Equal(t, -2.0, s.Distance)
}

func TestEvaluate_ShortWindowUsesWholeWindow(t *testing.T) {
	t.Parallel()

	closes := append(repeat(6720, 3), repeat(6702, 7)...)
	s, err := New(nil, 3, 15).Evaluate(window(closes...))
	require.NoError(t, err)

	assert.Equal(t, 10, s.Bars)
	assert.InDelta(t, 0.7, s.TimeAtLevel, 1e-12)
	assert.Equal(t, 700.0, s.VolumeAtLevel)
	assert.True(t, s.Active)
}

func TestEvaluate_LookbackLargerThanWindow(t *testing.T) {
	t.Parallel()

	s, err := New(nil, 3, 500).Evaluate(window(6700, 6700))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Bars)
	assert.Equal(t, 1.0, s.TimeAtLevel)
}

func TestEvaluate_ActiveBoundaryIsExclusive(t *testing.T) {
	t.Parallel()

	d := New(nil, 3, 15)

	// 9 of 15 bars at the level: exactly 0.6.
	s, err := d.Evaluate(window(append(repeat(6720, 6), repeat(6700, 9)...)...))
	require.NoError(t, err)
	assert.Equal(t, 0.6, s.TimeAtLevel)
	assert.False(t, s.Active)

	s, err = d.Evaluate(window(append(repeat(6720, 5), repeat(6700, 10)...)...))
	require.NoError(t, err)
	assert.True(t, s.Active)
}

func TestEvaluate_OnlyTrailingLookbackCounts(t *testing.T) {
	t.Parallel()

	// Five early bars at the level fall outside the 15-bar lookback.
	closes := append(repeat(6700, 5), repeat(6710, 14)...)
	closes = append(closes, 6702)
	s, err := New(nil, 3, 15).Evaluate(window(closes...))
	require.NoError(t, err)

	assert.InDelta(t, 1.0/15.0, s.TimeAtLevel, 1e-12)
	assert.False(t, s.Active)
}

func TestEvaluate_ToleranceIsInclusive(t *testing.T) {
	t.Parallel()

	s, err := New(nil, 3, 15).Evaluate(window(6703, 6697, 6703))
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.TimeAtLevel)
}

func TestEvaluate_NoScore(t *testing.T) {
	t.Parallel()

	d := New(nil, 3, 15)

	_, err := d.Evaluate(nil)
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, err = d.Evaluate(window(6700, 6700, 6710))
	assert.ErrorIs(t, err, ErrNoMagnet)
}

func TestEvaluate_TimeAtLevelInRange(t *testing.T) {
	t.Parallel()

	d := New(nil, 3, 15)
	r := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		closes := make([]float64, 1+r.Intn(30))
		for j := range closes {
			closes[j] = 6700 + r.Float64()*8 - 4
		}
		s, err := d.Evaluate(window(closes...))
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMagnet)
			continue
		}
		assert.GreaterOrEqual(t, s.TimeAtLevel, 0.0)
		assert.LessOrEqual(t, s.TimeAtLevel, 1.0)
		assert.Equal(t, s.TimeAtLevel > ActiveThreshold, s.Active)
	}
}
