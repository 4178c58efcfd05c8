package data

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/magnet/market"
)

// Synthetic generates intraday bars that wander between round-number
// levels and get pulled toward the nearest one. The same Seed and End
// always produce the same bars.
type Synthetic struct {
	Seed       int64
	Start      float64       // opening price of the first day
	Step       float64       // magnet spacing
	Pull       float64       // fraction of the gap to the level closed per bar
	Noise      float64       // per-bar standard deviation, points
	JumpProb   float64       // chance per bar of a move toward the next level
	Interval   time.Duration // bar spacing
	BarsPerDay int
	Open       time.Duration // session open after midnight UTC
	End        time.Time     // last generated day; zero is today
}

// NewSynthetic returns a generator with ES-like defaults: 5 minute bars
// from 14:30 UTC, 78 per day, around 6700.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{
		Seed:       seed,
		Start:      6700,
		Step:       50,
		Pull:       0.15,
		Noise:      1.5,
		JumpProb:   0.02,
		Interval:   5 * time.Minute,
		BarsPerDay: 78,
		Open:       14*time.Hour + 30*time.Minute,
	}
}

func (s *Synthetic) CurrentQuote(ctx context.Context) (market.Quote, error) {
	bars, err := s.HistoricalBars(ctx, 1)
	if err != nil {
		return market.Quote{}, err
	}
	return quoteFromBars(bars, market.DefaultSecondaryIndex)
}

// HistoricalBars generates days weekdays ending at End.
func (s *Synthetic) HistoricalBars(ctx context.Context, days int) ([]market.Bar, error) {
	if days <= 0 {
		return nil, nil
	}
	end := s.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := end; len(dates) < days; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
	}

	rng := rand.New(rand.NewSource(s.Seed))
	price := s.Start
	bars := make([]market.Bar, 0, days*s.BarsPerDay)
	for i := len(dates) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		open := dates[i].Add(s.Open)
		for j := 0; j < s.BarsPerDay; j++ {
			prev := price
			price = s.next(rng, price)
			level := math.Round(price/s.Step) * s.Step
			vol := 500 + float64(rng.Intn(1500))
			if math.Abs(price-level) <= 3 {
				vol *= 1.5
			}
			bars = append(bars, market.Bar{
				Time:   open.Add(time.Duration(j) * s.Interval),
				Open:   prev,
				High:   math.Max(prev, price) + tick(math.Abs(rng.NormFloat64())),
				Low:    math.Min(prev, price) - tick(math.Abs(rng.NormFloat64())),
				Close:  price,
				Volume: math.Round(vol),
			})
		}
	}
	return bars, nil
}

func (s *Synthetic) next(rng *rand.Rand, price float64) float64 {
	level := math.Round(price/s.Step) * s.Step
	move := s.Pull*(level-price) + s.Noise*rng.NormFloat64()
	if rng.Float64() < s.JumpProb {
		move += math.Copysign(s.Step/2, rng.NormFloat64())
	}
	return tick(price + move)
}

// tick rounds to the 0.25 point ES tick.
func tick(v float64) float64 {
	return math.Round(v*4) / 4
}
