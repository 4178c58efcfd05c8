package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/config"
	"github.com/rustyeddy/magnet/indicators"
	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
)

const atrPeriod = 14

// LevelVolume is one row of a volume profile.
type LevelVolume struct {
	Level  float64 `json:"level"`
	Volume float64 `json:"volume"`
}

// Evaluation is the magnet analysis of the latest window.
type Evaluation struct {
	Time            time.Time     `json:"time"`
	Close           float64       `json:"close"`
	NearestLevel    float64       `json:"nearest_level"`
	NearestDistance float64       `json:"nearest_distance"`
	Score           *magnet.Score `json:"score,omitempty"`
	Reason          string        `json:"reason,omitempty"` // why there is no score
	Profile         []LevelVolume `json:"profile"`
	MemoryIndex     float64       `json:"memory_index"`
	LiquidityScore  float64       `json:"liquidity_score"`
}

func newEvaluateCmd(ro *rootOptions) *cobra.Command {
	var source, path string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the magnet nearest the latest price",
		Long: `Evaluate takes the last window of today's bars and reports the nearest
magnet, how much of the lookback price spent within tolerance of it, and the
volume traded around it and its neighbours.

Example:
  magnet evaluate --source synthetic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := overrideSource(ro.cfg, source, path); err != nil {
				return err
			}
			src, closer, err := ro.cfg.OpenSource(ro.log)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer closer.Close()

			bars, err := latestBars(cmd.Context(), ro.cfg, src)
			if err != nil {
				return err
			}
			ev := evaluate(ro.cfg.Detector(), bars, ro.cfg.Backtest.Window)
			return ro.emit(cmd.OutOrStdout(), ev, func(w io.Writer) error {
				printEvaluation(w, ev)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "data source: yahoo|synthetic|csv|sqlite|parquet")
	cmd.Flags().StringVar(&path, "path", "", "bar file for csv, sqlite or parquet sources")
	return cmd
}

// latestBars returns the last session's bars, requiring at least one full
// window.
func latestBars(ctx context.Context, cfg *config.Config, src market.Source) ([]market.Bar, error) {
	bars, err := src.HistoricalBars(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", market.ErrDataUnavailable, err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bars, err = cfg.Backtest.Session.Filter(bars, loc)
	if err != nil {
		return nil, err
	}
	if len(bars) < cfg.Backtest.Window {
		return nil, fmt.Errorf("insufficient data: %d bars, need %d", len(bars), cfg.Backtest.Window)
	}
	return bars, nil
}

func evaluate(d *magnet.Detector, bars []market.Bar, window int) Evaluation {
	w := market.LastBars(bars, window)
	last := w[len(w)-1]

	ev := Evaluation{Time: last.Time, Close: last.Close}
	ev.NearestLevel, ev.NearestDistance = d.NearestLevel(last.Close)

	score, err := d.Evaluate(w)
	switch {
	case errors.Is(err, magnet.ErrNoMagnet):
		ev.Reason = "no magnet within tolerance"
	case err != nil:
		ev.Reason = err.Error()
	default:
		ev.Score = &score
	}

	step := slices.Min(d.Multipliers)
	levels := []float64{ev.NearestLevel - step, ev.NearestLevel, ev.NearestLevel + step}
	profile := d.VolumeProfile(w, levels)
	for _, l := range levels {
		ev.Profile = append(ev.Profile, LevelVolume{Level: l, Volume: profile[l]})
	}

	// A window too short for an ATR leaves the index at 0.
	opening, _ := d.NearestLevel(bars[0].Close)
	atr, _ := indicators.ATRFunc(w, min(atrPeriod, len(w)-1))
	ev.MemoryIndex = magnet.MarketMemoryIndex(last.Close, opening, atr)

	avg, _ := indicators.VolumeAverage(w, len(w))
	up := len(w) < 2 || last.Close >= w[len(w)-2].Close
	ev.LiquidityScore = magnet.VolumeLiquidityScore(last.Volume, avg, up)
	return ev
}

func printEvaluation(w io.Writer, ev Evaluation) {
	fmt.Fprintf(w, "Time:          %s\n", ev.Time.Format(time.RFC3339))
	fmt.Fprintf(w, "Close:         %.2f\n", ev.Close)
	fmt.Fprintf(w, "Nearest level: %.0f (%.2f away)\n", ev.NearestLevel, ev.NearestDistance)
	if ev.Score == nil {
		fmt.Fprintf(w, "No score:      %s\n", ev.Reason)
	} else {
		s := ev.Score
		state := "inactive"
		if s.Active {
			state = "ACTIVE"
		}
		fmt.Fprintf(w, "Magnet:        %.0f %s\n", s.Level, state)
		fmt.Fprintf(w, "Distance:      %+.2f\n", s.Distance)
		fmt.Fprintf(w, "Time at level: %.1f%% of %d bars\n", 100*s.TimeAtLevel, s.Bars)
		fmt.Fprintf(w, "Volume:        %.0f\n", s.VolumeAtLevel)
	}
	fmt.Fprintf(w, "Memory index:  %.2f ATR\n", ev.MemoryIndex)
	fmt.Fprintf(w, "Liquidity:     %+.2f\n", ev.LiquidityScore)
	fmt.Fprintln(w, "Volume profile:")
	for _, p := range ev.Profile {
		fmt.Fprintf(w, "  %8.0f  %12.0f\n", p.Level, p.Volume)
	}
}
