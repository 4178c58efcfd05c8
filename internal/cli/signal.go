package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

// Signal is the trade recommendation for the current market.
type Signal struct {
	Quote          market.Quote            `json:"quote"`
	Evaluation     Evaluation              `json:"evaluation"`
	Recommendation strategy.Recommendation `json:"recommendation"`
	WinProbability float64                 `json:"win_probability"` // used for sizing
	Sizing         *risk.Sizing            `json:"sizing,omitempty"`
	Check          *risk.Decision          `json:"check,omitempty"`
}

func newSignalCmd(ro *rootOptions) *cobra.Command {
	var (
		source string
		path   string
		vol    float64
		p      float64
	)

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Generate a trade signal from the current market",
		Long: `Signal reads the current quote and today's bars, scores the latest
magnet and asks the strategy engine what to do. Sell signals are sized with
fractional Kelly at win probability --p against a fresh ledger at the
configured balance.

Example:
  magnet signal --vol 0.18 --p 0.7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := ro.cfg, ro.log
			if p < 0 || p > 1 {
				return fmt.Errorf("--p must be in [0, 1]")
			}
			if err := overrideSource(cfg, source, path); err != nil {
				return err
			}
			if cmd.Flags().Changed("vol") {
				cfg.Strategy.Volatility = vol
			}

			src, closer, err := cfg.OpenSource(log)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer closer.Close()

			ctx := cmd.Context()
			quote, err := src.CurrentQuote(ctx)
			if err != nil {
				return fmt.Errorf("current quote: %w", err)
			}
			bars, err := latestBars(ctx, cfg, src)
			if err != nil {
				return err
			}

			sig := Signal{
				Quote:          quote,
				Evaluation:     evaluate(cfg.Detector(), bars, cfg.Backtest.Window),
				WinProbability: p,
			}
			if sig.Evaluation.Score == nil {
				sig.Recommendation = strategy.WaitFor(strategy.ReasonNoMagnetFound)
			} else {
				score := *sig.Evaluation.Score
				sig.Recommendation = cfg.Engine().Recommend(score, cfg.Strategy.Volatility)
				if q := sig.Recommendation.Structure; q != nil {
					ledger := cfg.Ledger(log)
					sz := ledger.Size(*q, p)
					d := ledger.Check(*q, sz.Contracts)
					sig.Sizing, sig.Check = &sz, &d
				}
			}

			return ro.emit(cmd.OutOrStdout(), sig, func(w io.Writer) error {
				printSignal(w, sig)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "data source: yahoo|synthetic|csv|sqlite|parquet")
	cmd.Flags().StringVar(&path, "path", "", "bar file for csv, sqlite or parquet sources")
	cmd.Flags().Float64Var(&vol, "vol", 0.15, "annualised volatility for ITM probabilities")
	cmd.Flags().Float64Var(&p, "p", risk.DefaultWinProbability, "win probability used for sizing")
	return cmd
}

func printSignal(w io.Writer, sig Signal) {
	q := sig.Quote
	fmt.Fprintf(w, "ES:            %.2f\n", q.Price)
	fmt.Fprintf(w, "VIX:           %.2f\n", q.SecondaryIndex)
	fmt.Fprintf(w, "Volume:        %.0f\n", q.Volume)
	fmt.Fprintln(w)

	rec := sig.Recommendation
	if !rec.IsSell() {
		fmt.Fprintf(w, "WAIT: %s\n", rec.Reason)
		return
	}

	fmt.Fprintf(w, "SIGNAL: %s (%s)\n", rec.Action, rec.Confidence)
	printQuote(w, *rec.Structure)
	fmt.Fprintf(w, "Call ITM:      %.1f%%\n", 100*rec.CallITM)
	fmt.Fprintf(w, "Put ITM:       %.1f%%\n", 100*rec.PutITM)
	if sig.Sizing != nil {
		fmt.Fprintf(w, "Contracts:     %d (p %.2f, Kelly %.3f, risk $%.2f)\n",
			sig.Sizing.Contracts, sig.WinProbability, sig.Sizing.FullKelly, sig.Sizing.RiskDollars)
	}
	if sig.Check != nil {
		printDecision(w, *sig.Check)
	}
}

func printQuote(w io.Writer, q strategy.StructureQuote) {
	s := q.Strikes
	fmt.Fprintf(w, "Structure:     %s\n", q.Kind)
	fmt.Fprintf(w, "Strikes:       short %.0f/%.0f long %.0f/%.0f\n", s.ShortPut, s.ShortCall, s.LongPut, s.LongCall)
	fmt.Fprintf(w, "Net Premium:   %.2f pts\n", q.NetPremium)
	fmt.Fprintf(w, "Max Profit:    $%.2f\n", q.MaxProfit)
	fmt.Fprintf(w, "Max Risk:      $%.2f\n", q.MaxRisk)
	fmt.Fprintf(w, "Risk/Reward:   %.2f\n", q.RiskReward)
	fmt.Fprintf(w, "Break-evens:   %.2f / %.2f\n", q.LowerBreakEven, q.UpperBreakEven)
}

func printDecision(w io.Writer, d risk.Decision) {
	if d.Allowed {
		fmt.Fprintf(w, "Risk check:    OK (%.2f%% of balance)\n", 100*d.PlannedRiskPct)
		return
	}
	fmt.Fprintln(w, "Risk check:    BLOCKED")
	for _, v := range d.Violations {
		fmt.Fprintf(w, "  %s: %s\n", v.Code, v.Msg)
	}
}
