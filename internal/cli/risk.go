package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

// RiskReport is the ledger view printed by the risk command.
type RiskReport struct {
	Limits   risk.Limits              `json:"limits"`
	Snapshot risk.Snapshot            `json:"snapshot"`
	Quote    *strategy.StructureQuote `json:"quote,omitempty"`
	Sizing   *risk.Sizing             `json:"sizing,omitempty"`
	Check    *risk.Decision           `json:"check,omitempty"`
}

func newRiskCmd(ro *rootOptions) *cobra.Command {
	var (
		balance float64
		pnls    []float64
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show risk metrics for the configured account",
		Long: `Risk opens a ledger at the configured balance, books any --pnl values in
order and prints the daily loss, its limit and whether trading may continue.

Examples:
  magnet risk
  magnet risk --pnl=-1500,-1600
  magnet risk size --kind strangle --level 6700 --p 0.65`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("balance") {
				ro.cfg.Account.Balance = balance
			}
			rep, _ := riskReport(ro, pnls)
			return ro.emit(cmd.OutOrStdout(), rep, func(w io.Writer) error {
				printRisk(w, rep)
				return nil
			})
		},
	}
	cmd.PersistentFlags().Float64Var(&balance, "balance", 100000, "account balance")
	cmd.PersistentFlags().Float64SliceVar(&pnls, "pnl", nil, "realised PnL values to book first")

	cmd.AddCommand(newRiskSizeCmd(ro, &balance, &pnls))
	return cmd
}

func newRiskSizeCmd(ro *rootOptions, balance *float64, pnls *[]float64) *cobra.Command {
	var (
		kind      string
		level     float64
		p         float64
		contracts int
	)

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Size and check a structure at a magnet level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("balance") {
				ro.cfg.Account.Balance = *balance
			}
			if p < 0 || p > 1 {
				return fmt.Errorf("--p must be in [0, 1]")
			}
			q, err := structureAt(ro.cfg.Engine(), kind, level)
			if err != nil {
				return err
			}

			rep, ledger := riskReport(ro, *pnls)
			sz := ledger.Size(q, p)
			n := sz.Contracts
			if contracts > 0 {
				n = contracts
			}
			d := ledger.Check(q, n)
			rep.Quote, rep.Sizing, rep.Check = &q, &sz, &d

			return ro.emit(cmd.OutOrStdout(), rep, func(w io.Writer) error {
				printRisk(w, rep)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "butterfly", "structure: butterfly|strangle")
	cmd.Flags().Float64Var(&level, "level", 6700, "magnet level")
	cmd.Flags().Float64Var(&p, "p", risk.DefaultWinProbability, "win probability")
	cmd.Flags().IntVar(&contracts, "contracts", 0, "check this many contracts instead of the Kelly size")
	return cmd
}

func riskReport(ro *rootOptions, pnls []float64) (RiskReport, *risk.Ledger) {
	ledger := ro.cfg.Ledger(ro.log)
	for _, pnl := range pnls {
		ledger.Apply(pnl)
	}
	return RiskReport{Limits: ro.cfg.Risk, Snapshot: ledger.Snapshot()}, ledger
}

// structureAt prices the engine's butterfly or strangle at level.
func structureAt(e *strategy.Engine, kind string, level float64) (strategy.StructureQuote, error) {
	switch kind {
	case "butterfly", "fly":
		b := e.Butterfly
		return e.IronButterfly(level, b.Short, b.LongCall, b.LongPut, b.Width), nil
	case "strangle":
		return e.MagneticStrangle(level, e.CallPremium, e.PutPremium,
			level+e.ProtectiveWidth, level-e.ProtectiveWidth), nil
	}
	return strategy.StructureQuote{}, fmt.Errorf("unknown structure %q (want butterfly or strangle)", kind)
}

func printRisk(w io.Writer, rep RiskReport) {
	s := rep.Snapshot
	fmt.Fprintf(w, "Balance:          $%.2f\n", s.CurrentBalance)
	fmt.Fprintf(w, "Daily Loss:       $%.2f\n", s.DailyLoss)
	fmt.Fprintf(w, "Daily Loss Limit: $%.2f (%.1f%%)\n", s.DailyLossLimit, 100*rep.Limits.MaxDailyLoss)
	fmt.Fprintf(w, "Remaining Risk:   $%.2f\n", s.RemainingDailyRisk)
	if s.CanTrade {
		fmt.Fprintln(w, "Status:           can trade")
	} else {
		fmt.Fprintln(w, "Status:           DAILY LIMIT, stop trading")
	}

	if rep.Quote != nil {
		fmt.Fprintln(w)
		printQuote(w, *rep.Quote)
	}
	if rep.Sizing != nil {
		z := rep.Sizing
		capped := ""
		if z.Capped {
			capped = ", capped"
		}
		fmt.Fprintf(w, "Kelly:         %.4f x %.2f = %.4f\n", z.FullKelly, rep.Limits.KellyFraction, z.Fraction)
		fmt.Fprintf(w, "Risk Dollars:  $%.2f%s\n", z.RiskDollars, capped)
		fmt.Fprintf(w, "Contracts:     %d\n", z.Contracts)
	}
	if rep.Check != nil {
		printDecision(w, *rep.Check)
	}
}
