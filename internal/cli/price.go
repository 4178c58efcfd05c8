package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/pricing"
	"github.com/rustyeddy/magnet/strategy"
)

func newPriceCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price structures and option probabilities",
		Long: `Price quotes the structures the strategy sells and the probability of an
option finishing in the money.

Subcommands:
  itm       - Black-Scholes probability an option finishes ITM
  butterfly - Iron butterfly quote
  strangle  - Magnetic strangle quote

Examples:
  magnet price itm --spot 6702 --strike 6710 --days 1 --vol 0.15 --kind call
  magnet price butterfly --strike 6700 --short 25 --long-call 12.5 --long-put 12.5 --width 25
  magnet price strangle --level 6700 --call 8 --put 8`,
	}
	cmd.AddCommand(newPriceITMCmd(ro), newPriceButterflyCmd(ro), newPriceStrangleCmd(ro))
	return cmd
}

// ITMResult is the output of price itm.
type ITMResult struct {
	Spot        float64            `json:"spot"`
	Strike      float64            `json:"strike"`
	Days        float64            `json:"days"`
	Volatility  float64            `json:"volatility"`
	Kind        pricing.OptionKind `json:"kind"`
	Probability float64            `json:"probability"`
}

func newPriceITMCmd(ro *rootOptions) *cobra.Command {
	var (
		spot, strike, days, vol float64
		kind                    string
	)
	cmd := &cobra.Command{
		Use:   "itm",
		Short: "Probability an option finishes in the money",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := pricing.ParseOptionKind(kind)
			if !ok {
				return fmt.Errorf("unknown option kind %q (want call or put)", kind)
			}
			res := ITMResult{
				Spot: spot, Strike: strike, Days: days, Volatility: vol, Kind: k,
				Probability: pricing.ITMProbability(spot, strike, days, vol, k),
			}
			return ro.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "P(%s %.2f ITM in %g days | spot %.2f, vol %.2f) = %.4f\n",
					res.Kind, res.Strike, res.Days, res.Spot, res.Volatility, res.Probability)
				return err
			})
		},
	}
	cmd.Flags().Float64Var(&spot, "spot", 0, "underlying price (required)")
	cmd.Flags().Float64Var(&strike, "strike", 0, "option strike (required)")
	cmd.Flags().Float64Var(&days, "days", 1, "calendar days to expiry")
	cmd.Flags().Float64Var(&vol, "vol", 0.15, "annualised volatility")
	cmd.Flags().StringVarP(&kind, "kind", "k", "call", "call or put")
	cmd.MarkFlagRequired("spot")
	cmd.MarkFlagRequired("strike")
	return cmd
}

func newPriceButterflyCmd(ro *rootOptions) *cobra.Command {
	var strike, short, longCall, longPut, width float64
	cmd := &cobra.Command{
		Use:   "butterfly",
		Short: "Quote an iron butterfly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ro.cfg.Engine().IronButterfly(strike, short, longCall, longPut, width)
			return emitQuote(cmd, ro, q)
		},
	}
	b := strategy.DefaultButterfly
	cmd.Flags().Float64Var(&strike, "strike", 0, "short strike at the magnet (required)")
	cmd.Flags().Float64Var(&short, "short", b.Short, "premium of each short option")
	cmd.Flags().Float64Var(&longCall, "long-call", b.LongCall, "premium of the long call")
	cmd.Flags().Float64Var(&longPut, "long-put", b.LongPut, "premium of the long put")
	cmd.Flags().Float64Var(&width, "width", b.Width, "wing width, points")
	cmd.MarkFlagRequired("strike")
	return cmd
}

func newPriceStrangleCmd(ro *rootOptions) *cobra.Command {
	var level, call, put, buyCall, buyPut float64
	cmd := &cobra.Command{
		Use:   "strangle",
		Short: "Quote a magnetic strangle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := ro.cfg.Engine()
			f := cmd.Flags()
			if !f.Changed("call") {
				call = e.CallPremium
			}
			if !f.Changed("put") {
				put = e.PutPremium
			}
			if !f.Changed("buy-call") {
				buyCall = level + e.ProtectiveWidth
			}
			if !f.Changed("buy-put") {
				buyPut = level - e.ProtectiveWidth
			}
			return emitQuote(cmd, ro, e.MagneticStrangle(level, call, put, buyCall, buyPut))
		},
	}
	cmd.Flags().Float64Var(&level, "level", 0, "magnet level (required)")
	cmd.Flags().Float64Var(&call, "call", 0, "short call premium (default from config)")
	cmd.Flags().Float64Var(&put, "put", 0, "short put premium (default from config)")
	cmd.Flags().Float64Var(&buyCall, "buy-call", 0, "long call strike (default level + protective width)")
	cmd.Flags().Float64Var(&buyPut, "buy-put", 0, "long put strike (default level - protective width)")
	cmd.MarkFlagRequired("level")
	return cmd
}

func emitQuote(cmd *cobra.Command, ro *rootOptions, q strategy.StructureQuote) error {
	return ro.emit(cmd.OutOrStdout(), q, func(w io.Writer) error {
		printQuote(w, q)
		if !q.HasDefinedRisk() {
			fmt.Fprintln(w, "Warning:       no positive max risk, cannot be sized")
		}
		return nil
	})
}
