package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/journal"
)

func newSweepCmd(ro *rootOptions) *cobra.Command {
	var (
		days      int
		count     int
		startSeed int64
		seeds     []int64
		parallel  int
		source    string
		path      string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Backtest the same history under many outcome seeds",
		Long: `Sweep fetches the history once and replays it under each seed, every
run with its own ledger. Runs execute concurrently.

Examples:
  magnet sweep --count 20 --start-seed 1
  magnet sweep --seeds 3,7,11 --parallel 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ro.cfg
			f := cmd.Flags()
			if f.Changed("days") {
				cfg.Backtest.Days = days
			}
			if f.Changed("parallel") {
				cfg.Backtest.Parallel = parallel
			}
			if err := overrideSource(cfg, source, path); err != nil {
				return err
			}
			if len(seeds) == 0 {
				if count <= 0 {
					return fmt.Errorf("--count must be positive")
				}
				for i := 0; i < count; i++ {
					seeds = append(seeds, startSeed+int64(i))
				}
			}
			return runSweep(cmd, ro, seeds)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "number of trading days to replay")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of consecutive seeds")
	cmd.Flags().Int64Var(&startSeed, "start-seed", 1, "first seed when --seeds is not given")
	cmd.Flags().Int64SliceVar(&seeds, "seeds", nil, "explicit seed list")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "concurrent runs (0 is unlimited)")
	cmd.Flags().StringVar(&source, "source", "", "data source: yahoo|synthetic|csv|sqlite|parquet")
	cmd.Flags().StringVar(&path, "path", "", "bar file for csv, sqlite or parquet sources")
	return cmd
}

func runSweep(cmd *cobra.Command, ro *rootOptions, seeds []int64) error {
	ctx := cmd.Context()
	cfg, log := ro.cfg, ro.log

	src, closer, err := cfg.OpenSource(log)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer closer.Close()

	bars, err := src.HistoricalBars(ctx, cfg.Backtest.Days)
	if err != nil {
		return fmt.Errorf("historical data: %w", err)
	}
	shared, err := cfg.Static(bars)
	if err != nil {
		return err
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	var rec backtest.Recorder
	if j != nil {
		defer j.Close()
		rec = journal.Synchronized(j)
	}

	factory := func(seed int64) (*backtest.Runner, error) {
		r, err := cfg.Runner(shared, seed, log)
		if err != nil {
			return nil, err
		}
		r.Recorder = rec
		return r, nil
	}
	rep, err := backtest.Sweep(ctx, factory, seeds, cfg.Backtest.Days, cfg.Backtest.Parallel)
	if err != nil {
		return err
	}

	if j != nil {
		for _, res := range rep.Results {
			run := journal.NewRun(*res.Summary, cfg.Data.Source, cfg.Backtest.Days, res.Seed)
			if err := j.RecordRun(ctx, run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
		}
	}

	return ro.emit(cmd.OutOrStdout(), rep, func(w io.Writer) error {
		printSweep(w, rep)
		return nil
	})
}

func printSweep(w io.Writer, rep *backtest.SweepReport) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Magnet Seed Sweep")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "%-20s %6s %8s %8s %14s\n", "Seed", "Trades", "WinRate", "Edge", "Final")
	for _, r := range rep.Results {
		s := r.Summary
		fmt.Fprintf(w, "%-20d %6d %8s %8s %14.2f\n",
			r.Seed, s.TotalTrades, s.WinRate.Format("%.3f"), s.Edge.Format("%.3f"), s.FinalBalance)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Runs:          %d (%d profitable)\n", len(rep.Results), rep.Profitable)
	fmt.Fprintf(w, "Mean Balance:  $%.2f\n", rep.MeanFinalBalance)
	fmt.Fprintf(w, "Mean Win Rate: %s\n", rep.MeanWinRate.Percent())
	fmt.Fprintf(w, "Mean Edge:     %s\n", rep.MeanEdge.Percent())
	fmt.Fprintf(w, "Worst DD:      $%.2f\n", rep.WorstDrawdown)
}
