package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/config"
	"github.com/rustyeddy/magnet/journal"
	"github.com/rustyeddy/magnet/market"
)

func newBacktestCmd(ro *rootOptions) *cobra.Command {
	var (
		days   int
		seed   int64
		source string
		path   string
		orgOut string
		daily  bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recent history through the magnet strategy",
		Long: `Backtest walks the last N days of bars window by window. Whenever the
strategy recommends selling a structure, the trade is won or lost with the
magnet's time-at-level as the win probability, and booked in a fresh ledger.

Trades and the run summary are written to the configured journal.

Examples:
  magnet backtest --days 30 --seed 42
  magnet backtest --source csv --path data/es-5m.csv --org report.org
  magnet backtest --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ro.cfg
			f := cmd.Flags()
			if f.Changed("days") {
				cfg.Backtest.Days = days
			}
			if f.Changed("seed") {
				cfg.Backtest.Seed = seed
			}
			if f.Changed("daily-stop") {
				cfg.Backtest.EnforceDailyStop = daily
			}
			if err := overrideSource(cfg, source, path); err != nil {
				return err
			}
			return runBacktest(cmd, ro, orgOut)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "number of trading days to replay")
	cmd.Flags().Int64Var(&seed, "seed", 0, "outcome RNG seed (0 picks one and reports it)")
	cmd.Flags().StringVar(&source, "source", "", "data source: yahoo|synthetic|csv|sqlite|parquet")
	cmd.Flags().StringVar(&path, "path", "", "bar file for csv, sqlite or parquet sources")
	cmd.Flags().StringVar(&orgOut, "org", "", "also write an Org-mode report to this file")
	cmd.Flags().BoolVar(&daily, "daily-stop", false, "skip trades once the daily loss limit is hit")
	return cmd
}

// overrideSource applies --source/--path and revalidates.
func overrideSource(cfg *config.Config, source, path string) error {
	if source == "" && path == "" {
		return nil
	}
	if source != "" {
		cfg.Data.Source = source
	}
	if path != "" {
		cfg.Data.Path = path
	}
	return cfg.Validate()
}

func runBacktest(cmd *cobra.Command, ro *rootOptions, orgOut string) error {
	ctx := cmd.Context()
	cfg, log := ro.cfg, ro.log
	out := cmd.OutOrStdout()

	src, closer, err := cfg.OpenSource(log)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer closer.Close()

	seed := resolveSeed(cfg.Backtest.Seed)
	r, err := cfg.Runner(src, seed, log)
	if err != nil {
		return err
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
		r.Recorder = j
	}

	s, err := r.Run(ctx, cfg.Backtest.Days)
	if err != nil {
		if errors.Is(err, market.ErrDataUnavailable) && !ro.JSON {
			backtest.Print(out, nil)
		}
		return err
	}

	run := journal.NewRun(*s, cfg.Data.Source, cfg.Backtest.Days, seed)
	if j != nil {
		if err := j.RecordRun(ctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if orgOut != "" {
		if err := writeOrg(orgOut, cfg, run); err != nil {
			return err
		}
	}

	return ro.emit(out, run, func(w io.Writer) error {
		backtest.Print(w, s)
		fmt.Fprintf(w, "Seed:          %d\n", seed)
		return nil
	})
}

func writeOrg(path string, cfg *config.Config, run journal.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create org report: %w", err)
	}
	defer f.Close()

	rep := journal.OrgReport{
		Run: run,
		Params: map[string]string{
			"source":     run.Source,
			"days":       strconv.Itoa(run.Days),
			"seed":       strconv.FormatInt(run.Seed, 10),
			"window":     strconv.Itoa(cfg.Backtest.Window),
			"tolerance":  strconv.FormatFloat(cfg.Magnet.Tolerance, 'g', -1, 64),
			"volatility": strconv.FormatFloat(cfg.Strategy.Volatility, 'g', -1, 64),
			"daily_stop": strconv.FormatBool(cfg.Backtest.EnforceDailyStop),
		},
		Notes: orgNotes(run.Summary),
	}
	if err := rep.WriteOrg(f); err != nil {
		return fmt.Errorf("write org report: %w", err)
	}
	return f.Close()
}

func orgNotes(s backtest.Summary) []string {
	var notes []string
	switch s.EdgeGrade {
	case backtest.GradeCasino:
		notes = append(notes, "Edge is casino level (> 15%).")
	case backtest.GradeMild:
		notes = append(notes, "Mild edge.")
	case backtest.GradeNegative:
		notes = append(notes, "Negative edge.")
	default:
		notes = append(notes, "Edge undefined: no losing trades or no trades at all.")
	}
	if s.Faults > 0 {
		notes = append(notes, fmt.Sprintf("%d steps faulted and were skipped.", s.Faults))
	}
	if s.Stopped > 0 {
		notes = append(notes, fmt.Sprintf("%d sells skipped by the daily stop.", s.Stopped))
	}
	notes = append(notes, "Win probability is time-at-level, not a calibrated model.")
	return notes
}
