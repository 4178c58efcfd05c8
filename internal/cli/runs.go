package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/backtest"
	"github.com/rustyeddy/magnet/journal"
)

func newRunsCmd(ro *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query backtest runs in the SQLite journal",
		Long: `Query recorded runs and their trades.

Subcommands:
  list  - Most recent runs first
  show  - One run with its trades

Examples:
  magnet runs list --limit 5
  magnet runs show 01JB8Z... --org`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite journal (default journal.db_path)")

	open := func() (*journal.SQLite, error) {
		path := dbPath
		if path == "" {
			path = ro.cfg.Journal.DBPath
		}
		if path == "" {
			return nil, fmt.Errorf("no journal database: set --db or journal.db_path")
		}
		return journal.NewSQLite(path)
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			return ro.emit(cmd.OutOrStdout(), runs, func(w io.Writer) error {
				printRuns(w, runs)
				return nil
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs (0 is all)")

	var org bool
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			ctx := cmd.Context()
			run, err := j.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			trades, err := j.ListTradesByRunID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}

			out := cmd.OutOrStdout()
			if org {
				return journal.OrgReport{Run: run, Notes: orgNotes(run.Summary)}.WriteOrg(out)
			}
			v := struct {
				Run    journal.Run            `json:"run"`
				Trades []backtest.TradeRecord `json:"trades"`
			}{run, trades}
			return ro.emit(out, v, func(w io.Writer) error {
				s := run.Summary
				backtest.Print(w, &s)
				printTrades(w, trades)
				return nil
			})
		},
	}
	show.Flags().BoolVar(&org, "org", false, "print as an Org-mode report")

	cmd.AddCommand(list, show)
	return cmd
}

func printRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	fmt.Fprintf(w, "%-26s %-16s %-10s %4s %6s %8s %14s\n", "Run", "Created", "Source", "Days", "Trades", "Edge", "Final")
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(w, "%-26s %-16s %-10s %4d %6d %8s %14.2f\n",
			s.RunID, r.Created.Local().Format("2006-01-02 15:04"), r.Source, r.Days,
			s.TotalTrades, s.Edge.Format("%.3f"), s.FinalBalance)
	}
}

func printTrades(w io.Writer, trades []backtest.TradeRecord) {
	fmt.Fprintln(w, "Trades")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, t := range trades {
		fmt.Fprintf(w, "%s  %-17s %7.0f  %-4s %10.2f\n",
			t.Time.Format(time.RFC3339), t.Kind, t.Level, t.Outcome, t.PnL)
	}
}
