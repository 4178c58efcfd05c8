package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/market/data"
)

func newDataCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Import and export bar data",
		Long: `Move bars between CSV, SQLite and Parquet files, or save what a source
serves so later backtests can replay it offline. The output format follows
the file extension: .csv, .parquet, or .db/.sqlite.

Examples:
  magnet data import --in es-5m.csv --out es.db
  magnet data fetch --source yahoo --days 30 --out es-30d.parquet`,
	}
	cmd.AddCommand(newDataImportCmd(ro), newDataFetchCmd(ro))
	return cmd
}

func newDataImportCmd(ro *rootOptions) *cobra.Command {
	var in, out, symbol string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert a bar file to another format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bars, err := readBars(in)
			if err != nil {
				return err
			}
			if err := writeBars(cmd.Context(), out, symbol, bars); err != nil {
				return err
			}
			ro.log.Info("bars imported", "from", in, "to", out, "bars", len(bars))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d bars to %s\n", len(bars), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "input bar file (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output bar file (required)")
	cmd.Flags().StringVar(&symbol, "symbol", "ES=F", "symbol stored with the bars")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newDataFetchCmd(ro *rootOptions) *cobra.Command {
	var (
		days   int
		out    string
		source string
		path   string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Save the bars a source serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ro.cfg
			if err := overrideSource(cfg, source, path); err != nil {
				return err
			}
			src, closer, err := cfg.OpenSource(ro.log)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer closer.Close()

			bars, err := src.HistoricalBars(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("historical data: %w", err)
			}
			if len(bars) == 0 {
				return fmt.Errorf("%w: source returned no bars", market.ErrDataUnavailable)
			}
			if err := writeBars(cmd.Context(), out, cfg.Data.Symbol, bars); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d bars to %s\n", len(bars), out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "trading days to fetch")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output bar file (required)")
	cmd.Flags().StringVar(&source, "source", "", "data source: yahoo|synthetic|csv|sqlite|parquet")
	cmd.Flags().StringVar(&path, "path", "", "bar file for csv, sqlite or parquet sources")
	cmd.MarkFlagRequired("out")
	return cmd
}

func barFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv", nil
	case ".parquet":
		return "parquet", nil
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite", nil
	}
	return "", fmt.Errorf("unknown bar file type %q (want .csv, .parquet, .db or .sqlite)", path)
}

func readBars(path string) ([]market.Bar, error) {
	format, err := barFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return data.ReadCSV(f)
	case "parquet":
		return data.ReadParquet(path)
	}
	return nil, fmt.Errorf("import reads csv or parquet files, got %s", path)
}

func writeBars(ctx context.Context, path, symbol string, bars []market.Bar) error {
	format, err := barFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case "csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := data.WriteCSV(f, bars); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case "parquet":
		return data.WriteParquet(path, symbol, bars)
	default:
		s, err := data.OpenSQLite(path, symbol)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.WriteBars(ctx, bars)
	}
}
