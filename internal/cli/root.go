// Package cli wires the magnet commands together.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/config"
	"github.com/rustyeddy/magnet/internal/logging"
)

// rootOptions holds the persistent flags and what PersistentPreRunE builds
// from them.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	JSON       bool

	cfg *config.Config
	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "magnet",
		Short: "ES round-number magnet research and backtesting",
		Long: `Magnet looks for ES futures consolidating around round-number levels
("magnets") and simulates selling option premium there.

It provides tools for:
  - Scoring the current magnet and generating a trade signal
  - Backtesting the strategy over recent history, one seed or many
  - Pricing iron butterflies and magnetic strangles
  - Fractional Kelly sizing against daily and per-trade loss limits
  - Importing bar data into SQLite or Parquet`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&ro.ConfigPath, "config", "", "Path to config file, YAML or JSON (optional)")
	cmd.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().StringVar(&ro.LogFormat, "log-format", "", "Log format: text|json (overrides config)")
	cmd.PersistentFlags().BoolVar(&ro.JSON, "json", false, "Print results as JSON")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ro.load(cmd)
	}

	cmd.AddCommand(
		newBacktestCmd(ro),
		newSweepCmd(ro),
		newEvaluateCmd(ro),
		newSignalCmd(ro),
		newRiskCmd(ro),
		newPriceCmd(ro),
		newDataCmd(ro),
		newRunsCmd(ro),
		newConfigCmd(ro),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config and sets up logging. Flags win over the file.
func (ro *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(ro.ConfigPath)
	if err != nil {
		return err
	}
	if ro.LogLevel != "" {
		cfg.Logging.Level = ro.LogLevel
	}
	if ro.LogFormat != "" {
		cfg.Logging.Format = ro.LogFormat
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}

	ro.cfg = cfg
	ro.setLogger(cmd)
	return nil
}

func (ro *rootOptions) setLogger(cmd *cobra.Command) {
	level, format := "info", "text"
	if ro.cfg != nil {
		level, format = ro.cfg.Logging.Level, ro.cfg.Logging.Format
	}
	ro.log = logging.NewWriter(cmd.ErrOrStderr(), level, format)
	logging.SetDefault(ro.log)
}

// emit prints v as JSON under --json, otherwise calls text.
func (ro *rootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	if ro.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

// resolveSeed replaces the clock seed 0 with a concrete one so the run can
// be repeated.
func resolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
