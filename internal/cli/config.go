package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/magnet/config"
)

func newConfigCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  magnet config init --output magnet.yaml
  magnet config validate --file magnet.yaml`,
		// The config being written or checked may not load yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ro.setLogger(cmd)
			return nil
		},
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  magnet backtest --config %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "magnet.yaml", "output config file path")

	var file string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(file)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", file)
			fmt.Fprintf(out, "  Account: $%.2f\n", cfg.Account.Balance)
			fmt.Fprintf(out, "  Risk: %.1f%% daily, %.1f%% per trade, %.2f Kelly\n",
				cfg.Risk.MaxDailyLoss*100, cfg.Risk.MaxTradeLoss*100, cfg.Risk.KellyFraction)
			fmt.Fprintf(out, "  Magnets: %v (tolerance %g)\n", cfg.Magnet.Multipliers, cfg.Magnet.Tolerance)
			fmt.Fprintf(out, "  Data: %s\n", cfg.Data.Source)
			journalType := cfg.Journal.Type
			if journalType == "" {
				journalType = "none"
			}
			fmt.Fprintf(out, "  Journal: %s\n", journalType)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&file, "file", "f", "", "path to config file (required)")
	validateCmd.MarkFlagRequired("file")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
