package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/m2tx/margin_agent/internal/config"
	"github.com/m2tx/margin_agent/internal/logging"
	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand once PersistentPreRunE ran.
type cli struct {
	verbose bool
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "marginagent",
		Short: "Margin analyst agent for HVAC construction projects",
		Long: `marginagent answers questions about project margin by letting a hosted
language model call the project backend for portfolio, dossier, labor,
change order and RFI data.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			c.cfg = cfg
			c.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(c.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd(c))
	rootCmd.AddCommand(newAskCmd(c))
	rootCmd.AddCommand(newToolsCmd(c))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
