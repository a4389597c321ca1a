package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwhitford/ringlead/internal/output"
	"github.com/mwhitford/ringlead/version"
)

var (
	cfgFile      string
	outputFormat string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "ringlead",
	Short: "Sync call center calls from RingCentral into Zoho CRM leads",
	Long: `Ringlead reconciles PBX call logs with CRM leads.

For every inbound call it looks up the caller's phone number in the CRM,
updates the matching lead or creates a new one under a round-robin owner,
attaches a structured call note, and for accepted calls uploads the call
recording.

Two flows are available:
  - sync accepted: accepted inbound calls, with recording attachments
  - sync missed:   missed inbound calls`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ringlead/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debug, "debug", false, "enable debug logging",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
