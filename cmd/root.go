package cmd

import (
	"context"
	"fmt"

	logger "github.com/PolarWolf314/mops/internal/logging"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "mops",
		Short: "mops - decrypt SOPS documents with Azure Key Vault or local RSA keys",
		Long: `mops reads SOPS-encrypted JSON and YAML documents, recovers the data key
from the azure_kv entries of the sops metadata block and decrypts every value.

Data keys are unwrapped by Azure Key Vault (RSA-OAEP-256) or by local RSA
private keys configured in ~/.config/mops/config.toml.

Usage:
  mops <command> [flags]

Available Commands:
  decrypt    Decrypt documents to json, yaml or dotenv
  status     Show metadata and backends without decrypting
  log        Show the audit log
  config     Manage configuration

Run 'mops help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			banner := figure.NewColorFigure("mops", "small", "cyan", true)
			fmt.Fprintln(cmd.OutOrStdout(), banner.ColorString())
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'mops --help' to see available commands.")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetDecryptCommandState()
	resetStatusCommandState()
	resetLogCommandState()
	resetConfigInitState()
	resetConfigShowState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
