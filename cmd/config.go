package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mops configuration",
	Long: `Provides commands for managing the user configuration.

The configuration selects the key resolution policy, output format,
concurrency, local private keys and audit logging. Environment variables
prefixed with MOPS_ override the file.

Examples:
  # Write a default configuration file
  mops config init

  # Write one that uses a local private key
  mops config init --key-file ~/.ssh/sops_rsa

  # Show the effective configuration
  mops config show`,
}
