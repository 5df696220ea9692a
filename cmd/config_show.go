package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/PolarWolf314/mops/internal/configs"

	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration after defaults, the config file and MOPS_*
environment variables have been applied.

Examples:
  mops config show
  mops config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		config, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if configShowJSON {
			Logger.Debugf("Outputting config as JSON")
			output, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to marshal config to JSON: %w", err)
			}
			fmt.Fprintln(out, string(output))
			return nil
		}

		fmt.Fprintf(out, "# %s\n", configs.ConfigPath())
		if err := toml.NewEncoder(out).Encode(config); err != nil {
			return Logger.ErrorfAndReturn("failed to encode config: %w", err)
		}
		return nil
	},
}
