package cmd

import (
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/ui"
	"github.com/PolarWolf314/mops/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	configInitForce    bool
	configInitKeyFiles []string
)

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing configuration file")
	configInitCmd.Flags().StringSliceVar(&configInitKeyFiles, "key-file", nil, "private key file to record in key_files (repeatable)")
	ConfigCmd.AddCommand(configInitCmd)
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitForce = false
	configInitKeyFiles = nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")
		Logger.Debugf("Flags: force=%t, key-file=%v", configInitForce, configInitKeyFiles)

		path, err := workflows.InitConfig(cmd.Context(), workflows.InitConfigOptions{
			Force:    configInitForce,
			KeyFiles: configInitKeyFiles,
		})
		if errors.Is(err, kerrors.ErrConfigExists) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warning.Sprint("⚠")+" Configuration already exists at "+ui.Path.Sprint(path))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info.Sprint("→")+" Use "+ui.Flag.Sprint("--force")+" to overwrite it")
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to write configuration: %w", err)
		}

		Logger.Infof("Configuration written to %s", path)
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("✓")+" Configuration written to "+ui.Path.Sprint(path))
		return nil
	},
}
