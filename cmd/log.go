package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/PolarWolf314/mops/internal/audit"
	"github.com/PolarWolf314/mops/internal/ui"
	"github.com/PolarWolf314/mops/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit int
	logFile  string
	logJSON  bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "limit to the most recent entries")
	logCmd.Flags().StringVar(&logFile, "file", "", "only show entries for this document path")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logFile = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of decryptions.

Entries are only recorded when [audit] enabled = true is set in the
configuration (or MOPS_AUDIT=true). Entries hold counts and paths, never
values.

Examples:
  mops log                  # View full log
  mops log -n 10            # Last 10 entries
  mops log --file a.json    # One document
  mops log --json           # JSON output`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	config, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := workflows.Log(cmd.Context(), workflows.LogOptions{
		Path:  config.Audit.Path,
		Limit: logLimit,
		File:  logFile,
	})
	if err != nil {
		return Logger.ErrorfAndReturn("%w", err)
	}
	Logger.Debugf("Read %d entries from %s", len(result.Entries), result.Path)

	out := cmd.OutOrStdout()
	if logJSON {
		entries := result.Entries
		if entries == nil {
			entries = []audit.Entry{}
		}
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to marshal entries to JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(result.Entries) == 0 {
		fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" No audit entries in "+ui.Path.Sprint(result.Path))
		if !config.Audit.Enabled {
			fmt.Fprintln(out, ui.Info.Sprint("→")+" Audit logging is disabled. Set "+ui.Code.Sprint("MOPS_AUDIT=true")+" or enable it in the config")
		}
		return nil
	}

	for _, e := range result.Entries {
		printLogEntry(out, e)
	}
	return nil
}

func printLogEntry(w io.Writer, e audit.Entry) {
	mark := ui.Success.Sprint("✓")
	detail := fmt.Sprintf("%d/%d values, %d ciphers", e.Decrypted, e.Values, e.Ciphers)
	switch {
	case e.Error != "":
		mark = ui.Error.Sprint("✗")
		detail = e.Error
	case e.Failures > 0:
		mark = ui.Warning.Sprint("⚠")
		detail += fmt.Sprintf(", %d warnings", e.Failures)
	}
	fmt.Fprintf(w, "%s %s %-8s %s %s %s\n",
		mark, ui.Muted.Sprint(e.Timestamp), e.Operation, e.User, ui.Path.Sprint(e.File), detail)
}
