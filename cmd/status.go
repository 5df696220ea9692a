package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/PolarWolf314/mops/internal/ui"
	"github.com/PolarWolf314/mops/internal/utils"
	"github.com/PolarWolf314/mops/internal/workflows"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

// statusSlot is the JSON form of a configured backend slot.
type statusSlot struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Entries int    `json:"entries"`
}

// statusDocument is the JSON form of a document status.
type statusDocument struct {
	Path        string       `json:"path"`
	Version     string       `json:"version,omitempty"`
	Modified    string       `json:"lastmodified,omitempty"`
	Backends    []statusSlot `json:"backends,omitempty"`
	Values      int          `json:"values"`
	Encrypted   int          `json:"encrypted"`
	Decryptable bool         `json:"decryptable"`
	Error       string       `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status [file|dir|glob|-]...",
	Short: "Show metadata and key backends of SOPS documents",
	Long: `Shows what each SOPS document contains without decrypting it: the SOPS
version, last modification time, configured key backends and how many
values are encrypted.

A document is decryptable when it has azure_kv entries. Other backends
(kms, gcp_kms, hc_vault, age, pgp) are listed but not supported.

Use --json for machine-readable output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		opts := workflows.StatusOptions{FilePatterns: args}
		if len(args) == 1 && args[0] == workflows.StdinPath {
			data, err := utils.ReadStdin()
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read stdin: %w", err)
			}
			opts.Stdin = data
		}

		result, err := workflows.Status(cmd.Context(), opts)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to inspect documents: %w", err)
		}
		Logger.Debugf("Inspected %d documents", len(result.Documents))

		if statusJSONOutput {
			return outputStatusJSON(cmd.OutOrStdout(), result)
		}

		printStatus(cmd.OutOrStdout(), result)
		return nil
	},
}

func configuredSlots(slots []sops.BackendSlot) []sops.BackendSlot {
	var configured []sops.BackendSlot
	for _, slot := range slots {
		if slot.Kind != sops.SlotUnconfigured {
			configured = append(configured, slot)
		}
	}
	return configured
}

func outputStatusJSON(w io.Writer, result *workflows.StatusResult) error {
	docs := make([]statusDocument, 0, len(result.Documents))
	for _, d := range result.Documents {
		doc := statusDocument{
			Path:        d.Path,
			Version:     d.Version,
			Values:      d.Leaves,
			Encrypted:   d.Encrypted,
			Decryptable: d.Decryptable(),
		}
		if !d.Modified.IsZero() {
			doc.Modified = d.Modified.Format(time.RFC3339)
		}
		for _, slot := range configuredSlots(d.Slots) {
			doc.Backends = append(doc.Backends, statusSlot{Name: slot.Name, Kind: slot.Kind.String(), Entries: slot.Len()})
		}
		if d.Err != nil {
			doc.Error = d.Err.Error()
		}
		docs = append(docs, doc)
	}

	output, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("failed to marshal status to JSON: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func printStatus(w io.Writer, result *workflows.StatusResult) {
	for i, d := range result.Documents {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if d.Err != nil {
			fmt.Fprintln(w, ui.Error.Sprint("✗")+" "+ui.Path.Sprint(d.Path))
			fmt.Fprintf(w, "  %s\n", ui.Muted.Sprint(d.Err.Error()))
			continue
		}

		mark := ui.Success.Sprint("✓")
		if !d.Decryptable() {
			mark = ui.Warning.Sprint("⚠")
		}
		fmt.Fprintln(w, mark+" "+ui.Path.Sprint(d.Path))
		fmt.Fprintf(w, "  %-14s %s\n", "SOPS version:", d.Version)
		fmt.Fprintf(w, "  %-14s %s\n", "Modified:", d.Modified.Format(time.RFC3339))
		fmt.Fprintf(w, "  %-14s %d of %d\n", "Encrypted:", d.Encrypted, d.Leaves)

		slots := configuredSlots(d.Slots)
		if len(slots) == 0 {
			fmt.Fprintf(w, "  %-14s %s\n", "Backends:", ui.Warning.Sprint("none"))
			continue
		}
		var names []string
		for _, slot := range slots {
			name := fmt.Sprintf("%s (%d)", slot.Name, slot.Len())
			if slot.Kind == sops.SlotUnsupported {
				name = ui.Muted.Sprint(name + " unsupported")
			} else {
				name = ui.Highlight.Sprint(name)
			}
			names = append(names, name)
		}
		fmt.Fprintf(w, "  %-14s %s\n", "Backends:", strings.Join(names, ", "))
	}
}
