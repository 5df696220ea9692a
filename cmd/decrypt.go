package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PolarWolf314/mops/internal/configs"
	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/ui"
	"github.com/PolarWolf314/mops/internal/utils"
	"github.com/PolarWolf314/mops/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	decryptFormat      formatValue
	decryptOutput      string
	decryptStrict      bool
	decryptFailFast    bool
	decryptKeyFiles    []string
	decryptConcurrency int
	decryptNoAzure     bool
)

func init() {
	decryptCmd.Flags().VarP(&decryptFormat, "format", "f", "output format: json, yaml or dotenv (default from config)")
	decryptCmd.Flags().StringVarP(&decryptOutput, "output", "o", "", "write decrypted values to this file instead of stdout")
	decryptCmd.Flags().BoolVar(&decryptStrict, "strict", false, "fail a document if any key vault entry cannot be resolved")
	decryptCmd.Flags().BoolVar(&decryptFailFast, "fail-fast", false, "stop at the first value or document that cannot be decrypted")
	decryptCmd.Flags().StringSliceVarP(&decryptKeyFiles, "key-file", "k", nil, "RSA private key to try for every key vault entry (repeatable)")
	decryptCmd.Flags().IntVar(&decryptConcurrency, "concurrency", 0, "maximum parallel key unwraps and value decryptions (default from config)")
	decryptCmd.Flags().BoolVar(&decryptNoAzure, "no-azure", false, "use local private keys only")
}

func resetDecryptCommandState() {
	decryptFormat = ""
	decryptOutput = ""
	decryptStrict = false
	decryptFailFast = false
	decryptKeyFiles = nil
	decryptConcurrency = 0
	decryptNoAzure = false
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [file|dir|glob|-]...",
	Short: "Decrypt SOPS documents",
	Long: `Decrypts SOPS-encrypted JSON or YAML documents and prints their values.

The data key is recovered from the azure_kv entries of the sops metadata
block, using local private keys first and Azure Key Vault second. Values
that cannot be decrypted are reported and skipped unless --fail-fast is
set. Use "-" to read a document from stdin.

Examples:
  mops decrypt secrets.enc.json                  # Print as JSON
  mops decrypt -f dotenv secrets.enc.yaml > .env # Write a dotenv file
  mops decrypt "deploy/**/*.yaml"                # All SOPS documents under deploy/
  mops decrypt -k ~/.ssh/sops_rsa --no-azure a.json
  cat secrets.enc.json | mops decrypt -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")
		Logger.Debugf("Args: %v", args)

		config, err := loadConfig()
		if err != nil {
			return err
		}
		applyDecryptFlags(config)
		Logger.Debugf("Effective settings: policy=%s, concurrency=%d, format=%s, fail-fast=%t, azure=%t",
			config.Decrypt.Policy, config.Decrypt.Concurrency, config.Decrypt.Format, config.Decrypt.FailFast, !config.Azure.Disabled)

		opts := workflows.DecryptOptions{
			FilePatterns: args,
			Config:       config,
		}
		if len(args) == 1 && args[0] == workflows.StdinPath {
			Logger.Debugf("Reading document from stdin")
			data, err := utils.ReadStdin()
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read stdin: %w", err)
			}
			opts.Stdin = data
		}

		spinner, cleanup := startSpinner(cmd.ErrOrStderr(), "Decrypting documents...")
		defer cleanup()

		result, runErr := workflows.Decrypt(cmd.Context(), opts)
		if result == nil {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " " + runErr.Error()
			return runErr
		}

		for _, file := range result.Files {
			for _, w := range file.Warnings() {
				var leafErr *kerrors.LeafError
				if errors.As(w, &leafErr) {
					Logger.Warnf("%s: value %s: %v", file.Path, ui.Key.Sprint(leafErr.Path), leafErr.Err)
					continue
				}
				Logger.Warnf("%s: %v", file.Path, w)
			}
		}

		if runErr != nil {
			spinner.FinalMSG = decryptSummary(result)
			return runErr
		}

		if err := writeDecrypted(cmd.OutOrStdout(), config.Decrypt.Format, result.Files); err != nil {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " " + err.Error()
			return err
		}

		spinner.FinalMSG = decryptSummary(result)

		if failed := result.Failed(); failed > 0 {
			return fmt.Errorf("%s documents could not be decrypted", ui.Ratio(failed, len(result.Files)))
		}
		return nil
	},
}

// applyDecryptFlags overrides config with flags that were set.
func applyDecryptFlags(config *configs.Config) {
	if decryptFormat != "" {
		config.Decrypt.Format = string(decryptFormat)
	}
	if decryptStrict {
		config.Decrypt.Policy = "strict"
	}
	if decryptFailFast {
		config.Decrypt.FailFast = true
	}
	if decryptConcurrency > 0 {
		config.Decrypt.Concurrency = decryptConcurrency
	}
	if len(decryptKeyFiles) > 0 {
		config.KeyFiles = append(config.KeyFiles, decryptKeyFiles...)
	}
	if decryptNoAzure {
		config.Azure.Disabled = true
	}
}

func writeDecrypted(stdout io.Writer, format string, files []*workflows.FileResult) error {
	if decryptOutput == "" {
		return workflows.Render(stdout, format, files)
	}

	Logger.Debugf("Writing decrypted values to %s", decryptOutput)
	f, err := os.OpenFile(decryptOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", decryptOutput, err)
	}
	if err := workflows.Render(f, format, files); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func decryptSummary(result *workflows.DecryptResult) string {
	var b strings.Builder
	for _, file := range result.Files {
		if file.Err != nil {
			b.WriteString(ui.Error.Sprint("✗") + " " + ui.Path.Sprint(file.Path) + ": " + file.Err.Error() + "\n")
			continue
		}

		values := file.Values
		decrypted := ui.Ratio(values.Decrypted(), values.Total-clearValues(file))
		if n := len(file.Warnings()); n > 0 {
			b.WriteString(ui.Warning.Sprint("⚠") + " " + ui.Path.Sprint(file.Path) + ": decrypted " + decrypted +
				" values, " + ui.Warning.Sprintf("%d warnings", n) + "\n")
			continue
		}
		b.WriteString(ui.Success.Sprint("✓") + " " + ui.Path.Sprint(file.Path) + ": decrypted " + decrypted + " values\n")
	}
	if decryptOutput != "" && result.Failed() < len(result.Files) {
		b.WriteString(ui.Info.Sprint("→") + " Values written to " + ui.Path.Sprint(decryptOutput) + "\n")
	}
	return b.String()
}

// clearValues counts the values that were stored in clear.
func clearValues(file *workflows.FileResult) int {
	n := 0
	for _, v := range file.Values.Values {
		if !v.Encrypted {
			n++
		}
	}
	return n
}
