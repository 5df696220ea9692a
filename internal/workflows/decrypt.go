package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/mops/internal/audit"
	"github.com/PolarWolf314/mops/internal/configs"
	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/keyservice"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/PolarWolf314/mops/internal/utils"
)

// StdinPath names a document read from standard input.
const StdinPath = "-"

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// FilePatterns specifies files, directories or globs to decrypt.
	FilePatterns []string

	// Stdin holds a document read from standard input. When set,
	// FilePatterns is ignored.
	Stdin []byte

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	// Config supplies policy, concurrency, keys and audit settings.
	// Defaults to configs.Default().
	Config *configs.Config

	// Connect overrides the key vault chain built from Config.
	Connect keyservice.ConnectFunc

	// Passphrase prompts for encrypted private keys. Defaults to reading
	// from the controlling terminal.
	Passphrase PassphraseFunc
}

// FileResult is the outcome of decrypting one document.
type FileResult struct {
	// Path is the document path, or StdinPath.
	Path string

	// Document is the parsed document; nil if parsing failed.
	Document *sops.Document

	// Ciphers is the resolved cipher set; nil if resolution failed.
	Ciphers *keyservice.CipherSet

	// Values is the decryption result; nil if decryption did not run.
	Values *sops.Result

	// Err is the error that stopped this document, if any.
	Err error
}

// Warnings returns the entry and leaf failures that did not stop the
// document.
func (f *FileResult) Warnings() []error {
	var warnings []error
	if f.Ciphers != nil {
		warnings = append(warnings, f.Ciphers.Failures...)
	}
	if f.Values != nil {
		for _, failure := range f.Values.Failures {
			warnings = append(warnings, failure)
		}
	}
	return warnings
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// Files holds one result per document, in argument order.
	Files []*FileResult
}

// Err joins the errors of every document that failed.
func (r *DecryptResult) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of documents that could not be decrypted.
func (r *DecryptResult) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Decrypt decrypts SOPS documents.
//
// Each document is parsed, its key vault entries are resolved to candidate
// ciphers and every leaf is decrypted. A document that fails is recorded in
// its FileResult and the next one is processed, unless fail-fast is set.
//
// Returns ErrNoFilesFound if no documents match the specified patterns.
// Returns ErrInvalidConfig if the configured policy is unknown.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	config := opts.Config
	if config == nil {
		config = configs.Default()
	}

	policy, err := keyservice.ParsePolicy(config.Decrypt.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidConfig, err)
	}

	paths, err := resolveDocuments(opts.FilePatterns, opts.Stdin, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	connect := opts.Connect
	if connect == nil {
		connect, err = Connector(config, opts.Passphrase)
		if err != nil {
			return nil, err
		}
	}

	resolver := &keyservice.Resolver{
		Connect:     connect,
		Policy:      policy,
		Concurrency: config.Decrypt.Concurrency,
	}
	decryptOpts := sops.Options{
		Concurrency: config.Decrypt.Concurrency,
		FailFast:    config.Decrypt.FailFast,
	}

	result := &DecryptResult{}
	for _, path := range paths {
		file := decryptFile(ctx, path, opts.Stdin, resolver, decryptOpts)
		result.Files = append(result.Files, file)

		if config.Audit.Enabled {
			audit.Log(config.Audit.Path, auditEntry(file))
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if file.Err != nil && config.Decrypt.FailFast {
			return result, fmt.Errorf("%s: %w", path, file.Err)
		}
	}

	return result, nil
}

func decryptFile(ctx context.Context, path string, stdin []byte, resolver *keyservice.Resolver, opts sops.Options) *FileResult {
	file := &FileResult{Path: path}

	doc, err := readDocument(path, stdin)
	if err != nil {
		file.Err = err
		return file
	}
	file.Document = doc

	set, err := resolver.Resolve(ctx, &doc.Metadata)
	if err != nil {
		file.Err = err
		return file
	}
	file.Ciphers = set

	values, err := sops.Decrypt(ctx, doc, set.Ciphers, opts)
	if err != nil {
		file.Err = err
		return file
	}
	file.Values = values

	return file
}

func resolveDocuments(patterns []string, stdin []byte, baseDir string) ([]string, error) {
	if stdin != nil {
		return []string{StdinPath}, nil
	}
	if len(patterns) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}
	return utils.ResolveFiles(patterns, baseDir)
}

func readDocument(path string, stdin []byte) (*sops.Document, error) {
	data := stdin
	if path != StdinPath {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return sops.Parse(data)
}

func auditEntry(file *FileResult) audit.Entry {
	entry := audit.New("decrypt")
	entry.File = file.Path
	if file.Document != nil {
		for _, slot := range file.Document.Metadata.Slots() {
			if slot.Kind != sops.SlotUnconfigured {
				entry.Backends = append(entry.Backends, slot.Name)
			}
		}
	}
	if file.Ciphers != nil {
		entry.Entries = file.Ciphers.Entries
		entry.Ciphers = len(file.Ciphers.Ciphers)
	}
	if file.Values != nil {
		entry.Values = file.Values.Total
		entry.Decrypted = file.Values.Decrypted()
	}
	entry.Failures = len(file.Warnings())
	if file.Err != nil {
		entry.Error = file.Err.Error()
	}
	return entry
}
