package workflows

import (
	"context"
	"time"

	"github.com/PolarWolf314/mops/internal/sops"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// FilePatterns specifies files, directories or globs to inspect.
	FilePatterns []string

	// Stdin holds a document read from standard input.
	Stdin []byte

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string
}

// DocumentStatus describes one document without decrypting it.
type DocumentStatus struct {
	Path string

	// Version is the SOPS version that wrote the document.
	Version string

	// Modified is the last modification time recorded in the metadata.
	Modified time.Time

	// Slots lists every backend slot, configured or not.
	Slots []sops.BackendSlot

	// Leaves is the number of scalar values in the document.
	Leaves int

	// Encrypted is the number of values that need a data key.
	Encrypted int

	// Err is set if the document could not be parsed.
	Err error
}

// Decryptable reports whether the document has key vault entries mops can
// resolve.
func (s *DocumentStatus) Decryptable() bool {
	for _, slot := range s.Slots {
		if slot.Kind == sops.SlotKeyVault {
			return true
		}
	}
	return false
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	Documents []*DocumentStatus
}

// Status inspects the metadata of SOPS documents. It needs no keys.
//
// Returns ErrNoFilesFound if no documents match the specified patterns.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	paths, err := resolveDocuments(opts.FilePatterns, opts.Stdin, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status := &DocumentStatus{Path: path}
		result.Documents = append(result.Documents, status)

		doc, err := readDocument(path, opts.Stdin)
		if err != nil {
			status.Err = err
			continue
		}

		status.Version = doc.Metadata.Version
		status.Modified = doc.Metadata.Modified
		status.Slots = doc.Metadata.Slots()
		for _, leaf := range doc.Leaves() {
			status.Leaves++
			if leaf.Encrypted {
				status.Encrypted++
			}
		}
	}

	return result, nil
}
