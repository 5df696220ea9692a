package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/mops/internal/audit"
	"github.com/PolarWolf314/mops/internal/configs"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Path is the audit log to read. Defaults to configs.DefaultAuditPath().
	Path string

	// Limit is the maximum number of most recent entries to return.
	// 0 means no limit.
	Limit int

	// File keeps only entries for this document path.
	File string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Path is the audit log that was read.
	Path string

	// Entries are the filtered audit log entries, oldest first.
	Entries []audit.Entry
}

// Log reads the audit log.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	path := opts.Path
	if path == "" {
		path = configs.DefaultAuditPath()
	}

	entries, err := audit.ReadEntries(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log %s: %w", path, err)
	}

	if opts.File != "" {
		var filtered []audit.Entry
		for _, e := range entries {
			if e.File == opts.File {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return &LogResult{Path: path, Entries: audit.Tail(entries, opts.Limit)}, nil
}
