// Package workflows provides high-level orchestration for mops commands.
//
// Workflows tie the document parser (sops), key resolution (keyservice),
// configuration (configs) and the audit trail (audit) into complete
// user-facing operations, independent of CLI concerns like flag parsing,
// spinners and colored output.
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// # Available Workflows
//
//   - Decrypt: decrypts SOPS documents, one FileResult per document
//   - Render: writes decrypted values as json, yaml or dotenv
//   - Status: reports metadata and backend slots without keys
//   - Log: reads the audit log
//   - InitConfig: writes a default config file
//
// # Error Handling
//
// Workflows return sentinel errors from internal/errors, wrapped with
// context. Failures scoped to one document, key vault entry or value are
// recorded in the result instead of aborting the whole run:
//
//	result, err := workflows.Decrypt(ctx, opts)
//	if err != nil {
//	    // setup failed or fail-fast stopped the run
//	}
//	for _, f := range result.Files {
//	    if f.Err != nil { ... }
//	    for _, w := range f.Warnings() { ... }
//	}
package workflows
