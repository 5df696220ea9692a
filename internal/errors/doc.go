// Package errors provides typed error values for mops.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. Structured
// error types carry the failing entry or leaf and unwrap to their sentinel,
// so errors.Is() keeps working after wrapping and joining.
//
// # Error Categories
//
//   - Format errors: malformed documents or encoded values (ErrFormat)
//   - Encoding errors: base64 or UTF-8 decode failures (ErrEncoding)
//   - Backend errors: data key resolution failures (ErrBackendResolution,
//     ErrNoBackends, ErrUnsupportedBackend, EntryError)
//   - Decryption errors: no candidate key authenticated a value
//     (ErrDecryption, LeafError)
//   - CLI errors: file, config and key loading issues
//
// # Usage
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Decrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrUnsupportedBackend) {
//	    // Show user-friendly message
//	}
//
// Recover the failing leaf from a per-leaf error:
//
//	var leafErr *kerrors.LeafError
//	if errors.As(err, &leafErr) {
//	    fmt.Println(leafErr.Path)
//	}
package errors
