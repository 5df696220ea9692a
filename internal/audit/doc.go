// Package audit records decryption activity.
//
// When enabled in the config, every document mops decrypts produces one
// entry in a JSON Lines file (by default ~/.local/share/mops/audit.jsonl).
// Entries carry counts and paths only. Secret values and key material are
// never written.
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Session UUID and local user name
//   - Operation name
//   - Document path, backends and resolution/decryption counts
//
// # Usage
//
//	entry := audit.New("decrypt")
//	entry.File = path
//	audit.Log(config.Audit.Path, entry)
//
// Audit logging is best-effort. Operations never fail because the log could
// not be written. ReadEntries skips malformed lines left by partial writes.
package audit
