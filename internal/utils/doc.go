// Package utils provides shared helpers for the mops CLI.
//
// # Files
//
//   - ResolveFiles: expands paths, directories and doublestar globs into
//     SOPS documents
//   - FormatPaths: formats file paths for human-readable output
//   - ExpandHome: expands a leading ~/ in configured key paths
//
// # I/O
//
//   - ReadStdin: reads a document piped on standard input
//
// # Terminal
//
//   - ReadPassphrase, ReadPassphraseFromTTY: hidden passphrase input
//   - PassphrasePrompt: prompt func for encrypted private key files
//   - IsTerminal, IsTTYAvailable: terminal detection
package utils
