// Package logger provides leveled logging for mops commands.
//
// Every line goes to stderr (or Logger.Out) so that decrypted documents
// written to stdout can be piped safely. Values and keys are never logged.
//
// # Verbosity Levels
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages
//
// Warnings and errors are always shown.
//
// # Usage
//
//	log := logger.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("resolved %d of %d data keys", n, total)
package logger
