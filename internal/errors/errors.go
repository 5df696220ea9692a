package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Document errors indicate the input could not be understood.
var (
	// ErrFormat indicates a malformed document or encoded value.
	ErrFormat = errors.New("malformed sops data")

	// ErrEncoding indicates a base64 or UTF-8 decoding failure.
	ErrEncoding = errors.New("invalid encoding")
)

// Backend errors indicate the data key could not be recovered.
var (
	// ErrBackendResolution indicates no usable data key could be recovered.
	ErrBackendResolution = errors.New("failed to resolve data key")

	// ErrNoBackends indicates the document has no key management entries at all.
	ErrNoBackends = fmt.Errorf("%w: no key management backends configured", ErrBackendResolution)

	// ErrUnsupportedBackend indicates only unsupported backends are configured.
	ErrUnsupportedBackend = errors.New("unsupported key management backend")
)

// Cryptographic errors indicate failures while opening a value.
var (
	// ErrDecryption indicates no candidate key authenticated a value.
	ErrDecryption = errors.New("no candidate key authenticated this value")

	// ErrInvalidKeyLength indicates recovered key material is not 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid data key length")
)

// Key errors indicate issues with local private keys.
var (
	// ErrKeyNotFound indicates no local key matches a key vault entry.
	ErrKeyNotFound = errors.New("no local key matches this entry")

	// ErrInvalidPrivateKey indicates the private key is malformed or unsupported.
	ErrInvalidPrivateKey = errors.New("invalid or unsupported private key format")

	// ErrPassphraseRequired indicates the private key is passphrase protected.
	ErrPassphraseRequired = errors.New("private key is passphrase protected")
)

// File and config errors indicate issues with the surrounding environment.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidConfig indicates the configuration is malformed.
	ErrInvalidConfig = errors.New("configuration is invalid")

	// ErrConfigExists indicates config init would overwrite an existing file.
	ErrConfigExists = errors.New("configuration file already exists")

	// ErrOutputName indicates a value name cannot be written in the chosen
	// output format.
	ErrOutputName = errors.New("value name cannot be rendered")
)

// EntryError records the failure of a single key vault entry.
type EntryError struct {
	Index    int
	VaultURL string
	Name     string
	Err      error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("key vault entry %d (%s/%s): %v", e.Index, e.VaultURL, e.Name, e.Err)
}

// Unwrap returns the underlying cause and ErrBackendResolution.
func (e *EntryError) Unwrap() []error {
	return []error{ErrBackendResolution, e.Err}
}

// LeafError records the failure of a single document value.
type LeafError struct {
	Path string
	Err  error
}

func (e *LeafError) Error() string {
	return fmt.Sprintf("value %q: %v", e.Path, e.Err)
}

func (e *LeafError) Unwrap() error {
	return e.Err
}

// UnsupportedBackendError lists the configured slots that cannot be used.
type UnsupportedBackendError struct {
	Slots []string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedBackend, strings.Join(e.Slots, ", "))
}

func (e *UnsupportedBackendError) Is(target error) bool {
	return target == ErrUnsupportedBackend
}
