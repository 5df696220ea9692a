package keyservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/sops"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel backend calls when Resolver.Concurrency
// is zero.
const DefaultConcurrency = 4

// Policy decides what happens when a single entry fails.
type Policy int

const (
	// PolicyIsolate records failing entries and continues with the rest.
	PolicyIsolate Policy = iota
	// PolicyStrict fails the whole resolution on the first failing entry.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "isolate"
}

// ParsePolicy parses "isolate" or "strict". An empty string is PolicyIsolate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "isolate":
		return PolicyIsolate, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyIsolate, fmt.Errorf("unknown policy %q (want isolate or strict)", s)
	}
}

// Resolver turns the backend entries of a document into candidate ciphers.
type Resolver struct {
	Connect     ConnectFunc
	Policy      Policy
	Concurrency int
}

// CipherSet is the outcome of a resolution. It is not modified after
// Resolve returns and may be shared by concurrent decryptions.
type CipherSet struct {
	// Ciphers holds one cipher per successful entry, in entry order.
	Ciphers []*sops.Cipher

	// Failures holds one *errors.EntryError per failed entry, in entry order.
	// Always empty under PolicyStrict.
	Failures []error

	// Entries is the number of key vault entries attempted.
	Entries int
}

// Err joins the entry failures, or returns nil.
func (s *CipherSet) Err() error {
	return errors.Join(s.Failures...)
}

// Resolve recovers candidate ciphers from meta.
//
// Returns ErrNoBackends if nothing is configured, an UnsupportedBackendError
// if only unsupported slots are configured, and an error wrapping
// ErrBackendResolution if no entry produced a usable key (or, under
// PolicyStrict, if any entry failed).
func (r *Resolver) Resolve(ctx context.Context, meta *sops.Metadata) (*CipherSet, error) {
	var entries []sops.KeyVaultEntry
	var unsupported []string
	for _, slot := range meta.Slots() {
		switch slot.Kind {
		case sops.SlotKeyVault:
			entries = slot.Entries
		case sops.SlotUnsupported:
			unsupported = append(unsupported, slot.Name)
		}
	}

	if len(entries) == 0 {
		if len(unsupported) > 0 {
			return nil, &kerrors.UnsupportedBackendError{Slots: unsupported}
		}
		return nil, kerrors.ErrNoBackends
	}
	if r.Connect == nil {
		return nil, fmt.Errorf("%w: no key vault configured", kerrors.ErrBackendResolution)
	}

	vault, err := r.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to key vault: %w", kerrors.ErrBackendResolution, err)
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	ciphers := make([]*sops.Cipher, len(entries))
	failures := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, entry := range entries {
		g.Go(func() error {
			c, err := resolveEntry(gctx, vault, i, entry)
			if err != nil {
				entryErr := &kerrors.EntryError{Index: i, VaultURL: entry.VaultURL, Name: entry.Name, Err: err}
				if r.Policy == PolicyStrict {
					return entryErr
				}
				failures[i] = entryErr
				return nil
			}
			ciphers[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &CipherSet{Entries: len(entries)}
	for i := range entries {
		if ciphers[i] != nil {
			set.Ciphers = append(set.Ciphers, ciphers[i])
		}
		if failures[i] != nil {
			set.Failures = append(set.Failures, failures[i])
		}
	}
	if len(set.Ciphers) == 0 {
		return nil, set.Err()
	}

	return set, nil
}

func resolveEntry(ctx context.Context, vault KeyVault, index int, entry sops.KeyVaultEntry) (*sops.Cipher, error) {
	wrapped, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(entry.Enc, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: enc: %v", kerrors.ErrEncoding, err)
	}

	key, err := vault.Decrypt(ctx, DecryptRequest{
		VaultURL:   entry.VaultURL,
		KeyName:    entry.Name,
		KeyVersion: entry.Version,
		Algorithm:  AlgorithmRSAOAEP256,
		Ciphertext: wrapped,
	})
	if err != nil {
		return nil, err
	}
	defer clear(key)

	return sops.NewCipher(key, fmt.Sprintf("%s[%d] %s/%s", sops.SlotAzureKV, index, entry.VaultURL, entry.Name))
}
