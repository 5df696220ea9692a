package sops

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Options configures Decrypt.
type Options struct {
	// Concurrency bounds the number of values opened in parallel.
	// Zero uses GOMAXPROCS.
	Concurrency int

	// FailFast aborts on the first value that cannot be decrypted instead of
	// recording it and continuing.
	FailFast bool
}

// Value is one decrypted (or passed through) leaf.
type Value struct {
	Name string
	Path string
	Text string

	// Type is the original scalar type of an encrypted value; empty for
	// values stored in clear.
	Type string

	// Tag is the YAML short tag of the stored scalar. Values stored in clear
	// keep their native type through it.
	Tag string

	// Encrypted reports whether Text was recovered by decryption.
	Encrypted bool
}

// Result is the outcome of decrypting a whole document.
type Result struct {
	// Values holds every leaf that could be read, in document order.
	Values []Value

	// Failures holds one error per leaf that could not be read.
	Failures []*kerrors.LeafError

	// Total is the number of leaves in the document.
	Total int
}

// Err joins the per-leaf failures, or returns nil if every leaf was read.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Decrypted returns the number of leaves recovered by decryption.
func (r *Result) Decrypted() int {
	n := 0
	for _, v := range r.Values {
		if v.Encrypted {
			n++
		}
	}
	return n
}

// Map returns leaf name to text.
func (r *Result) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for _, v := range r.Values {
		m[v.Name] = v.Text
	}
	return m
}

// Decrypt opens every leaf of doc against the same candidate ciphers.
//
// Leaves are independent: a leaf that fails is recorded in Result.Failures
// and the rest are still decrypted, unless opts.FailFast is set. The
// returned error is only non-nil for FailFast failures and cancellation.
func Decrypt(ctx context.Context, doc *Document, ciphers []*Cipher, opts Options) (*Result, error) {
	leaves := doc.Leaves()

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	values := make([]*Value, len(leaves))
	failures := make([]*kerrors.LeafError, len(leaves))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, leaf := range leaves {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := readLeaf(leaf, ciphers)
			if err != nil {
				failures[i] = &kerrors.LeafError{Path: leaf.Name, Err: err}
				if opts.FailFast {
					return failures[i]
				}
				return nil
			}
			values[i] = &v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Total: len(leaves)}
	for i := range leaves {
		if values[i] != nil {
			result.Values = append(result.Values, *values[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, failures[i])
		}
	}
	return result, nil
}

func readLeaf(leaf Leaf, ciphers []*Cipher) (Value, error) {
	v := Value{Name: leaf.Name, Path: leaf.Path, Text: leaf.Raw, Tag: leaf.Tag}
	if !leaf.Encrypted {
		return v, nil
	}
	if !IsEncrypted(leaf.Raw) {
		return Value{}, fmt.Errorf("%w: value is not encrypted", kerrors.ErrFormat)
	}

	enc, err := ParseValue(leaf.Raw)
	if err != nil {
		return Value{}, err
	}
	text, err := DecryptLeaf(leaf.Path, enc, ciphers)
	if err != nil {
		return Value{}, err
	}

	v.Text = text
	v.Type = enc.Type
	v.Encrypted = true
	return v, nil
}
