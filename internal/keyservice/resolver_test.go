package keyservice

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// sharedTestKey avoids generating an RSA key in every test.
func sharedTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

func wrapKey(t *testing.T, pub *rsa.PublicKey, dataKey []byte) string {
	t.Helper()
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, dataKey, nil)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(wrapped)
}

func testEntry(name, enc string) sops.KeyVaultEntry {
	return sops.KeyVaultEntry{
		VaultURL:  "https://mops-ci.vault.azure.net",
		Name:      name,
		Version:   "6cac3e56d9844703bdd908eb6d142b4a",
		CreatedAt: "2023-06-25T18:48:01Z",
		Enc:       enc,
	}
}

// fakeVault returns a fixed key per key name.
type fakeVault struct {
	keys  map[string][]byte
	errs  map[string]error
	delay map[string]time.Duration
	calls atomic.Int32
}

func (f *fakeVault) Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error) {
	f.calls.Add(1)
	if d := f.delay[req.KeyName]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[req.KeyName]; err != nil {
		return nil, err
	}
	if req.Algorithm != AlgorithmRSAOAEP256 {
		return nil, errors.New("wrong algorithm")
	}
	return bytes.Clone(f.keys[req.KeyName]), nil
}

func connectTo(v KeyVault) ConnectFunc {
	return func(context.Context) (KeyVault, error) { return v, nil }
}

func TestResolve_LocalKeyring(t *testing.T) {
	priv := sharedTestKey(t)
	dataKey := bytes.Repeat([]byte{7}, sops.KeySize)

	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("sops-key", wrapKey(t, &priv.PublicKey, dataKey))}}
	keyring := NewLocalKeyring(LocalKey{VaultURL: "https://mops-ci.vault.azure.net/", Name: "sops-key", Key: priv})

	r := &Resolver{Connect: keyring.Connect}
	set, err := r.Resolve(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, set.Ciphers, 1)
	assert.Empty(t, set.Failures)
	assert.Equal(t, 1, set.Entries)

	expected, err := sops.NewCipher(dataKey, "expected")
	require.NoError(t, err)
	v, err := expected.Seal("DADA", []byte("dada"), make([]byte, 32), sops.TypeString)
	require.NoError(t, err)

	got, err := sops.DecryptLeaf("DADA", v, set.Ciphers)
	require.NoError(t, err)
	assert.Equal(t, "dada", got)
}

func TestResolve_PreservesEntryOrder(t *testing.T) {
	vault := &fakeVault{
		keys: map[string][]byte{
			"first":  bytes.Repeat([]byte{1}, 32),
			"second": bytes.Repeat([]byte{2}, 32),
			"third":  bytes.Repeat([]byte{3}, 32),
		},
		delay: map[string]time.Duration{"first": 30 * time.Millisecond, "second": 10 * time.Millisecond},
	}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{
		testEntry("first", "AAAA"),
		testEntry("second", "AAAA"),
		testEntry("third", "AAAA"),
	}}

	set, err := (&Resolver{Connect: connectTo(vault), Concurrency: 3}).Resolve(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, set.Ciphers, 3)

	assert.Contains(t, set.Ciphers[0].Source, "azure_kv[0]")
	assert.Contains(t, set.Ciphers[1].Source, "azure_kv[1]")
	assert.Contains(t, set.Ciphers[2].Source, "azure_kv[2]")
	assert.Equal(t, int32(3), vault.calls.Load())
}

func TestResolve_IsolatePolicy(t *testing.T) {
	vault := &fakeVault{
		keys: map[string][]byte{"good": bytes.Repeat([]byte{1}, 32), "short": []byte("too short")},
		errs: map[string]error{"denied": errors.New("403 forbidden")},
	}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{
		testEntry("denied", "AAAA"),
		testEntry("good", "AAAA"),
		testEntry("short", "AAAA"),
		testEntry("garbled", "not base64!"),
	}}

	set, err := (&Resolver{Connect: connectTo(vault)}).Resolve(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, set.Ciphers, 1)
	assert.Contains(t, set.Ciphers[0].Source, "good")

	require.Len(t, set.Failures, 3)
	var entryErr *kerrors.EntryError
	require.ErrorAs(t, set.Failures[0], &entryErr)
	assert.Equal(t, 0, entryErr.Index)
	assert.Equal(t, "denied", entryErr.Name)

	assert.ErrorIs(t, set.Failures[1], kerrors.ErrInvalidKeyLength)
	assert.ErrorIs(t, set.Failures[2], kerrors.ErrEncoding)
	assert.ErrorIs(t, set.Err(), kerrors.ErrBackendResolution)
}

func TestResolve_IsolatePolicyAllFail(t *testing.T) {
	vault := &fakeVault{errs: map[string]error{"a": errors.New("boom"), "b": errors.New("bang")}}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("a", "AAAA"), testEntry("b", "AAAA")}}

	set, err := (&Resolver{Connect: connectTo(vault)}).Resolve(context.Background(), meta)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, kerrors.ErrBackendResolution)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "bang")
}

func TestResolve_StrictPolicy(t *testing.T) {
	vault := &fakeVault{
		keys: map[string][]byte{"good": bytes.Repeat([]byte{1}, 32)},
		errs: map[string]error{"denied": errors.New("403 forbidden")},
	}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("good", "AAAA"), testEntry("denied", "AAAA")}}

	set, err := (&Resolver{Connect: connectTo(vault), Policy: PolicyStrict}).Resolve(context.Background(), meta)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, kerrors.ErrBackendResolution)

	var entryErr *kerrors.EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "denied", entryErr.Name)
}

func TestResolve_Unsupported(t *testing.T) {
	meta := &sops.Metadata{
		KMS: []map[string]any{{"arn": "arn:aws:kms:eu-west-1:1:key/x"}},
		Age: []map[string]any{{"recipient": "age1..."}},
	}

	_, err := (&Resolver{Connect: connectTo(&fakeVault{})}).Resolve(context.Background(), meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrUnsupportedBackend)

	var unsupported *kerrors.UnsupportedBackendError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, []string{"kms", "age"}, unsupported.Slots)
}

func TestResolve_UnsupportedIgnoredWhenKeyVaultPresent(t *testing.T) {
	vault := &fakeVault{keys: map[string][]byte{"good": bytes.Repeat([]byte{1}, 32)}}
	meta := &sops.Metadata{
		PGP:     []map[string]any{{"fp": "ABCDEF"}},
		AzureKV: []sops.KeyVaultEntry{testEntry("good", "AAAA")},
	}

	set, err := (&Resolver{Connect: connectTo(vault)}).Resolve(context.Background(), meta)
	require.NoError(t, err)
	assert.Len(t, set.Ciphers, 1)
}

func TestResolve_NoBackends(t *testing.T) {
	_, err := (&Resolver{Connect: connectTo(&fakeVault{})}).Resolve(context.Background(), &sops.Metadata{})
	assert.ErrorIs(t, err, kerrors.ErrNoBackends)
	assert.ErrorIs(t, err, kerrors.ErrBackendResolution)
}

func TestResolve_ConnectCalledOnce(t *testing.T) {
	vault := &fakeVault{keys: map[string][]byte{"a": bytes.Repeat([]byte{1}, 32), "b": bytes.Repeat([]byte{2}, 32)}}
	var connects atomic.Int32
	connect := func(context.Context) (KeyVault, error) {
		connects.Add(1)
		return vault, nil
	}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("a", "AAAA"), testEntry("b", "AAAA")}}

	_, err := (&Resolver{Connect: connect}).Resolve(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, int32(1), connects.Load())
}

func TestResolve_ConnectFailure(t *testing.T) {
	connect := func(context.Context) (KeyVault, error) { return nil, errors.New("no credentials") }
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("a", "AAAA")}}

	_, err := (&Resolver{Connect: connect}).Resolve(context.Background(), meta)
	assert.ErrorIs(t, err, kerrors.ErrBackendResolution)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestResolve_Cancelled(t *testing.T) {
	vault := &fakeVault{
		keys:  map[string][]byte{"slow": bytes.Repeat([]byte{1}, 32), "fast": bytes.Repeat([]byte{2}, 32)},
		delay: map[string]time.Duration{"slow": time.Minute},
	}
	meta := &sops.Metadata{AzureKV: []sops.KeyVaultEntry{testEntry("fast", "AAAA"), testEntry("slow", "AAAA")}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	set, err := (&Resolver{Connect: connectTo(vault)}).Resolve(ctx, meta)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{"", PolicyIsolate, false},
		{"isolate", PolicyIsolate, false},
		{"STRICT", PolicyStrict, false},
		{"lenient", PolicyIsolate, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want.String(), map[Policy]string{PolicyIsolate: "isolate", PolicyStrict: "strict"}[got])
	}
}
