package keyservice

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"golang.org/x/crypto/ssh"
)

// LocalKey is an RSA private key matched to key vault entries. Empty match
// fields match any entry.
type LocalKey struct {
	VaultURL string
	Name     string
	Version  string
	Key      *rsa.PrivateKey
}

func (k LocalKey) matches(req DecryptRequest) bool {
	if k.VaultURL != "" && !strings.EqualFold(strings.TrimRight(k.VaultURL, "/"), strings.TrimRight(req.VaultURL, "/")) {
		return false
	}
	if k.Name != "" && k.Name != req.KeyName {
		return false
	}
	if k.Version != "" && k.Version != req.KeyVersion {
		return false
	}
	return true
}

// LocalKeyring unwraps data keys with private keys held in memory.
type LocalKeyring struct {
	keys []LocalKey
}

// NewLocalKeyring returns a keyring trying keys in the given order.
func NewLocalKeyring(keys ...LocalKey) *LocalKeyring {
	return &LocalKeyring{keys: keys}
}

// Len returns the number of keys in the keyring.
func (k *LocalKeyring) Len() int {
	return len(k.keys)
}

// Connect satisfies ConnectFunc.
func (k *LocalKeyring) Connect(ctx context.Context) (KeyVault, error) {
	return k, nil
}

// Decrypt tries every matching key until one unwraps the ciphertext.
func (k *LocalKeyring) Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Algorithm != AlgorithmRSAOAEP256 {
		return nil, fmt.Errorf("unsupported algorithm %q", req.Algorithm)
	}

	matched := false
	for _, key := range k.keys {
		if !key.matches(req) {
			continue
		}
		matched = true
		plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key.Key, req.Ciphertext, nil)
		if err == nil {
			return plaintext, nil
		}
	}

	if matched {
		return nil, fmt.Errorf("no local key could unwrap %s/%s", req.VaultURL, req.KeyName)
	}
	return nil, fmt.Errorf("%w: %s/%s", kerrors.ErrKeyNotFound, req.VaultURL, req.KeyName)
}

// ParsePrivateKey parses an RSA private key in PKCS#1, PKCS#8 or OpenSSH
// form. passphrase may be nil for unprotected keys.
//
// Returns ErrPassphraseRequired if the key is protected and no passphrase
// was given.
func ParsePrivateKey(data, passphrase []byte) (*rsa.PrivateKey, error) {
	var (
		raw any
		err error
	)
	if len(passphrase) > 0 {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	} else {
		raw, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, kerrors.ErrPassphraseRequired
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPrivateKey, err)
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key (%T)", kerrors.ErrInvalidPrivateKey, raw)
	}
	return key, nil
}

// LoadPrivateKey reads and parses a private key file. If the key is
// passphrase protected and prompt is not nil, prompt is asked for the
// passphrase.
func LoadPrivateKey(path string, prompt func() ([]byte, error)) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}

	key, err := ParsePrivateKey(data, nil)
	if errors.Is(err, kerrors.ErrPassphraseRequired) && prompt != nil {
		passphrase, perr := prompt()
		if perr != nil {
			return nil, perr
		}
		defer clear(passphrase)
		key, err = ParsePrivateKey(data, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}
