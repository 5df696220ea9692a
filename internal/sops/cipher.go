package sops

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
)

// KeySize is the data key size (AES-256).
const KeySize = 32

// Cipher is one candidate data key. It is safe for concurrent use and is
// never modified after construction.
type Cipher struct {
	block cipher.Block

	// Source describes the backend entry the key was recovered from.
	Source string
}

// NewCipher builds a candidate cipher from a 32-byte data key.
func NewCipher(key []byte, source string) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", kerrors.ErrInvalidKeyLength, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cannot create aes block cipher: %w", err)
	}
	return &Cipher{block: block, Source: source}, nil
}

// String never includes key material.
func (c *Cipher) String() string {
	return "cipher(" + c.Source + ")"
}

// AdditionalData returns the associated data bound into the tag of the value
// at path.
func AdditionalData(path string) []byte {
	return []byte(path + ":")
}

func (c *Cipher) gcm(nonceSize int) (cipher.AEAD, error) {
	gcm, err := cipher.NewGCMWithNonceSize(c.block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("cannot create gcm cipher: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext for the value at path using the given nonce.
func (c *Cipher) Seal(path string, plaintext, iv []byte, valueType string) (EncryptedValue, error) {
	gcm, err := c.gcm(len(iv))
	if err != nil {
		return EncryptedValue{}, err
	}
	sealed := gcm.Seal(nil, iv, plaintext, AdditionalData(path))
	split := len(sealed) - gcm.Overhead()

	return EncryptedValue{
		Data: sealed[:split],
		IV:   append([]byte(nil), iv...),
		Tag:  sealed[split:],
		Type: valueType,
	}, nil
}

func (c *Cipher) open(path string, v EncryptedValue) ([]byte, error) {
	gcm, err := c.gcm(len(v.IV))
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(v.Data)+len(v.Tag))
	sealed = append(sealed, v.Data...)
	sealed = append(sealed, v.Tag...)
	return gcm.Open(nil, v.IV, sealed, AdditionalData(path))
}

// DecryptLeaf opens the value at path with the first cipher that
// authenticates it. Ciphers are tried in order.
//
// Returns ErrDecryption if no cipher authenticates the value and ErrEncoding
// if the plaintext is not valid UTF-8.
func DecryptLeaf(path string, value EncryptedValue, ciphers []*Cipher) (string, error) {
	for _, c := range ciphers {
		plaintext, err := c.open(path, value)
		if err != nil {
			continue
		}
		if !utf8.Valid(plaintext) {
			return "", fmt.Errorf("%w: decrypted value is not valid UTF-8", kerrors.ErrEncoding)
		}
		return string(plaintext), nil
	}
	return "", kerrors.ErrDecryption
}
