package sops

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
)

const (
	// Algorithm is the only value cipher SOPS documents use.
	Algorithm = "AES256_GCM"

	// TagSize is the GCM authentication tag size.
	TagSize = 16

	// standard GCM nonce size
	standardNonceSize = 12

	// nonce size written by SOPS
	sopsNonceSize = 32
)

// Types SOPS records for the original scalar of an encrypted value.
const (
	TypeString = "str"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeBytes  = "bytes"
)

var validTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeBool:   true,
	TypeBytes:  true,
}

// Field contents are matched loosely so bad base64 surfaces as an encoding
// error rather than a grammar error.
var reEncryptedValue = regexp.MustCompile(`^ENC\[([^,\]]*),data:([^,\]]*),iv:([^,\]]*),tag:([^,\]]*),type:([^,\]]*)\]$`)

// EncryptedValue is the decoded form of an ENC[...] string.
type EncryptedValue struct {
	Data []byte
	IV   []byte
	Tag  []byte
	Type string
}

// IsEncrypted reports whether s carries the ENC[...] envelope.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, "ENC[")
}

// ParseValue decodes an ENC[...] string.
//
// Returns ErrFormat if s does not match the grammar or a field has the wrong
// size, and ErrEncoding if a base64 field cannot be decoded.
func ParseValue(s string) (EncryptedValue, error) {
	m := reEncryptedValue.FindStringSubmatch(s)
	if m == nil {
		return EncryptedValue{}, fmt.Errorf("%w: value does not match ENC[%s,data:...,iv:...,tag:...,type:...]", kerrors.ErrFormat, Algorithm)
	}
	if m[1] != Algorithm {
		return EncryptedValue{}, fmt.Errorf("%w: unsupported algorithm %q", kerrors.ErrFormat, m[1])
	}
	if !validTypes[m[5]] {
		return EncryptedValue{}, fmt.Errorf("%w: unsupported value type %q", kerrors.ErrFormat, m[5])
	}

	data, err := decodeField("data", m[2])
	if err != nil {
		return EncryptedValue{}, err
	}
	iv, err := decodeField("iv", m[3])
	if err != nil {
		return EncryptedValue{}, err
	}
	tag, err := decodeField("tag", m[4])
	if err != nil {
		return EncryptedValue{}, err
	}

	if len(iv) != standardNonceSize && len(iv) != sopsNonceSize {
		return EncryptedValue{}, fmt.Errorf("%w: iv is %d bytes, want %d or %d", kerrors.ErrFormat, len(iv), standardNonceSize, sopsNonceSize)
	}
	if len(tag) != TagSize {
		return EncryptedValue{}, fmt.Errorf("%w: tag is %d bytes, want %d", kerrors.ErrFormat, len(tag), TagSize)
	}

	return EncryptedValue{Data: data, IV: iv, Tag: tag, Type: m[5]}, nil
}

// String encodes v back into the ENC[...] grammar.
func (v EncryptedValue) String() string {
	return fmt.Sprintf("ENC[%s,data:%s,iv:%s,tag:%s,type:%s]",
		Algorithm,
		base64.StdEncoding.EncodeToString(v.Data),
		base64.StdEncoding.EncodeToString(v.IV),
		base64.StdEncoding.EncodeToString(v.Tag),
		v.Type,
	)
}

func decodeField(name, s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s field: %v", kerrors.ErrEncoding, name, err)
	}
	return b, nil
}
