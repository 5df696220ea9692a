package sops

import (
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dadaValue = "ENC[AES256_GCM,data:Otrr8Q==,iv:rOlsJxDIfAtLBXgh0wPzfDcZXjMpbM7CqUnFWc8SqZk=,tag:/5JbI2KV2/dkk0W++MgN6g==,type:str]"

func TestParseValue_DocumentValue(t *testing.T) {
	v, err := ParseValue(dadaValue)
	require.NoError(t, err)

	assert.Len(t, v.Data, 4)
	assert.Len(t, v.IV, 32)
	assert.Len(t, v.Tag, TagSize)
	assert.Equal(t, TypeString, v.Type)
	assert.Equal(t, dadaValue, v.String())
}

func TestParseValue_StandardNonce(t *testing.T) {
	text := "ENC[AES256_GCM,data:AAEC,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:int]"

	v, err := ParseValue(text)
	require.NoError(t, err)
	assert.Len(t, v.IV, 12)
	assert.Equal(t, TypeInt, v.Type)
	assert.Equal(t, []byte{0, 1, 2}, v.Data)
}

func TestParseValue_EmptyData(t *testing.T) {
	text := "ENC[AES256_GCM,data:,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"

	v, err := ParseValue(text)
	require.NoError(t, err)
	assert.Empty(t, v.Data)
}

func TestParseValue_GrammarRejection(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain text", "hunter2"},
		{"missing prefix", "AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"},
		{"truncated bracket", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str"},
		{"trailing garbage", dadaValue + "x"},
		{"missing tag", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,type:str]"},
		{"missing type", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==]"},
		{"wrong field order", "ENC[AES256_GCM,iv:AAAAAAAAAAAAAAAA,data:Otrr8Q==,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"},
		{"unknown algorithm", "ENC[CHACHA20,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"},
		{"unknown type", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:comment]"},
		{"empty type", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:]"},
		{"short iv", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"},
		{"short tag", "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAA,type:str]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, kerrors.ErrFormat)
		})
	}
}

func TestParseValue_BadBase64(t *testing.T) {
	fields := []string{"data", "iv", "tag"}
	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			text := "ENC[AES256_GCM,data:Otrr8Q==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]"
			text = strings.Replace(text, field+":", field+":!!", 1)

			_, err := ParseValue(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, kerrors.ErrEncoding)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	assert.True(t, IsEncrypted(dadaValue))
	assert.False(t, IsEncrypted("plain"))
	assert.False(t, IsEncrypted(""))
}
