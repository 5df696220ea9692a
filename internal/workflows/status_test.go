package workflows

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/mops/internal/audit"
	"github.com/PolarWolf314/mops/internal/configs"
	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	key := rsaKey(t, 0)

	writeDocument(t, dir, "a.json", sealDocument(t, &key.PublicKey, testPairs))
	writeDocument(t, dir, "b.yaml", []byte(`token: ENC[AES256_GCM,data:AA==,iv:AAAAAAAAAAAAAAAA,tag:AAAAAAAAAAAAAAAAAAAAAA==,type:str]
port_unencrypted: 8080
sops:
  pgp:
    - fp: ABCDEF
  lastmodified: "2024-01-02T03:04:05Z"
  mac: m
  unencrypted_suffix: _unencrypted
  version: 3.8.1
`))
	writeDocument(t, dir, "c.json", []byte(`{"sops": {}}`))

	result, err := Status(context.Background(), StatusOptions{
		FilePatterns: []string{"a.json", "b.yaml", "c.json"},
		BaseDir:      dir,
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 3)

	a := result.Documents[0]
	require.NoError(t, a.Err)
	assert.True(t, a.Decryptable())
	assert.Equal(t, "3.7.3", a.Version)
	assert.Equal(t, 3, a.Leaves)
	assert.Equal(t, 3, a.Encrypted)
	require.Len(t, a.Slots, 6)
	assert.Equal(t, sops.SlotAzureKV, a.Slots[2].Name)
	assert.Equal(t, 1, a.Slots[2].Len())

	b := result.Documents[1]
	require.NoError(t, b.Err)
	assert.False(t, b.Decryptable())
	assert.Equal(t, 2, b.Leaves)
	assert.Equal(t, 1, b.Encrypted)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), b.Modified.UTC())
	assert.Equal(t, sops.SlotUnsupported, b.Slots[5].Kind)

	assert.ErrorIs(t, result.Documents[2].Err, kerrors.ErrFormat)
}

func TestStatus_NoFiles(t *testing.T) {
	_, err := Status(context.Background(), StatusOptions{FilePatterns: []string{"*.json"}, BaseDir: t.TempDir()})
	assert.ErrorIs(t, err, kerrors.ErrNoFilesFound)
}

func TestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	for _, f := range []string{"a.json", "b.json", "a.json", "c.json"} {
		audit.Log(path, audit.Entry{Operation: "decrypt", File: f})
	}

	result, err := Log(context.Background(), LogOptions{Path: path})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 4)
	assert.Equal(t, path, result.Path)

	result, err = Log(context.Background(), LogOptions{Path: path, Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "c.json", result.Entries[1].File)

	result, err = Log(context.Background(), LogOptions{Path: path, File: "a.json"})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)

	result, err = Log(context.Background(), LogOptions{Path: filepath.Join(t.TempDir(), "none.jsonl")})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
}

func TestInitConfig(t *testing.T) {
	original := configs.MopsSettings
	dir := t.TempDir()
	configs.MopsSettings = &configs.Settings{
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
	t.Cleanup(func() { configs.MopsSettings = original })

	path, err := InitConfig(context.Background(), InitConfigOptions{KeyFiles: []string{"/k.pem"}})
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigPath(), path)

	config, warnings, err := configs.Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"/k.pem"}, config.KeyFiles)

	_, err = InitConfig(context.Background(), InitConfigOptions{})
	assert.ErrorIs(t, err, kerrors.ErrConfigExists)

	_, err = InitConfig(context.Background(), InitConfigOptions{Force: true})
	require.NoError(t, err)
}
