// Testing utilities shared between command tests: config isolation,
// output capture and SOPS document fixtures.
package cmd

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PolarWolf314/mops/internal/configs"
	logger "github.com/PolarWolf314/mops/internal/logging"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestEnvironment points the config and data directories at a temp
// directory and changes into workDir.
func setupTestEnvironment(t *testing.T, workDir string) {
	t.Helper()

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	originalSettings := configs.MopsSettings

	if err := os.Chdir(workDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	userDir := t.TempDir()
	configs.MopsSettings = &configs.Settings{
		ConfigDir: filepath.Join(userDir, "config"),
		DataDir:   filepath.Join(userDir, "data"),
	}

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.MopsSettings = originalSettings
		ResetGlobalState()
	})
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan, <-stderrChan, err
}

// runCLI executes the root command with args, with stdout and stderr going
// to the current os.Stdout and os.Stderr.
func runCLI(args ...string) error {
	ResetGlobalState()
	resetCobraFlagState(RootCmd)

	Logger = logger.Logger{}
	RootCmd.SetOut(nil)
	RootCmd.SetErr(nil)
	if args == nil {
		args = []string{}
	}
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

// resetCobraFlagState clears Changed on every flag to prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// writeTestKey writes a shared RSA key to dir and returns the key and path.
func writeTestKey(t *testing.T, dir string) (*rsa.PrivateKey, string) {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})

	path := filepath.Join(dir, "sops_rsa.pem")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(testKey)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("Failed to write key: %v", err)
	}
	return testKey, path
}

// writeTestDocument encrypts pairs for key and writes a JSON SOPS document.
func writeTestDocument(t *testing.T, path string, key *rsa.PublicKey, pairs [][2]string) {
	t.Helper()

	dataKey := make([]byte, sops.KeySize)
	if _, err := rand.Read(dataKey); err != nil {
		t.Fatal(err)
	}
	c, err := sops.NewCipher(dataKey, "test")
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, dataKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	b.WriteString("{\n")
	for _, p := range pairs {
		iv := make([]byte, 32)
		if _, err := rand.Read(iv); err != nil {
			t.Fatal(err)
		}
		v, err := c.Seal(p[0], []byte(p[1]), iv, sops.TypeString)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(&b, "  %q: %q,\n", p[0], v.String())
	}
	fmt.Fprintf(&b, `  "sops": {
    "azure_kv": [{"vault_url": "https://mops-test.vault.azure.net", "name": "sops-key", "version": "v1", "created_at": "2023-06-25T18:48:03Z", "enc": %q}],
    "lastmodified": "2023-06-25T18:48:03Z",
    "mac": "m",
    "version": "3.7.3"
  }
}
`, base64.RawURLEncoding.EncodeToString(wrapped))

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
}
