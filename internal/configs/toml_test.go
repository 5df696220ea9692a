package configs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadTOML(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nested", "test.toml")

	type TestStruct struct {
		Name  string
		Age   int
		Email string
	}

	originalData := TestStruct{
		Name:  "John Doe",
		Age:   30,
		Email: "john@example.com",
	}

	err := SaveTOML(testFile, originalData)
	if err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}

	loadedData := TestStruct{}
	unknown, err := LoadTOML(testFile, &loadedData)
	if err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if len(unknown) != 0 {
		t.Errorf("Expected no unknown keys, got %v", unknown)
	}

	if loadedData != originalData {
		t.Errorf("Expected %+v, got %+v", originalData, loadedData)
	}
}

func TestLoadTOMLNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nonexistent.toml")

	var data struct{ Name string }
	if _, err := LoadTOML(testFile, &data); err == nil {
		t.Error("Expected error when loading non-existent file")
	}
}

func TestLoadTOMLUnknownKeys(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.toml")

	content := "name = \"x\"\ncolour = \"blue\"\n"
	if err := os.WriteFile(testFile, []byte(content), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var data struct {
		Name string `toml:"name"`
	}
	unknown, err := LoadTOML(testFile, &data)
	if err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if len(unknown) != 1 || unknown[0] != "colour" {
		t.Errorf("Expected [colour], got %v", unknown)
	}
}
