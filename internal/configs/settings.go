package configs

import (
	"log"
	"os"
	"path/filepath"
)

type Settings struct {
	// ConfigDir holds config.toml.
	ConfigDir string

	// DataDir holds the audit log.
	DataDir string
}

var MopsSettings *Settings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	MopsSettings = &Settings{
		ConfigDir: filepath.Join(configDir, "mops"),
		DataDir:   filepath.Join(dataDir, "mops"),
	}
}

// ConfigPath returns the path of the user config file.
func ConfigPath() string {
	return filepath.Join(MopsSettings.ConfigDir, "config.toml")
}

// DefaultAuditPath returns the default audit log location.
func DefaultAuditPath() string {
	return filepath.Join(MopsSettings.DataDir, "audit.jsonl")
}
