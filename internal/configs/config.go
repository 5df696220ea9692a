package configs

import (
	"fmt"
	"os"
	"slices"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/caarlos0/env/v11"
)

// Output formats understood by the decrypt command.
var Formats = []string{"json", "yaml", "dotenv"}

// Key resolution policies.
var Policies = []string{"isolate", "strict"}

type Config struct {
	Decrypt DecryptConfig `toml:"decrypt"`
	Azure   AzureConfig   `toml:"azure"`
	Audit   AuditConfig   `toml:"audit"`

	// KeyFiles are private keys tried against every key vault entry.
	KeyFiles []string `toml:"key_files" env:"MOPS_KEY_FILES" envSeparator:","`

	// Keys are private keys bound to specific key vault entries. Entry i
	// can be set from MOPS_KEYS_<i>_VAULT_URL and friends.
	Keys []KeyConfig `toml:"keys" envPrefix:"MOPS_KEYS_"`
}

type DecryptConfig struct {
	Policy      string `toml:"policy" env:"MOPS_POLICY"`
	Concurrency int    `toml:"concurrency" env:"MOPS_CONCURRENCY"`
	Format      string `toml:"format" env:"MOPS_FORMAT"`
	FailFast    bool   `toml:"fail_fast" env:"MOPS_FAIL_FAST"`
}

type AzureConfig struct {
	Disabled               bool   `toml:"disabled" env:"MOPS_AZURE_DISABLED"`
	ExcludeManagedIdentity bool   `toml:"exclude_managed_identity" env:"MOPS_AZURE_EXCLUDE_MANAGED_IDENTITY"`
	TenantID               string `toml:"tenant_id" env:"MOPS_AZURE_TENANT_ID"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled" env:"MOPS_AUDIT"`
	Path    string `toml:"path" env:"MOPS_AUDIT_PATH"`
}

type KeyConfig struct {
	VaultURL   string `toml:"vault_url" env:"VAULT_URL"`
	Name       string `toml:"name" env:"NAME"`
	Version    string `toml:"version,omitempty" env:"VERSION"`
	PrivateKey string `toml:"private_key" env:"PRIVATE_KEY"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Decrypt: DecryptConfig{
			Policy:      "isolate",
			Concurrency: 4,
			Format:      "json",
		},
		Azure: AzureConfig{
			ExcludeManagedIdentity: true,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    DefaultAuditPath(),
		},
	}
}

// Load reads the user config file, applies MOPS_* environment overrides and
// validates the result. A missing file yields the defaults.
//
// Unknown keys in the file are returned as warnings.
func Load() (*Config, []string, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (*Config, []string, error) {
	config := Default()

	var warnings []string
	if _, err := os.Stat(path); err == nil {
		unknown, err := LoadTOML(path, config)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidConfig, path, err)
		}
		for _, key := range unknown {
			warnings = append(warnings, fmt.Sprintf("unknown config key %q in %s", key, path))
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := env.Parse(config); err != nil {
		return nil, nil, fmt.Errorf("%w: environment: %v", kerrors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	return config, warnings, nil
}

// Save writes the config to the user config file.
func Save(config *Config) error {
	if err := SaveTOML(ConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks enumerated values and key bindings.
func (c *Config) Validate() error {
	c.Decrypt.Policy = strings.ToLower(c.Decrypt.Policy)
	c.Decrypt.Format = strings.ToLower(c.Decrypt.Format)

	if !slices.Contains(Policies, c.Decrypt.Policy) {
		return fmt.Errorf("%w: decrypt.policy must be one of %s, got %q", kerrors.ErrInvalidConfig, strings.Join(Policies, ", "), c.Decrypt.Policy)
	}
	if !slices.Contains(Formats, c.Decrypt.Format) {
		return fmt.Errorf("%w: decrypt.format must be one of %s, got %q", kerrors.ErrInvalidConfig, strings.Join(Formats, ", "), c.Decrypt.Format)
	}
	if c.Decrypt.Concurrency < 0 {
		return fmt.Errorf("%w: decrypt.concurrency must not be negative", kerrors.ErrInvalidConfig)
	}
	for i, k := range c.Keys {
		if k.PrivateKey == "" {
			return fmt.Errorf("%w: keys[%d] needs private_key", kerrors.ErrInvalidConfig, i)
		}
	}
	if c.Audit.Path == "" {
		c.Audit.Path = DefaultAuditPath()
	}
	return nil
}
