package workflows

import (
	"fmt"

	"github.com/PolarWolf314/mops/internal/configs"
	"github.com/PolarWolf314/mops/internal/keyservice"
	"github.com/PolarWolf314/mops/internal/utils"
)

// PassphraseFunc returns a prompt for the encrypted private key at path, or
// nil if prompting is impossible.
type PassphraseFunc func(path string) func() ([]byte, error)

// LoadKeyring reads every private key named by config into a local keyring.
//
// Key files apply to any key vault entry. Keys entries are bound to the
// vault URL, key name and optional version they list.
func LoadKeyring(config *configs.Config, passphrase PassphraseFunc) (*keyservice.LocalKeyring, error) {
	if passphrase == nil {
		passphrase = utils.PassphrasePrompt
	}

	var keys []keyservice.LocalKey

	for _, path := range config.KeyFiles {
		path = utils.ExpandHome(path)
		key, err := keyservice.LoadPrivateKey(path, passphrase(path))
		if err != nil {
			return nil, fmt.Errorf("loading key file %s: %w", path, err)
		}
		keys = append(keys, keyservice.LocalKey{Key: key})
	}

	for i, k := range config.Keys {
		path := utils.ExpandHome(k.PrivateKey)
		key, err := keyservice.LoadPrivateKey(path, passphrase(path))
		if err != nil {
			return nil, fmt.Errorf("loading keys[%d] %s: %w", i, path, err)
		}
		keys = append(keys, keyservice.LocalKey{
			VaultURL: k.VaultURL,
			Name:     k.Name,
			Version:  k.Version,
			Key:      key,
		})
	}

	return keyservice.NewLocalKeyring(keys...), nil
}

// Connector builds the key vault chain for config: local keys first, then
// Azure Key Vault unless it is disabled.
func Connector(config *configs.Config, passphrase PassphraseFunc) (keyservice.ConnectFunc, error) {
	keyring, err := LoadKeyring(config, passphrase)
	if err != nil {
		return nil, err
	}

	var local, azure keyservice.ConnectFunc
	if keyring.Len() > 0 {
		local = keyring.Connect
	}
	if !config.Azure.Disabled {
		azure = keyservice.ConnectAzure(keyservice.AzureOptions{
			ExcludeManagedIdentity: config.Azure.ExcludeManagedIdentity,
			TenantID:               config.Azure.TenantID,
		})
	}
	if local == nil && azure == nil {
		return nil, fmt.Errorf("no private keys configured and Azure Key Vault is disabled")
	}

	return keyservice.ConnectOnce(keyservice.ConnectChain(local, azure)), nil
}
