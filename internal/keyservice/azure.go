package keyservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
)

// AzureOptions configures the Azure Key Vault backend.
type AzureOptions struct {
	// ExcludeManagedIdentity skips the managed identity credential, which
	// otherwise stalls on machines without an instance metadata endpoint.
	ExcludeManagedIdentity bool

	// TenantID restricts authentication to one tenant. Optional.
	TenantID string
}

// AzureKeyVault unwraps data keys with Azure Key Vault keys.
type AzureKeyVault struct {
	cred azcore.TokenCredential

	mu      sync.Mutex
	clients map[string]*azkeys.Client
}

// ConnectAzure returns a ConnectFunc that builds one credential per call.
func ConnectAzure(opts AzureOptions) ConnectFunc {
	return func(ctx context.Context) (KeyVault, error) {
		cred, err := newAzureCredential(opts)
		if err != nil {
			return nil, err
		}
		return NewAzureKeyVault(cred), nil
	}
}

// NewAzureKeyVault wraps an existing credential.
func NewAzureKeyVault(cred azcore.TokenCredential) *AzureKeyVault {
	return &AzureKeyVault{
		cred:    cred,
		clients: make(map[string]*azkeys.Client),
	}
}

// Decrypt calls the key vault's decrypt operation for req.KeyName. An empty
// KeyVersion uses the latest key version.
func (a *AzureKeyVault) Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error) {
	client, err := a.client(req.VaultURL)
	if err != nil {
		return nil, err
	}

	alg := azkeys.EncryptionAlgorithm(req.Algorithm)
	resp, err := client.Decrypt(ctx, req.KeyName, req.KeyVersion, azkeys.KeyOperationParameters{
		Algorithm: &alg,
		Value:     req.Ciphertext,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure key vault decrypt with %s: %w", req.KeyName, err)
	}

	return resp.Result, nil
}

func (a *AzureKeyVault) client(vaultURL string) (*azkeys.Client, error) {
	url := strings.TrimRight(vaultURL, "/")

	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.clients[url]; ok {
		return c, nil
	}
	c, err := azkeys.NewClient(url, a.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client for %s: %w", url, err)
	}
	a.clients[url] = c
	return c, nil
}

func newAzureCredential(opts AzureOptions) (azcore.TokenCredential, error) {
	if !opts.ExcludeManagedIdentity {
		cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			TenantID: opts.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build azure credential: %w", err)
		}
		return cred, nil
	}

	var (
		sources []azcore.TokenCredential
		errs    []error
	)
	if c, err := azidentity.NewEnvironmentCredential(nil); err == nil {
		sources = append(sources, c)
	} else {
		errs = append(errs, err)
	}
	if c, err := azidentity.NewWorkloadIdentityCredential(nil); err == nil {
		sources = append(sources, c)
	} else {
		errs = append(errs, err)
	}
	if c, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: opts.TenantID}); err == nil {
		sources = append(sources, c)
	} else {
		errs = append(errs, err)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no azure credential available: %w", errors.Join(errs...))
	}

	cred, err := azidentity.NewChainedTokenCredential(sources, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build azure credential chain: %w", err)
	}
	return cred, nil
}
