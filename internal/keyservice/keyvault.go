package keyservice

import "context"

// Algorithm names a key unwrapping algorithm.
type Algorithm string

// AlgorithmRSAOAEP256 is RSA-OAEP with SHA-256, the algorithm SOPS uses for
// key vault entries.
const AlgorithmRSAOAEP256 Algorithm = "RSA-OAEP-256"

// DecryptRequest asks a key vault to unwrap a data key.
type DecryptRequest struct {
	VaultURL   string
	KeyName    string
	KeyVersion string
	Algorithm  Algorithm
	Ciphertext []byte
}

// KeyVault performs asymmetric decryption with keys it holds. Implementations
// must be safe for concurrent use.
type KeyVault interface {
	Decrypt(ctx context.Context, req DecryptRequest) ([]byte, error)
}

// ConnectFunc acquires a KeyVault for one resolution. It is called once per
// Resolve so credentials are shared across entries.
type ConnectFunc func(ctx context.Context) (KeyVault, error)
