// Package keyservice recovers SOPS data keys from key management backends.
//
// A SOPS document lists one or more wrapped copies of its data key. The
// Resolver asks a KeyVault to unwrap each copy with RSA-OAEP-SHA256 and turns
// every recovered key into a candidate sops.Cipher.
//
// # Backends
//
// Only the asymmetric key vault slot (azure_kv) is supported. Two KeyVault
// implementations exist:
//
//   - AzureKeyVault calls Azure Key Vault through the Azure SDK. One
//     credential is built per resolution and shared by all entries.
//   - LocalKeyring unwraps keys with RSA private keys read from disk (PEM or
//     OpenSSH). Useful offline and in tests.
//
// Documents that only configure kms, gcp_kms, hc_vault, age or pgp fail with
// ErrUnsupportedBackend.
//
// # Failure Policy
//
// Entries are resolved concurrently. Under PolicyIsolate (the default) a
// failing entry is recorded in CipherSet.Failures and resolution only fails
// when no entry produced a key. Under PolicyStrict the first failure cancels
// the remaining calls and fails the whole resolution.
//
// Cancelling the context cancels all outstanding backend calls; no partial
// CipherSet is returned.
package keyservice
