// Package configs manages the mops user configuration.
//
// Configuration is stored in TOML at <UserConfigDir>/mops/config.toml:
//
//	key_files = ["~/.ssh/sops_rsa"]
//
//	[decrypt]
//	policy = "isolate"      # or "strict"
//	concurrency = 4
//	format = "json"         # json, yaml or dotenv
//	fail_fast = false
//
//	[azure]
//	disabled = false        # local keys only
//	exclude_managed_identity = true
//	tenant_id = ""
//
//	[audit]
//	enabled = true
//	path = "~/.local/share/mops/audit.jsonl"
//
//	[[keys]]
//	vault_url = "https://mops-ci.vault.azure.net"
//	name = "sops-key"
//	private_key = "/secure/sops-key.pem"
//
// # Precedence
//
// Defaults, then the file, then MOPS_* environment variables, then command
// line flags. Environment variables: MOPS_POLICY, MOPS_CONCURRENCY,
// MOPS_FORMAT, MOPS_FAIL_FAST, MOPS_AZURE_DISABLED,
// MOPS_AZURE_EXCLUDE_MANAGED_IDENTITY,
// MOPS_AZURE_TENANT_ID, MOPS_AUDIT, MOPS_AUDIT_PATH and MOPS_KEY_FILES
// (comma separated).
//
// # Settings
//
// MopsSettings holds the config and data directories. It is initialized at
// startup and may be overridden in tests.
package configs
