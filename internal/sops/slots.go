package sops

// Backend slot names as they appear in the metadata block.
const (
	SlotKMS     = "kms"
	SlotGCPKMS  = "gcp_kms"
	SlotAzureKV = "azure_kv"
	SlotHCVault = "hc_vault"
	SlotAge     = "age"
	SlotPGP     = "pgp"
)

// SlotKind tells how a backend slot can be used.
type SlotKind int

const (
	// SlotUnconfigured is a null, absent or empty slot.
	SlotUnconfigured SlotKind = iota
	// SlotKeyVault holds asymmetric key vault entries.
	SlotKeyVault
	// SlotUnsupported holds entries of a backend this package cannot use.
	SlotUnsupported
)

func (k SlotKind) String() string {
	switch k {
	case SlotKeyVault:
		return "key vault"
	case SlotUnsupported:
		return "unsupported"
	default:
		return "unconfigured"
	}
}

// BackendSlot is one backend slot of the metadata block.
type BackendSlot struct {
	Name string
	Kind SlotKind

	// Entries is set for SlotKeyVault.
	Entries []KeyVaultEntry

	// Raw is set for SlotUnsupported.
	Raw []map[string]any
}

// Len returns the number of configured entries.
func (s BackendSlot) Len() int {
	if s.Kind == SlotKeyVault {
		return len(s.Entries)
	}
	return len(s.Raw)
}

// Slots returns all backend slots in a fixed order.
func (m *Metadata) Slots() []BackendSlot {
	slots := []BackendSlot{
		unsupportedSlot(SlotKMS, m.KMS),
		unsupportedSlot(SlotGCPKMS, m.GCPKMS),
		{Name: SlotAzureKV},
		unsupportedSlot(SlotHCVault, m.HCVault),
		unsupportedSlot(SlotAge, m.Age),
		unsupportedSlot(SlotPGP, m.PGP),
	}
	if len(m.AzureKV) > 0 {
		slots[2].Kind = SlotKeyVault
		slots[2].Entries = m.AzureKV
	}
	return slots
}

func unsupportedSlot(name string, raw []map[string]any) BackendSlot {
	if len(raw) == 0 {
		return BackendSlot{Name: name}
	}
	return BackendSlot{Name: name, Kind: SlotUnsupported, Raw: raw}
}
