package sops

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"gopkg.in/yaml.v3"
)

// MetadataKey is the top-level key holding the backend configuration.
const MetadataKey = "sops"

// Document is a parsed SOPS document. It is not modified after Parse.
type Document struct {
	Metadata Metadata

	// Content holds every top-level key except MetadataKey, in document order.
	Content []Item
}

// Item is one top-level entry of the document content.
type Item struct {
	Key  string
	Node *yaml.Node
}

// Metadata is the backend configuration block stored under MetadataKey.
type Metadata struct {
	KMS     []map[string]any `yaml:"kms"`
	GCPKMS  []map[string]any `yaml:"gcp_kms"`
	AzureKV []KeyVaultEntry  `yaml:"azure_kv"`
	HCVault []map[string]any `yaml:"hc_vault"`
	Age     []map[string]any `yaml:"age"`
	PGP     []map[string]any `yaml:"pgp"`

	LastModified      string `yaml:"lastmodified"`
	MAC               string `yaml:"mac"`
	UnencryptedSuffix string `yaml:"unencrypted_suffix"`
	EncryptedSuffix   string `yaml:"encrypted_suffix"`
	UnencryptedRegex  string `yaml:"unencrypted_regex"`
	EncryptedRegex    string `yaml:"encrypted_regex"`
	Version           string `yaml:"version"`

	// Modified is LastModified parsed as RFC 3339.
	Modified time.Time `yaml:"-"`

	unencryptedRe *regexp.Regexp
	encryptedRe   *regexp.Regexp
}

// KeyVaultEntry is one wrapped copy of the data key held by an asymmetric
// key vault.
type KeyVaultEntry struct {
	VaultURL  string `yaml:"vault_url"`
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	CreatedAt string `yaml:"created_at"`
	Enc       string `yaml:"enc"`
}

// Parse reads a SOPS document in JSON or YAML form.
//
// Returns ErrFormat if the document is not a mapping, lacks the metadata
// block or the metadata is malformed.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrFormat, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", kerrors.ErrFormat)
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document root must be a mapping", kerrors.ErrFormat)
	}

	if err := checkUniqueKeys(top, ""); err != nil {
		return nil, err
	}

	doc := &Document{}
	var meta *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		if key.Value == MetadataKey {
			meta = value
			continue
		}
		doc.Content = append(doc.Content, Item{Key: key.Value, Node: value})
	}

	if meta == nil {
		return nil, fmt.Errorf("%w: missing %q metadata", kerrors.ErrFormat, MetadataKey)
	}
	if meta.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %q metadata must be a mapping", kerrors.ErrFormat, MetadataKey)
	}
	if err := checkMetadataTypes(meta); err != nil {
		return nil, err
	}
	if err := meta.Decode(&doc.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %q metadata: %v", kerrors.ErrFormat, MetadataKey, err)
	}
	if err := doc.Metadata.validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// IsSopsDocument reports whether data parses as a mapping with a
// MetadataKey entry.
func IsSopsDocument(data []byte) bool {
	var content map[string]any
	if err := yaml.Unmarshal(data, &content); err != nil {
		return false
	}
	_, ok := content[MetadataKey]
	return ok
}

// checkUniqueKeys rejects mappings that define the same key twice, at any
// depth. yaml.v3 only checks this when decoding into Go values.
func checkUniqueKeys(node *yaml.Node, name string) error {
	switch node.Kind {
	case yaml.MappingNode:
		seen := make(map[string]bool, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			path := key
			if name != "" {
				path = name + "." + key
			}
			if seen[key] {
				return fmt.Errorf("%w: key %q is defined more than once", kerrors.ErrFormat, path)
			}
			seen[key] = true
			if err := checkUniqueKeys(node.Content[i+1], path); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			if err := checkUniqueKeys(child, name+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkMetadataTypes rejects non-string scalars in string metadata fields.
// Decoding into a string field would otherwise accept any scalar.
func checkMetadataTypes(meta *yaml.Node) error {
	for i := 0; i+1 < len(meta.Content); i += 2 {
		key, value := meta.Content[i].Value, meta.Content[i+1]
		switch key {
		case "lastmodified":
			if err := expectString(key, value, true); err != nil {
				return err
			}
		case "mac", "version", "unencrypted_suffix", "encrypted_suffix", "unencrypted_regex", "encrypted_regex":
			if err := expectString(key, value, false); err != nil {
				return err
			}
		case SlotAzureKV:
			if value.Kind != yaml.SequenceNode {
				continue
			}
			for n, entry := range value.Content {
				if entry.Kind != yaml.MappingNode {
					continue
				}
				for j := 0; j+1 < len(entry.Content); j += 2 {
					field := entry.Content[j].Value
					switch field {
					case "vault_url", "name", "version", "enc", "created_at":
						name := fmt.Sprintf("%s[%d].%s", SlotAzureKV, n, field)
						if err := expectString(name, entry.Content[j+1], field == "created_at"); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

// expectString accepts string and null scalars. Unquoted YAML timestamps are
// accepted where allowTimestamp is set, since they keep their text.
func expectString(name string, node *yaml.Node, allowTimestamp bool) error {
	if node.Kind == yaml.ScalarNode {
		switch node.ShortTag() {
		case "!!str", "!!null":
			return nil
		case "!!timestamp":
			if allowTimestamp {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: metadata field %q must be a string", kerrors.ErrFormat, name)
}

func (m *Metadata) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"lastmodified", m.LastModified},
		{"mac", m.MAC},
		{"version", m.Version},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: metadata field %q is required", kerrors.ErrFormat, r.name)
		}
	}

	modified, err := time.Parse(time.RFC3339, m.LastModified)
	if err != nil {
		return fmt.Errorf("%w: lastmodified: %v", kerrors.ErrFormat, err)
	}
	m.Modified = modified

	for i, e := range m.AzureKV {
		if e.VaultURL == "" || e.Name == "" || e.Enc == "" {
			return fmt.Errorf("%w: azure_kv entry %d needs vault_url, name and enc", kerrors.ErrFormat, i)
		}
	}

	if m.UnencryptedRegex != "" {
		if m.unencryptedRe, err = regexp.Compile(m.UnencryptedRegex); err != nil {
			return fmt.Errorf("%w: unencrypted_regex: %v", kerrors.ErrFormat, err)
		}
	}
	if m.EncryptedRegex != "" {
		if m.encryptedRe, err = regexp.Compile(m.EncryptedRegex); err != nil {
			return fmt.Errorf("%w: encrypted_regex: %v", kerrors.ErrFormat, err)
		}
	}

	return nil
}

// encrypts reports whether a value below the given keys is expected to be
// encrypted. The first key that matches a rule decides.
func (m *Metadata) encrypts(keys []string) bool {
	for _, k := range keys {
		switch {
		case m.UnencryptedSuffix != "" && strings.HasSuffix(k, m.UnencryptedSuffix):
			return false
		case m.EncryptedSuffix != "" && strings.HasSuffix(k, m.EncryptedSuffix):
			return true
		case m.unencryptedRe != nil && m.unencryptedRe.MatchString(k):
			return false
		case m.encryptedRe != nil && m.encryptedRe.MatchString(k):
			return true
		}
	}
	return m.EncryptedSuffix == "" && m.encryptedRe == nil
}

// Keys returns the top-level content keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.Content))
	for i, item := range d.Content {
		keys[i] = item.Key
	}
	return keys
}

// Leaf is one scalar of the document content.
type Leaf struct {
	// Name identifies the leaf for display: keys joined with ".", sequence
	// items as "[i]".
	Name string

	// Path is the authenticated key path: mapping keys joined with ":".
	// Sequence items share the path of their parent key.
	Path string

	// Raw is the scalar text as stored in the document.
	Raw string

	// Tag is the YAML short tag of the scalar, such as "!!str" or "!!int".
	Tag string

	// Encrypted reports whether Raw must be an ENC[...] value.
	Encrypted bool
}

// Leaves walks the content in document order and returns every scalar.
func (d *Document) Leaves() []Leaf {
	var leaves []Leaf
	for _, item := range d.Content {
		leaves = d.walk(leaves, item.Node, []string{item.Key}, item.Key)
	}
	return leaves
}

func (d *Document) walk(leaves []Leaf, node *yaml.Node, keys []string, name string) []Leaf {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			leaves = d.walk(leaves, node.Content[i+1], append(keys[:len(keys):len(keys)], key), name+"."+key)
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			leaves = d.walk(leaves, child, keys, name+"["+strconv.Itoa(i)+"]")
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			leaves = d.walk(leaves, node.Alias, keys, name)
		}
	case yaml.ScalarNode:
		leaves = append(leaves, Leaf{
			Name:      name,
			Path:      strings.Join(keys, ":"),
			Raw:       node.Value,
			Tag:       node.ShortTag(),
			Encrypted: node.ShortTag() == "!!str" && d.Metadata.encrypts(keys),
		})
	}
	return leaves
}
