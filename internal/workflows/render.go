package workflows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	kerrors "github.com/PolarWolf314/mops/internal/errors"
	"github.com/PolarWolf314/mops/internal/sops"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatDotenv = "dotenv"
)

var dotenvUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Render writes the decrypted values of every successful document to w.
//
// A single document renders as a flat name to value mapping. Several
// documents render as one mapping per path (json, yaml) or as consecutive
// blocks headed by a comment (dotenv).
func Render(w io.Writer, format string, files []*FileResult) error {
	var ok []*FileResult
	for _, f := range files {
		if f.Values != nil {
			ok = append(ok, f)
		}
	}
	if len(ok) == 0 {
		return nil
	}

	switch format {
	case FormatJSON:
		return renderJSON(w, ok)
	case FormatYAML:
		return renderYAML(w, ok)
	case FormatDotenv:
		return renderDotenv(w, ok)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderJSON(w io.Writer, files []*FileResult) error {
	var buf bytes.Buffer
	if len(files) == 1 {
		if err := writeJSONObject(&buf, files[0].Values.Values, ""); err != nil {
			return err
		}
	} else {
		buf.WriteString("{\n")
		for i, f := range files {
			key, err := json.Marshal(f.Path)
			if err != nil {
				return err
			}
			buf.WriteString("  ")
			buf.Write(key)
			buf.WriteString(": ")
			if err := writeJSONObject(&buf, f.Values.Values, "  "); err != nil {
				return err
			}
			if i < len(files)-1 {
				buf.WriteString(",")
			}
			buf.WriteString("\n")
		}
		buf.WriteString("}")
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// writeJSONObject writes values as a JSON object in document order, which
// encoding/json cannot do for maps.
func writeJSONObject(buf *bytes.Buffer, values []sops.Value, indent string) error {
	if len(values) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	for i, v := range values {
		key, err := json.Marshal(v.Name)
		if err != nil {
			return err
		}
		text, err := jsonValue(v)
		if err != nil {
			return err
		}
		buf.WriteString(indent + "  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(text)
		if i < len(values)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString(indent + "}")
	return nil
}

// nativeTag returns the YAML tag a value is rendered with. Values stored in
// clear keep their scalar type; everything else is a string.
func nativeTag(v sops.Value) string {
	if v.Encrypted {
		return "!!str"
	}
	switch v.Tag {
	case "!!int", "!!float", "!!bool", "!!null":
		return v.Tag
	default:
		return "!!str"
	}
}

func jsonValue(v sops.Value) ([]byte, error) {
	switch tag := nativeTag(v); tag {
	case "!!null":
		return []byte("null"), nil
	case "!!int", "!!float", "!!bool":
		var native any
		node := yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.Text}
		if err := node.Decode(&native); err == nil {
			if b, err := json.Marshal(native); err == nil {
				return b, nil
			}
		}
	}
	return json.Marshal(v.Text)
}

func yamlMapping(values []sops.Value) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, v := range values {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: nativeTag(v), Value: v.Text},
		)
	}
	return node
}

func renderYAML(w io.Writer, files []*FileResult) error {
	var root *yaml.Node
	if len(files) == 1 {
		root = yamlMapping(files[0].Values.Values)
	} else {
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range files {
			root.Content = append(root.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Path},
				yamlMapping(f.Values.Values),
			)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// DotenvKey turns a leaf name into an environment variable name.
func DotenvKey(name string) string {
	return strings.Trim(dotenvUnsafe.ReplaceAllString(name, "_"), "_")
}

// dotenvMap maps every value to its variable name. Names that sanitize to
// nothing, or to the name of another value, are errors.
func dotenvMap(path string, values []sops.Value) (map[string]string, error) {
	env := make(map[string]string, len(values))
	owners := make(map[string]string, len(values))
	for _, v := range values {
		key := DotenvKey(v.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: %s: %q has no usable dotenv name", kerrors.ErrOutputName, path, v.Name)
		}
		if prev, ok := owners[key]; ok {
			return nil, fmt.Errorf("%w: %s: %q and %q both map to %s", kerrors.ErrOutputName, path, prev, v.Name, key)
		}
		owners[key] = v.Name

		text := v.Text
		if nativeTag(v) == "!!null" {
			text = ""
		}
		env[key] = text
	}
	return env, nil
}

func renderDotenv(w io.Writer, files []*FileResult) error {
	var buf bytes.Buffer
	for i, f := range files {
		env, err := dotenvMap(f.Path, f.Values.Values)
		if err != nil {
			return err
		}
		content, err := godotenv.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to encode dotenv: %w", err)
		}

		if len(files) > 1 {
			if i > 0 {
				buf.WriteString("\n")
			}
			fmt.Fprintf(&buf, "# %s\n", f.Path)
		}
		buf.WriteString(content + "\n")
	}
	_, err := w.Write(buf.Bytes())
	return err
}
