package layer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into a layer. An empty document yields an empty layer.
func ParseYAML(name string, data []byte) (Layer, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Layer{}, fmt.Errorf("parse YAML layer %s: %w", name, err)
	}
	return fromDecoded(name, raw)
}

// ParseJSON decodes a JSON document into a layer. Integral numbers become ints.
func ParseJSON(name string, data []byte) (Layer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(name, nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Layer{}, fmt.Errorf("parse JSON layer %s: %w", name, err)
	}
	return fromDecoded(name, raw)
}

// Load reads a layer file. The decoder is chosen by extension and the layer
// is named after the file ("file:site.prod.yaml").
func Load(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("read layer file: %w", err)
	}

	name := "file:" + filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(name, data)
	case ".json":
		return ParseJSON(name, data)
	default:
		return Layer{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// FromPairs builds a layer from key=value overrides such as
// "docus.title=My Site" or "docus.aside.level=1". Keys are dotted paths;
// values are parsed with ParseValue.
func FromPairs(name string, pairs []string) (Layer, error) {
	doc := make(map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Layer{}, fmt.Errorf("%w: %q", ErrInvalidPair, pair)
		}
		for _, seg := range Split(key) {
			if seg == "" {
				return Layer{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPair, key)
			}
		}
		set(doc, key, ParseValue(raw))
	}
	return New(name, doc)
}

// ParseValue interprets a raw override string. Booleans and numbers become
// typed scalars, flow collections ("[a, b]", "{k: v}") are decoded as YAML,
// and everything else stays the raw string.
func ParseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	var v any
	if err := yaml.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		if n, err := Normalize(v); err == nil {
			return n
		}
		return raw
	}

	switch v.(type) {
	case bool, int, float64:
		n, _ := Normalize(v)
		return n
	default:
		return raw
	}
}

func fromDecoded(name string, raw any) (Layer, error) {
	if raw == nil {
		return New(name, nil)
	}

	normalized, err := Normalize(raw)
	if err != nil {
		return Layer{}, fmt.Errorf("layer %s: %w", name, err)
	}

	doc, ok := normalized.(map[string]any)
	if !ok {
		return Layer{}, fmt.Errorf("layer %s: %w", name, ErrNotMapping)
	}
	return New(name, doc)
}
