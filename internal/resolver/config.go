package resolver

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/eugenenazirov/siteconfig/internal/layer"
)

// MaskValue replaces secret-derived and sensitive values in Masked output.
const MaskValue = "***"

// Config is a fully merged, substituted and validated configuration document.
// It is never modified after Resolve returns; every accessor hands out copies,
// so a Config can be shared by any number of readers without locking.
type Config struct {
	doc        map[string]any
	provenance map[string]string
	secrets    map[string]struct{}
}

// FromDocument wraps an already resolved document, for example one read back
// from disk. Every leaf is attributed to source; secret origins are unknown.
func FromDocument(source string, doc map[string]any) (Config, error) {
	l, err := layer.New(source, doc)
	if err != nil {
		return Config{}, err
	}

	provenance := make(map[string]string)
	for _, path := range l.Paths() {
		provenance[path] = source
	}
	return Config{doc: l.Doc(), provenance: provenance, secrets: map[string]struct{}{}}, nil
}

// IsZero reports whether c was never resolved.
func (c Config) IsZero() bool {
	return c.doc == nil
}

// Get returns a copy of the value at a dotted path.
func (c Config) Get(path string) (any, bool) {
	v, ok := layer.Lookup(c.doc, path)
	if !ok {
		return nil, false
	}
	return layer.Clone(v), true
}

// String returns the string at path; ok is false when missing or not a string.
func (c Config) String(path string) (string, bool) {
	v, ok := layer.Lookup(c.doc, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the boolean at path.
func (c Config) Bool(path string) (bool, bool) {
	v, ok := layer.Lookup(c.doc, path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int returns the integer at path.
func (c Config) Int(path string) (int, bool) {
	v, ok := layer.Lookup(c.doc, path)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Keys returns the sorted leaf paths of the document.
func (c Config) Keys() []string {
	return layer.Leaves(c.doc)
}

// Len reports the number of leaf paths.
func (c Config) Len() int {
	return len(c.provenance)
}

// Map returns a deep copy of the whole document.
func (c Config) Map() map[string]any {
	if c.doc == nil {
		return map[string]any{}
	}
	return layer.Clone(c.doc).(map[string]any)
}

// Source names the layer that supplied the leaf at path, or "secret:<source>"
// when the value was substituted from a secret source.
func (c Config) Source(path string) (string, bool) {
	s, ok := c.provenance[path]
	return s, ok
}

// Provenance returns a copy of the leaf path to source mapping.
func (c Config) Provenance() map[string]string {
	out := make(map[string]string, len(c.provenance))
	for k, v := range c.provenance {
		out[k] = v
	}
	return out
}

// IsSecret reports whether the value at path (or an array element such as
// "modules[1]") was substituted from a secret source.
func (c Config) IsSecret(path string) bool {
	_, ok := c.secrets[path]
	return ok
}

// SecretPaths lists the substituted paths in sorted order.
func (c Config) SecretPaths() []string {
	paths := make([]string, 0, len(c.secrets))
	for p := range c.secrets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Masked returns a copy of the document with substituted secrets and values
// under sensitive keys replaced by MaskValue. Safe to log or serve.
func (c Config) Masked() map[string]any {
	out := c.Map()
	c.maskMap(out, "")
	return out
}

func (c Config) maskMap(m map[string]any, prefix string) {
	for key, value := range m {
		path := layer.Join(prefix, key)
		m[key] = c.maskValue(value, path, isSensitiveKey(key))
	}
}

func (c Config) maskValue(value any, path string, sensitive bool) any {
	switch v := value.(type) {
	case map[string]any:
		c.maskMap(v, path)
		return v
	case []any:
		for i, item := range v {
			v[i] = c.maskValue(item, fmt.Sprintf("%s[%d]", path, i), sensitive)
		}
		return v
	case string:
		if c.IsSecret(path) || (sensitive && v != "") {
			return MaskValue
		}
	}
	return value
}

// Equal reports value equality of two documents.
func (c Config) Equal(other Config) bool {
	return reflect.DeepEqual(c.Map(), other.Map())
}

// MarshalJSON encodes the document with real values. Use Masked for display.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// MarshalYAML implements yaml.Marshaler with real values.
func (c Config) MarshalYAML() (any, error) {
	return c.Map(), nil
}
