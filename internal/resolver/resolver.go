package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/secret"
)

// Option configures Resolve and Audit.
type Option func(*options)

type options struct {
	secretPrefix string
	required     []string
}

// WithSecretPrefix changes the marker that identifies secret references.
func WithSecretPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.secretPrefix = prefix
		}
	}
}

// WithRequired adds paths to the schema on top of the base layer's leaves.
func WithRequired(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				o.required = append(o.required, p)
			}
		}
	}
}

func newOptions(opts []Option) options {
	o := options{secretPrefix: secret.DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// sourceTracker is implemented by sources that can tell which backend answered.
type sourceTracker interface {
	LookupFrom(name string) (value, source string, ok bool)
}

// Resolve merges layers in order, substitutes secret references from source
// and validates the result against the schema of the first layer.
//
// Objects merge recursively; any other value (scalar, array, or a type
// mismatch in either direction) from a later layer replaces the earlier one.
// A nil value in a later layer, or an object holding only nils, does not
// define its key.
func Resolve(layers []layer.Layer, source secret.Source, opts ...Option) (Config, error) {
	if len(layers) == 0 {
		return Config{}, ErrNoLayers
	}
	o := newOptions(opts)

	base := layers[0]
	doc := base.Doc()
	origin := make(map[string]string)
	for _, path := range base.Paths() {
		origin[path] = base.Name()
	}

	for _, l := range layers[1:] {
		mergeInto(doc, l.Doc(), "", l.Name(), origin)
	}

	secrets := make(map[string]struct{})
	s := substituter{source: source, prefix: o.secretPrefix, origin: origin, secrets: secrets}
	if err := s.walkMap(doc, ""); err != nil {
		return Config{}, err
	}

	if err := validate(doc, schema(base, o.required), o.secretPrefix, secrets); err != nil {
		return Config{}, err
	}

	provenance := make(map[string]string)
	for _, path := range layer.Leaves(doc) {
		provenance[path] = origin[path]
	}

	return Config{doc: doc, provenance: provenance, secrets: secrets}, nil
}

func mergeInto(dst, src map[string]any, prefix, name string, origin map[string]string) {
	for _, key := range sortedKeys(src) {
		value := src[key]
		if !defines(value) {
			continue
		}
		path := layer.Join(prefix, key)

		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeInto(dstMap, srcMap, path, name, origin)
				continue
			}
			dropOrigin(origin, path)
			replaced := make(map[string]any, len(srcMap))
			dst[key] = replaced
			mergeInto(replaced, srcMap, path, name, origin)
			if len(replaced) == 0 {
				origin[path] = name
			}
			continue
		}

		dropOrigin(origin, path)
		dst[key] = value
		origin[path] = name
	}
}

// defines reports whether value sets anything: nil does not, and neither does
// an object whose every leaf is nil. An empty object is a value of its own.
func defines(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case map[string]any:
		if len(v) == 0 {
			return true
		}
		for _, child := range v {
			if defines(child) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func dropOrigin(origin map[string]string, path string) {
	delete(origin, path)
	nested := path + layer.Separator
	for key := range origin {
		if strings.HasPrefix(key, nested) {
			delete(origin, key)
		}
	}
}

type substituter struct {
	source  secret.Source
	prefix  string
	origin  map[string]string
	secrets map[string]struct{}
}

func (s substituter) walkMap(m map[string]any, prefix string) error {
	for _, key := range sortedKeys(m) {
		path := layer.Join(prefix, key)
		value, err := s.visit(m[key], path, path)
		if err != nil {
			return err
		}
		m[key] = value
	}
	return nil
}

// visit returns value with references replaced. leaf is the provenance path
// owning value; for array elements it is the array's path.
func (s substituter) visit(value any, path, leaf string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if err := s.walkMap(v, path); err != nil {
			return nil, err
		}
		return v, nil
	case []any:
		for i, item := range v {
			replaced, err := s.visit(item, fmt.Sprintf("%s[%d]", path, i), leaf)
			if err != nil {
				return nil, err
			}
			v[i] = replaced
		}
		return v, nil
	}

	name, ok := secret.ParseRef(value, s.prefix)
	if !ok {
		return value, nil
	}

	resolved, from, found := s.lookup(name)
	if !found {
		return nil, &MissingSecretError{Key: path, Secret: name, Source: s.sourceName()}
	}
	s.secrets[path] = struct{}{}
	if path == leaf {
		s.origin[leaf] = "secret:" + from
	}
	return resolved, nil
}

func (s substituter) lookup(name string) (string, string, bool) {
	if s.source == nil || name == "" {
		return "", "", false
	}
	if tracker, ok := s.source.(sourceTracker); ok {
		return tracker.LookupFrom(name)
	}
	v, ok := s.source.Lookup(name)
	return v, s.source.Name(), ok
}

func (s substituter) sourceName() string {
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}

func schema(base layer.Layer, required []string) []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, p := range append(base.Paths(), required...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func validate(doc map[string]any, paths []string, prefix string, secrets map[string]struct{}) error {
	for _, path := range paths {
		value, ok := layer.Lookup(doc, path)
		if !ok || value == nil {
			return &IncompleteConfigError{Key: path}
		}
		if _, substituted := secrets[path]; substituted {
			continue
		}
		if _, isRef := secret.ParseRef(value, prefix); isRef {
			return &IncompleteConfigError{Key: path}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
