// Package secret recognizes secret references in configuration values and
// looks them up in runtime sources such as the process environment or a
// .env file.
package secret

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPrefix marks a string value as a reference to a runtime secret.
const DefaultPrefix = "SECRET:"

// Source supplies secret values by name.
type Source interface {
	Lookup(name string) (string, bool)
	Name() string
}

// ParseRef reports whether value is a secret reference under prefix and
// returns the referenced name. The name may be empty ("SECRET:"); such a
// reference can never be satisfied.
func ParseRef(value any, prefix string) (string, bool) {
	s, ok := value.(string)
	if !ok || prefix == "" || !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(s, prefix)), true
}

type funcSource struct {
	name   string
	lookup func(string) (string, bool)
}

// Env returns a Source backed by the process environment.
func Env() Source {
	return Func("env", os.LookupEnv)
}

// Func adapts a lookup function such as os.LookupEnv into a Source.
func Func(name string, lookup func(string) (string, bool)) Source {
	return &funcSource{name: name, lookup: lookup}
}

func (f *funcSource) Lookup(name string) (string, bool) {
	if name == "" || f.lookup == nil {
		return "", false
	}
	return f.lookup(name)
}

func (f *funcSource) Name() string {
	return f.name
}

// MapSource serves secrets from a fixed map.
type MapSource struct {
	name   string
	values map[string]string
}

// Map returns a Source over a copy of values.
func Map(name string, values map[string]string) *MapSource {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapSource{name: name, values: copied}
}

// Lookup implements Source.
func (m *MapSource) Lookup(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Name implements Source.
func (m *MapSource) Name() string {
	return m.name
}

// Dotenv reads a .env file once and serves its entries.
func Dotenv(path string) (*MapSource, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read dotenv file: %w", err)
	}
	return Map("dotenv:"+path, values), nil
}

// ChainSource consults its sources in order; the first hit wins.
type ChainSource struct {
	sources []Source
}

// Chain combines sources. Nil entries are ignored.
func Chain(sources ...Source) *ChainSource {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &ChainSource{sources: kept}
}

// Lookup implements Source.
func (c *ChainSource) Lookup(name string) (string, bool) {
	v, _, ok := c.LookupFrom(name)
	return v, ok
}

// LookupFrom is like Lookup but also names the source that answered.
func (c *ChainSource) LookupFrom(name string) (string, string, bool) {
	for _, s := range c.sources {
		if v, ok := s.Lookup(name); ok {
			return v, s.Name(), true
		}
	}
	return "", "", false
}

// Name implements Source.
func (c *ChainSource) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}
