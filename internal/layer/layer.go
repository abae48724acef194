package layer

import (
	"fmt"
)

// Layer is one named configuration source. The document is private and every
// accessor hands out copies, so a Layer never changes after construction.
type Layer struct {
	name string
	doc  map[string]any
}

// New builds a layer from a nested document. The document is normalized and
// deep-copied; later changes to doc do not affect the layer.
func New(name string, doc map[string]any) (Layer, error) {
	normalized, err := Normalize(doc)
	if err != nil {
		return Layer{}, fmt.Errorf("layer %s: %w", name, err)
	}

	m, _ := normalized.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return Layer{name: name, doc: m}, nil
}

// MustNew is like New but panics on error. Intended for static literals.
func MustNew(name string, doc map[string]any) Layer {
	l, err := New(name, doc)
	if err != nil {
		panic(err)
	}
	return l
}

// Name identifies the layer in provenance and error messages.
func (l Layer) Name() string {
	return l.name
}

// Doc returns a deep copy of the layer document.
func (l Layer) Doc() map[string]any {
	if l.doc == nil {
		return map[string]any{}
	}
	return cloneMap(l.doc)
}

// Get returns a copy of the value stored at path.
func (l Layer) Get(path string) (any, bool) {
	v, ok := Lookup(l.doc, path)
	if !ok {
		return nil, false
	}
	return Clone(v), true
}

// Paths returns the sorted leaf paths of the layer.
func (l Layer) Paths() []string {
	return Leaves(l.doc)
}

// Len reports the number of leaf paths.
func (l Layer) Len() int {
	return len(l.Paths())
}
