package layer

import "errors"

var (
	// ErrUnsupportedFormat is returned when a layer file has an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported layer format")
	// ErrNotMapping is returned when a document's top level is not a key/value mapping.
	ErrNotMapping = errors.New("layer document must be a mapping")
	// ErrUnsupportedValue is returned for values that cannot be represented in a document.
	ErrUnsupportedValue = errors.New("unsupported value type")
	// ErrInvalidPair is returned when a key=value override is malformed.
	ErrInvalidPair = errors.New("override must have the form key=value")
	// ErrInvalidKey is returned for empty keys and keys with empty path segments.
	ErrInvalidKey = errors.New("invalid configuration key")
	// ErrKeyConflict is returned when a dotted key and a nested key disagree on
	// whether a path holds a value or an object.
	ErrKeyConflict = errors.New("conflicting configuration keys")
)
