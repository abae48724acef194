package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLayers is returned when Resolve receives no layers at all.
	ErrNoLayers = errors.New("at least one configuration layer is required")
	// ErrMissingSecret matches every *MissingSecretError.
	ErrMissingSecret = errors.New("missing secret")
	// ErrIncompleteConfig matches every *IncompleteConfigError.
	ErrIncompleteConfig = errors.New("incomplete configuration")
)

// MissingSecretError reports a secret reference the runtime source could not satisfy.
type MissingSecretError struct {
	Key    string // dotted path holding the reference, e.g. "gtag.id"
	Secret string // referenced name, e.g. "GTAG_ID"
	Source string // name of the consulted secret source
}

func (e *MissingSecretError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: secret %s is not set", e.Key, e.Secret)
	}
	return fmt.Sprintf("%s: secret %s is not set in %s", e.Key, e.Secret, e.Source)
}

// Is makes errors.Is(err, ErrMissingSecret) work.
func (e *MissingSecretError) Is(target error) bool {
	return target == ErrMissingSecret
}

// IncompleteConfigError reports a schema key left without a defined value.
type IncompleteConfigError struct {
	Key string
}

func (e *IncompleteConfigError) Error() string {
	return fmt.Sprintf("%s: required but no layer defines it", e.Key)
}

// Is makes errors.Is(err, ErrIncompleteConfig) work.
func (e *IncompleteConfigError) Is(target error) bool {
	return target == ErrIncompleteConfig
}
