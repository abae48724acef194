package config

import "errors"

// Validation errors returned by Load when the merged settings are unusable.
var (
	// ErrInvalidFormat indicates an output format other than json or yaml.
	ErrInvalidFormat = errors.New("output format must be json or yaml")
	// ErrInvalidRateLimit indicates a negative rate limit setting.
	ErrInvalidRateLimit = errors.New("rate limit settings must be >= 0")
	// ErrInvalidLogLevel indicates a log level zap does not recognise.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrEmptyPort indicates the HTTP port was cleared.
	ErrEmptyPort = errors.New("port cannot be empty")
)
