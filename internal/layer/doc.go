// Package layer defines named, immutable configuration documents. A layer is
// a nested key/value tree addressed by dotted paths ("bugsnag.config.apiKey").
// Layers are built from map literals, YAML or JSON files, schema-guided
// environment overrides and command-line key=value pairs; the resolver folds
// them in order.
package layer
