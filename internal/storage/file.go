package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/resolver"
)

// ErrUnknownFormat is returned for formats other than json and yaml.
var ErrUnknownFormat = errors.New("unknown output format")

// FileStorage writes the resolved document to a file the site build reads.
type FileStorage struct {
	path   string
	format string
}

// NewFileStorage returns a store writing format ("json" or "yaml") to path.
func NewFileStorage(path, format string) (*FileStorage, error) {
	if format != "json" && format != "yaml" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &FileStorage{path: path, format: format}, nil
}

// Path returns the output file path.
func (f *FileStorage) Path() string {
	return f.path
}

// Save writes cfg atomically: readers see either the old file or the new one.
func (f *FileStorage) Save(cfg resolver.Config) error {
	if cfg.IsZero() {
		return ErrUnresolved
	}

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	pendingFile, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending output file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if err := Encode(pendingFile, cfg, f.format); err != nil {
		return err
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace output file: %w", err)
	}
	return nil
}

// Load reads the output file back. Provenance of every leaf is "file:<path>".
func (f *FileStorage) Load() (resolver.Config, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return resolver.Config{}, ErrEmpty
		}
		return resolver.Config{}, fmt.Errorf("read output file: %w", err)
	}

	name := "file:" + f.path
	var l layer.Layer
	switch f.format {
	case "yaml":
		l, err = layer.ParseYAML(name, data)
	default:
		l, err = layer.ParseJSON(name, data)
	}
	if err != nil {
		return resolver.Config{}, err
	}
	return resolver.FromDocument(name, l.Doc())
}

// Encode writes the real (unmasked) document to w in the given format.
func Encode(w io.Writer, cfg resolver.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}
