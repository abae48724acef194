package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/resolver"
	"github.com/eugenenazirov/siteconfig/internal/secret"
)

func resolvedFixture(t *testing.T) resolver.Config {
	t.Helper()

	base := layer.MustNew("base", map[string]any{
		"docus": map[string]any{"title": "Portfolio", "aside": map[string]any{"level": 0}},
		"gtag":  map[string]any{"id": "SECRET:GTAG_ID"},
		"nuxt":  map[string]any{"modules": []any{"@nuxt/fonts", "nuxt-gtag"}},
	})
	cfg, err := resolver.Resolve([]layer.Layer{base}, secret.Map("test", map[string]string{"GTAG_ID": "G-TEST123"}))
	if err != nil {
		t.Fatalf("resolve fixture: %v", err)
	}
	return cfg
}

func TestMemoryStorageEmptyUntilSaved(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	if _, err := store.Load(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	cfg := resolvedFixture(t)
	if err := store.Save(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(cfg) {
		t.Fatalf("expected stored config to equal saved config")
	}
}

func TestMemoryStorageRejectsZeroConfig(t *testing.T) {
	t.Parallel()

	if err := NewMemoryStorage().Save(resolver.Config{}); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	cfg := resolvedFixture(t)
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			if err := store.Save(cfg); err != nil {
				t.Errorf("Save failed: %v", err)
			}
		}()

		go func() {
			defer wg.Done()
			if got, err := store.Load(); err == nil {
				if title, _ := got.String("docus.title"); title != "Portfolio" {
					t.Errorf("unexpected title %q", title)
				}
			}
		}()
	}

	wg.Wait()

	if _, err := store.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "yaml"} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "out", "site."+format)
			store, err := NewFileStorage(path, format)
			if err != nil {
				t.Fatalf("NewFileStorage returned error: %v", err)
			}

			cfg := resolvedFixture(t)
			if err := store.Save(cfg); err != nil {
				t.Fatalf("Save returned error: %v", err)
			}

			if _, err := os.Stat(path); err != nil {
				t.Fatalf("expected output file: %v", err)
			}

			got, err := store.Load()
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if diff := cmp.Diff(cfg.Map(), got.Map()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
			if src, _ := got.Source("docus.title"); src != "file:"+path {
				t.Fatalf("unexpected provenance %q", src)
			}
		})
	}
}

func TestFileStorageLoadMissingFile(t *testing.T) {
	t.Parallel()

	store, err := NewFileStorage(filepath.Join(t.TempDir(), "missing.json"), "json")
	if err != nil {
		t.Fatalf("NewFileStorage returned error: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestNewFileStorageRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewFileStorage("out.toml", "toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestEncodeWritesRealSecretValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, resolvedFixture(t), "yaml"); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "G-TEST123") {
		t.Fatalf("expected substituted secret in output, got:\n%s", buf.String())
	}
}
