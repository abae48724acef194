package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/siteconfig/internal/api"
	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/resolver"
	"github.com/eugenenazirov/siteconfig/internal/secret"
	"github.com/eugenenazirov/siteconfig/internal/site"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

const productionLayer = `
docus:
  title: Production Portfolio
  aside:
    level: 1
nuxt:
  devtools:
    enabled: false
`

func resolveProduction(t *testing.T) resolver.Config {
	t.Helper()

	t.Setenv("GTAG_ID", "G-INTEGRATION")
	t.Setenv("BUGSNAG_API_KEY", "bugsnag-integration")
	t.Setenv("NODE_ENV", "production")

	path := filepath.Join(t.TempDir(), "production.yaml")
	if err := os.WriteFile(path, []byte(productionLayer), 0o600); err != nil {
		t.Fatalf("write layer: %v", err)
	}
	prod, err := layer.Load(path)
	if err != nil {
		t.Fatalf("load layer: %v", err)
	}
	cli, err := layer.FromPairs("cli", []string{"site.url=https://portfolio.example"})
	if err != nil {
		t.Fatalf("parse pairs: %v", err)
	}

	cfg, err := resolver.Resolve([]layer.Layer{site.Defaults(), prod, cli}, secret.Env())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return cfg
}

func newRouter(t *testing.T, store storage.Storage) http.Handler {
	t.Helper()

	handler := api.NewHandler(store)
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger, api.WithRegistry(prometheus.NewRegistry()))
}

func performRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestResolvePublishAndServe(t *testing.T) {
	cfg := resolveProduction(t)

	s, err := site.Decode(cfg)
	if err != nil {
		t.Fatalf("decode site: %v", err)
	}
	if s.Docus.Title != "Production Portfolio" || s.Docus.Aside.Level != 1 || s.Nuxt.Devtools.Enabled {
		t.Fatalf("overrides not applied: %+v", s.Docus)
	}
	if s.Gtag.ID != "G-INTEGRATION" || s.Bugsnag.Config.ReleaseStage != "production" {
		t.Fatalf("secrets not substituted: gtag=%q stage=%q", s.Gtag.ID, s.Bugsnag.Config.ReleaseStage)
	}
	if s.SEO.URL != "https://portfolio.example" {
		t.Fatalf("expected CLI url, got %q", s.SEO.URL)
	}

	out := filepath.Join(t.TempDir(), "public", "site.json")
	file, err := storage.NewFileStorage(out, "json")
	if err != nil {
		t.Fatalf("file storage: %v", err)
	}
	if err := file.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := file.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(cfg.Map(), reloaded.Map()); diff != "" {
		t.Fatalf("published document differs (-resolved +reloaded):\n%s", diff)
	}

	store := storage.NewMemoryStorage()
	if err := store.Save(cfg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	handler := newRouter(t, store)

	rec := performRequest(t, handler, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from config, got %d", rec.Code)
	}
	for _, leaked := range []string{"G-INTEGRATION", "bugsnag-integration"} {
		if bytes.Contains(rec.Body.Bytes(), []byte(leaked)) {
			t.Fatalf("secret %q leaked from /api/config", leaked)
		}
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/config/docus/aside/level")
	var value struct {
		Value  float64 `json:"value"`
		Source string  `json:"source"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&value); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if value.Value != 1 || value.Source != "file:production.yaml" {
		t.Fatalf("unexpected value response: %+v", value)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/provenance")
	var provenance struct {
		Sources map[string]string `json:"sources"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&provenance); err != nil {
		t.Fatalf("decode provenance: %v", err)
	}
	wantSources := map[string]string{
		"docus.title":           "file:production.yaml",
		"site.url":              "cli",
		"site.name":             "defaults",
		"gtag.id":               "secret:env",
		"nuxt.devtools.enabled": "file:production.yaml",
	}
	for path, want := range wantSources {
		if got := provenance.Sources[path]; got != want {
			t.Fatalf("%s: expected source %q, got %q", path, want, got)
		}
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "siteconfig_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestResolveFailsWithoutSecrets(t *testing.T) {
	_, err := resolver.Resolve([]layer.Layer{site.Defaults()}, secret.Map("empty", map[string]string{
		"GTAG_ID":  "G-INTEGRATION",
		"NODE_ENV": "production",
	}))

	var missing *resolver.MissingSecretError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingSecretError, got %v", err)
	}
	if missing.Secret != "BUGSNAG_API_KEY" || missing.Source != "empty" {
		t.Fatalf("unexpected error: %+v", missing)
	}
}
