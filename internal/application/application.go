package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/siteconfig/internal/api"
	"github.com/eugenenazirov/siteconfig/internal/config"
	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/resolver"
	"github.com/eugenenazirov/siteconfig/internal/secret"
	"github.com/eugenenazirov/siteconfig/internal/site"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

// App encapsulates the resolved configuration, its publishers and the HTTP server.
type App struct {
	cfg      config.Config
	layers   []layer.Layer
	resolved resolver.Config
	storage  *storage.MemoryStorage
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
	stdout   io.Writer
}

// Option customises New, primarily for tests.
type Option func(*options)

type options struct {
	lookup layer.LookupFunc
	stdout io.Writer
}

// WithLookup replaces os.LookupEnv for both the environment layer and the
// environment secret source.
func WithLookup(lookup layer.LookupFunc) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithStdout redirects documents published without an output path.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// New builds every layer, resolves them once and wires the HTTP surface over
// the result. Resolution errors (*resolver.MissingSecretError,
// *resolver.IncompleteConfigError) are returned unchanged wrapped in context;
// the caller must abort.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{lookup: os.LookupEnv, stdout: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	layers, err := BuildLayers(cfg, o.lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration layers: %w", err)
	}

	resolverOpts := []resolver.Option{
		resolver.WithSecretPrefix(cfg.SecretPrefix),
		resolver.WithRequired(cfg.Required...),
	}
	for _, finding := range resolver.Audit(layers, resolverOpts...) {
		logger.Warn("literal secret in configuration layer",
			zap.String("layer", finding.Layer),
			zap.String("key", finding.Key),
		)
	}

	source, err := BuildSecretSource(cfg, o.lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to build secret source: %w", err)
	}

	resolved, err := resolver.Resolve(layers, source, resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration: %w", err)
	}

	store := storage.NewMemoryStorage()
	if err := store.Save(resolved); err != nil {
		return nil, fmt.Errorf("failed to publish configuration: %w", err)
	}

	logSummary(logger, layers, resolved)

	handler := api.NewHandler(store)
	routerOpts := []api.RouterOption{api.WithLogging(!cfg.DisableRequestLogging)}
	if cfg.RateLimit.Disabled {
		routerOpts = append(routerOpts, api.WithRateLimit(0, 0))
	} else {
		routerOpts = append(routerOpts, api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	apiRouter := api.NewRouter(handler, logger, routerOpts...)

	return &App{
		cfg:      cfg,
		layers:   layers,
		resolved: resolved,
		storage:  store,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
		stdout:   o.stdout,
	}, nil
}

// BuildLayers assembles the layer stack in priority order: built-in site
// defaults, layer files in the order given, environment overrides, then
// key=value pairs.
func BuildLayers(cfg config.Config, lookup layer.LookupFunc) ([]layer.Layer, error) {
	defaults := site.Defaults()
	layers := []layer.Layer{defaults}

	for _, path := range cfg.Layers {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		l, err := layer.Load(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}

	if cfg.EnvPrefix != "" {
		envLayer, err := layer.FromEnv("env", cfg.EnvPrefix, defaults, lookup)
		if err != nil {
			return nil, err
		}
		layers = append(layers, envLayer)
	}

	if len(cfg.Set) > 0 {
		cliLayer, err := layer.FromPairs("cli", cfg.Set)
		if err != nil {
			return nil, err
		}
		layers = append(layers, cliLayer)
	}

	return layers, nil
}

// BuildSecretSource returns the process environment, preceded by the .env
// file when one is configured.
func BuildSecretSource(cfg config.Config, lookup layer.LookupFunc) (secret.Source, error) {
	sources := make([]secret.Source, 0, 2)
	if cfg.DotenvFile != "" {
		dotenv, err := secret.Dotenv(cfg.DotenvFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, dotenv)
	}
	sources = append(sources, secret.Func("env", lookup))
	return secret.Chain(sources...), nil
}

func logSummary(logger *zap.Logger, layers []layer.Layer, resolved resolver.Config) {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name()
	}

	fields := []zap.Field{
		zap.Strings("layers", names),
		zap.Int("keys", resolved.Len()),
		zap.Strings("secrets", resolved.SecretPaths()),
	}

	s, err := site.Decode(resolved)
	if err != nil {
		logger.Warn("resolved configuration does not match the site schema", zap.Error(err))
	} else {
		fields = append(fields,
			zap.String("title", s.Docus.Title),
			zap.Strings("modules", s.Nuxt.Modules),
		)
		warnUnconfiguredModules(logger, s)
	}
	logger.Info("configuration resolved", fields...)
}

// warnUnconfiguredModules flags integrations that are enabled but resolved to
// an empty key; the site builds but the integration stays silent.
func warnUnconfiguredModules(logger *zap.Logger, s site.Site) {
	for _, m := range []struct {
		module string
		key    string
		value  string
	}{
		{module: "nuxt-gtag", key: "gtag.id", value: s.Gtag.ID},
		{module: "nuxt-bugsnag", key: "bugsnag.config.apiKey", value: s.Bugsnag.Config.APIKey},
	} {
		if s.ModuleEnabled(m.module) && strings.TrimSpace(m.value) == "" {
			logger.Warn("module enabled without a value for its key",
				zap.String("module", m.module),
				zap.String("key", m.key),
			)
		}
	}
}

// EnvVarNames lists the environment variables that override configuration
// keys under cfg.EnvPrefix. It is empty when environment overrides are off.
func EnvVarNames(cfg config.Config) []string {
	if cfg.EnvPrefix == "" {
		return nil
	}
	return layer.EnvVarNames(cfg.EnvPrefix, site.Defaults())
}

// Publish hands the resolved document to its consumer: the configured output
// file, or stdout when no output path is set.
func (a *App) Publish() error {
	if a.cfg.Output == "" || a.cfg.Output == "-" {
		return storage.Encode(a.stdout, a.resolved, a.cfg.Format)
	}

	out, err := storage.NewFileStorage(a.cfg.Output, a.cfg.Format)
	if err != nil {
		return err
	}
	if err := out.Save(a.resolved); err != nil {
		return fmt.Errorf("failed to write %s: %w", out.Path(), err)
	}
	a.logger.Info("configuration written", zap.String("path", out.Path()), zap.String("format", a.cfg.Format))
	return nil
}

// Resolved returns the resolved configuration.
func (a *App) Resolved() resolver.Config {
	return a.resolved
}

// BuildRootHandler mounts the API under /api/ and sends the bare root to the
// configuration document.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/config", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
