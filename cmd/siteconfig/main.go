package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/siteconfig/internal/application"
	"github.com/eugenenazirov/siteconfig/internal/config"
	"github.com/eugenenazirov/siteconfig/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("siteconfig", "Site configuration resolver - merges layered site settings and fills in runtime secrets")
	configFile := kingpinApp.Flag("config", "Path to YAML settings file").String()
	layers := kingpinApp.Flag("layer", "Override layer file (YAML or JSON), applied in the order given").Strings()
	sets := kingpinApp.Flag("set", "Override a single key, e.g. docus.title=My Site").Short('s').Strings()
	required := kingpinApp.Flag("require", "Dotted path that must be defined after resolution").Strings()
	envPrefix := kingpinApp.Flag("env-prefix", "Prefix of environment variables that override configuration keys").String()
	dotenvFile := kingpinApp.Flag("dotenv", "Path to a .env file consulted for secrets before the environment").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	resolveCmd := kingpinApp.Command("resolve", "Resolve the configuration and publish it").Default()
	output := resolveCmd.Flag("output", "Output file; '-' or empty writes to stdout").Short('o').String()
	format := resolveCmd.Flag("format", "Output format (json, yaml)").Enum(config.FormatJSON, config.FormatYAML)

	serveCmd := kingpinApp.Command("serve", "Resolve the configuration and serve it over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	envVarsCmd := kingpinApp.Command("env-vars", "List the environment variables that override configuration keys")

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		Layers:     *layers,
		Set:        *sets,
		Required:   *required,
	}
	setString(&overrides.EnvPrefix, *envPrefix)
	setString(&overrides.DotenvFile, *dotenvFile)
	setString(&overrides.LogLevel, *logLevel)
	setString(&overrides.Output, *output)
	setString(&overrides.Format, *format)
	setString(&overrides.Port, *port)

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load settings: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	if command == envVarsCmd.FullCommand() {
		names := application.EnvVarNames(cfg)
		if len(names) == 0 {
			logger.Warn("environment overrides are disabled; set --env-prefix or env_prefix")
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to resolve configuration", zap.Error(err))
	}

	switch command {
	case resolveCmd.FullCommand():
		if err := app.Publish(); err != nil {
			logger.Fatal("failed to publish configuration", zap.Error(err))
		}
	case serveCmd.FullCommand():
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

func setString(dst **string, value string) {
	if value != "" {
		*dst = &value
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
