package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/siteconfig/internal/secret"
)

const (
	defaultPort           = "8080"
	defaultFormat         = "json"
	defaultEnvPrefix      = "SITE_"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Output formats accepted by Config.Format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config aggregates runtime settings resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Layers       []string `yaml:"layers" env:"SITECONFIG_LAYERS" envSeparator:","`
	Set          []string `yaml:"set"`
	Required     []string `yaml:"required" env:"SITECONFIG_REQUIRED" envSeparator:","`
	EnvPrefix    string   `yaml:"env_prefix" env:"SITECONFIG_ENV_PREFIX"`
	DotenvFile   string   `yaml:"dotenv_file" env:"SITECONFIG_DOTENV"`
	SecretPrefix string   `yaml:"secret_prefix" env:"SITECONFIG_SECRET_PREFIX"`
	Output       string   `yaml:"output" env:"SITECONFIG_OUTPUT"`
	Format       string   `yaml:"format" env:"SITECONFIG_FORMAT"`
	LogLevel     string   `yaml:"log_level" env:"LOG_LEVEL"`

	Port                  string        `yaml:"port" env:"PORT"`
	ShutdownGracePeriod   time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD"`
	ReadHeaderTimeout     time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	WriteTimeout          time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout           time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	DisableRequestLogging bool          `yaml:"disable_request_logging" env:"DISABLE_REQUEST_LOGGING"`
	RateLimit             RateLimit     `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// RateLimit configures the HTTP token bucket.
type RateLimit struct {
	RPS      float64 `yaml:"rps" env:"RPS"`
	Burst    int     `yaml:"burst" env:"BURST"`
	Disabled bool    `yaml:"disabled" env:"DISABLED"`
}

// CLIOverrides holds command-line flag overrides. Nil pointers and empty
// slices leave the lower layers untouched.
type CLIOverrides struct {
	ConfigFile     string
	Layers         []string
	Set            []string
	Required       []string
	EnvPrefix      *string
	DotenvFile     *string
	Output         *string
	Format         *string
	LogLevel       *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge YAML config: %w", err)
		}
	}

	envCfg, err := loadFromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, envCfg, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge env config: %w", err)
	}

	if overrides != nil {
		if err := mergo.Merge(&cfg, overrides.toConfig(), mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge CLI overrides: %w", err)
		}
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		EnvPrefix:           defaultEnvPrefix,
		SecretPrefix:        secret.DefaultPrefix,
		Format:              defaultFormat,
		LogLevel:            defaultLogLevel,
		Port:                defaultPort,
		ShutdownGracePeriod: 10 * time.Second,
		ReadHeaderTimeout:   5 * time.Second,
		WriteTimeout:        15 * time.Second,
		IdleTimeout:         60 * time.Second,
		RateLimit: RateLimit{
			RPS:   defaultRateLimitRPS,
			Burst: defaultRateLimitBurst,
		},
	}
}

// loadFromFile loads settings from a YAML file.
func loadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse YAML: %w", err)
	}

	return fileCfg, nil
}

// loadFromEnv reads settings from environment variables. Unset variables stay zero.
func loadFromEnv() (Config, error) {
	var envCfg Config
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	}
	return envCfg, nil
}

func (o *CLIOverrides) toConfig() Config {
	var cfg Config
	cfg.Layers = o.Layers
	cfg.Set = o.Set
	cfg.Required = o.Required

	if o.EnvPrefix != nil {
		cfg.EnvPrefix = *o.EnvPrefix
	}
	if o.DotenvFile != nil {
		cfg.DotenvFile = *o.DotenvFile
	}
	if o.Output != nil {
		cfg.Output = *o.Output
	}
	if o.Format != nil {
		cfg.Format = *o.Format
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.Port != nil {
		cfg.Port = *o.Port
	}
	if o.RateLimitRPS != nil {
		cfg.RateLimit.RPS = *o.RateLimitRPS
		if *o.RateLimitRPS == 0 {
			cfg.RateLimit.Disabled = true
		}
	}
	if o.RateLimitBurst != nil {
		cfg.RateLimit.Burst = *o.RateLimitBurst
		if *o.RateLimitBurst == 0 {
			cfg.RateLimit.Disabled = true
		}
	}
	return cfg
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return ErrInvalidRateLimit
	}
	if cfg.Format != FormatJSON && cfg.Format != FormatYAML {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return ErrEmptyPort
	}
	return nil
}
