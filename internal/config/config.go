// Package config loads fileflow settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence (lowest
// first).
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"fileflow/internal/dialect"
	"fileflow/internal/exporter"
	"fileflow/internal/loader"
	"fileflow/internal/storage"
)

// DefaultFile is looked up in the working directory when no --config is
// given.
const DefaultFile = "fileflow.yaml"

// EnvPrefix prefixes every environment override: FILEFLOW_DSN -> dsn.
const EnvPrefix = "FILEFLOW_"

// Metrics backends accepted by MetricsBackend.
const (
	MetricsNone    = "none"
	MetricsDatadog = "datadog"
)

// Config is the resolved configuration of one fileflow invocation.
type Config struct {
	Engine   string `koanf:"engine"`
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	MaxConns int    `koanf:"max_conns"`
	Schema   string `koanf:"schema"`

	Verbose        bool   `koanf:"verbose"`
	MetricsBackend string `koanf:"metrics_backend"`

	Load    LoadConfig    `koanf:"load"`
	Export  ExportConfig  `koanf:"export"`
	Datadog DatadogConfig `koanf:"datadog"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// LoadConfig holds the load command settings.
type LoadConfig struct {
	Mode              string `koanf:"mode"`
	Strict            bool   `koanf:"strict"`
	SessionStaging    bool   `koanf:"session_staging"`
	BatchSize         int    `koanf:"batch_size"`
	AdaptiveBatchSize int    `koanf:"adaptive_batch_size"`
}

// ExportConfig holds the export command settings.
type ExportConfig struct {
	Dir       string `koanf:"dir"`
	Separator string `koanf:"separator"`
}

// DatadogConfig configures the datadog metrics backend. API credentials are
// read by the client from DD_API_KEY and DD_SITE.
type DatadogConfig struct {
	Job        string        `koanf:"job"`
	Tags       string        `koanf:"tags"`
	FlushEvery time.Duration `koanf:"flush_every"`
}

// flagKeys maps flag names whose config key is not the snake_case form of
// the flag.
var flagKeys = map[string]string{
	"mode":            "load.mode",
	"strict":          "load.strict",
	"session-staging": "load.session_staging",
	"batch-size":      "load.batch_size",
	"dir":             "export.dir",
	"separator":       "export.separator",
}

func defaults() map[string]any {
	return map[string]any{
		"port":                     0,
		"max_conns":                0,
		"verbose":                  false,
		"metrics_backend":          MetricsNone,
		"load.mode":                string(loader.ModeFast),
		"load.strict":              false,
		"load.session_staging":     false,
		"load.batch_size":          loader.FastBatchSize,
		"load.adaptive_batch_size": loader.AdaptiveBatchSize,
		"export.dir":               ".",
		"export.separator":         string(exporter.Comma),
		"datadog.job":              "fileflow",
		"datadog.flush_every":      "60s",
	}
}

// Load resolves the configuration.
//
// cfgFile names an explicit YAML file; when empty, DefaultFile is read if it
// exists. flags may be nil; only flags the user actually set override
// lower layers. ${VAR} references in connection fields are expanded from
// the environment. The result is validated.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	cfg.expand()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps FILEFLOW_LOAD__BATCH_SIZE to load.batch_size. A double
// underscore separates sections because single underscores occur inside
// keys.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} with the value of VAR. Unset variables are left
// as written so the resulting connection error shows the reference.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if v, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return v
		}
		return match
	})
}

func (c *Config) expand() {
	c.DSN = expandEnv(c.DSN)
	c.Host = expandEnv(c.Host)
	c.User = expandEnv(c.User)
	c.Password = expandEnv(c.Password)
	c.Database = expandEnv(c.Database)
}

// Validate checks that the configuration is usable. All problems are
// reported together. An empty engine is allowed here; commands that touch
// a database call Dialect.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine != "" {
		if _, err := dialect.Parse(c.Engine); err != nil {
			errs = append(errs, fmt.Errorf("engine: %w", err))
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns))
	}
	if _, err := loader.ParseMode(c.Load.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Load.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("load.batch_size must be at least 1, got %d", c.Load.BatchSize))
	}
	if c.Load.AdaptiveBatchSize < 1 {
		errs = append(errs, fmt.Errorf("load.adaptive_batch_size must be at least 1, got %d", c.Load.AdaptiveBatchSize))
	}
	if _, err := exporter.ParseSeparator(c.Export.Separator); err != nil {
		errs = append(errs, err)
	}
	switch c.MetricsBackend {
	case MetricsNone, MetricsDatadog:
	default:
		errs = append(errs, fmt.Errorf("metrics_backend must be %q or %q, got %q", MetricsNone, MetricsDatadog, c.MetricsBackend))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ErrNoEngine is returned by Dialect when no engine is configured.
var ErrNoEngine = errors.New("engine is required (--engine or FILEFLOW_ENGINE)")

// Dialect returns the dialect of the configured engine.
func (c *Config) Dialect() (dialect.Dialect, error) {
	if strings.TrimSpace(c.Engine) == "" {
		return nil, ErrNoEngine
	}
	tag, err := dialect.Parse(c.Engine)
	if err != nil {
		return nil, err
	}
	return dialect.For(tag)
}

// Storage returns the connection settings for storage.New.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		Kind:     c.Engine,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		MaxConns: c.MaxConns,
	}
}

// LoaderOptions returns loader options for the configured batch sizes and
// parse-error policy.
func (c *Config) LoaderOptions() loader.Options {
	policy := loader.SkipRecord
	if c.Load.Strict {
		policy = loader.FailLoad
	}
	return loader.Options{
		FastBatchSize:     c.Load.BatchSize,
		AdaptiveBatchSize: c.Load.AdaptiveBatchSize,
		OnParseError:      policy,
		SessionStaging:    c.Load.SessionStaging,
	}
}
