// Package config loads the tablescope configuration from a YAML file and
// TABLESCOPE_* environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/reader"
	"github.com/vegasq/tablescope/internal/session"
	"github.com/vegasq/tablescope/internal/view"
)

// EnvPrefix prefixes environment overrides, e.g. TABLESCOPE_SERVER_ADDR.
const EnvPrefix = "TABLESCOPE"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Query   QueryConfig   `yaml:"query" mapstructure:"query"`
	Upload  UploadConfig  `yaml:"upload" mapstructure:"upload"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables rate limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// QueryConfig configures JQL evaluation and result paging.
type QueryConfig struct {
	Grouping       string   `yaml:"grouping" mapstructure:"grouping"`
	NormalizeNulls *bool    `yaml:"normalize_nulls" mapstructure:"normalize_nulls"`
	NullMarkers    []string `yaml:"null_markers" mapstructure:"null_markers"`
	PageSize       int      `yaml:"page_size" mapstructure:"page_size"`
	TopValues      int      `yaml:"top_values" mapstructure:"top_values"`
}

// UploadConfig configures ingestion.
type UploadConfig struct {
	MaxBytes               int64    `yaml:"max_bytes" mapstructure:"max_bytes"`
	Workers                int      `yaml:"workers" mapstructure:"workers"`
	CategoricalMaxDistinct int      `yaml:"categorical_max_distinct" mapstructure:"categorical_max_distinct"`
	CategoricalMaxRatio    float64  `yaml:"categorical_max_ratio" mapstructure:"categorical_max_ratio"`
	NullValues             []string `yaml:"null_values" mapstructure:"null_values"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	AddSource bool   `yaml:"add_source" mapstructure:"add_source"`
}

// envKeys lists the settings that can be overridden from the environment.
var envKeys = []string{
	"server.addr",
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",
	"server.rate_limit",
	"server.rate_burst",
	"session.ttl",
	"session.max_entries",
	"query.grouping",
	"query.normalize_nulls",
	"query.null_markers",
	"query.page_size",
	"query.top_values",
	"upload.max_bytes",
	"upload.workers",
	"upload.categorical_max_distinct",
	"upload.categorical_max_ratio",
	"upload.null_values",
	"log.level",
	"log.format",
	"log.add_source",
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, expands ${VAR} references, applies
// environment overrides and defaults, and validates the result. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		// #nosec G304 -- path is from CLI args, controlled by admin
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		data = []byte(expandEnvVars(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyEnv overlays TABLESCOPE_<SECTION>_<KEY> variables onto cfg. Unset
// variables leave the file values alone.
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal environment config: %w", err)
	}
	return nil
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5001"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 2 * time.Minute
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 2 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit) * 2
		if cfg.Server.RateBurst < 1 {
			cfg.Server.RateBurst = 1
		}
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = session.DefaultTTL
	}

	if cfg.Query.Grouping == "" {
		cfg.Query.Grouping = string(query.GroupingFlat)
	}
	if cfg.Query.NormalizeNulls == nil {
		normalize := true
		cfg.Query.NormalizeNulls = &normalize
	}
	if cfg.Query.NullMarkers == nil {
		cfg.Query.NullMarkers = query.DefaultNullMarkers
	}
	if cfg.Query.PageSize == 0 {
		cfg.Query.PageSize = view.DefaultPageSize
	}
	if cfg.Query.TopValues == 0 {
		cfg.Query.TopValues = view.DefaultTopValues
	}

	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 512 << 20
	}
	if cfg.Upload.Workers == 0 {
		cfg.Upload.Workers = 4
	}
	if cfg.Upload.CategoricalMaxDistinct == 0 {
		cfg.Upload.CategoricalMaxDistinct = dataset.DefaultCategoricalMaxDistinct
	}
	if cfg.Upload.CategoricalMaxRatio == 0 {
		cfg.Upload.CategoricalMaxRatio = dataset.DefaultCategoricalMaxRatio
	}
	if cfg.Upload.NullValues == nil {
		cfg.Upload.NullValues = dataset.DefaultNullValues
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch query.GroupingMode(c.Query.Grouping) {
	case query.GroupingFlat, query.GroupingGrouped:
	default:
		errs = append(errs, fmt.Sprintf("query.grouping must be %q or %q", query.GroupingFlat, query.GroupingGrouped))
	}
	if c.Query.PageSize < 0 {
		errs = append(errs, "query.page_size must not be negative")
	}
	if c.Session.TTL < 0 {
		errs = append(errs, "session.ttl must not be negative")
	}
	if c.Session.MaxEntries < 0 {
		errs = append(errs, "session.max_entries must not be negative")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	if c.Upload.MaxBytes < 0 {
		errs = append(errs, "upload.max_bytes must not be negative")
	}
	if c.Upload.Workers < 0 {
		errs = append(errs, "upload.workers must not be negative")
	}
	if c.Upload.CategoricalMaxRatio < 0 || c.Upload.CategoricalMaxRatio > 1 {
		errs = append(errs, "upload.categorical_max_ratio must be between 0 and 1")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, "log.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// QueryOptions returns the JQL engine options.
func (c *Config) QueryOptions() query.Options {
	normalize := c.Query.NormalizeNulls == nil || *c.Query.NormalizeNulls
	return query.Options{
		Grouping:       query.GroupingMode(c.Query.Grouping),
		NormalizeNulls: normalize,
		NullMarkers:    c.Query.NullMarkers,
	}
}

// SessionOptions returns the session store options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{TTL: c.Session.TTL, MaxEntries: c.Session.MaxEntries}
}

// ReaderOptions returns the ingestion options.
func (c *Config) ReaderOptions() reader.Options {
	return reader.Options{
		Build: dataset.BuildOptions{
			CategoricalMaxDistinct: c.Upload.CategoricalMaxDistinct,
			CategoricalMaxRatio:    c.Upload.CategoricalMaxRatio,
			NullValues:             c.Upload.NullValues,
		},
	}
}
