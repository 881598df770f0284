// Package config loads feedlog settings from ~/.feedlog/config.yaml and
// FEEDLOG_* environment variables, in that order of precedence (env wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// RESTConfig holds hosted backend settings.
type RESTConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	AnonKey string        `mapstructure:"anon_key" yaml:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MongoConfig holds MongoDB backend settings.
type MongoConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// Config holds all feedlog settings.
type Config struct {
	Backend   string              `mapstructure:"backend" yaml:"backend"`
	DBPath    string              `mapstructure:"db_path" yaml:"db_path"`
	WeekStart domain.WeekStartDay `mapstructure:"week_start" yaml:"week_start"`
	Debug     bool                `mapstructure:"debug" yaml:"debug"`
	LogLevel  string              `mapstructure:"log_level" yaml:"log_level"`
	REST      RESTConfig          `mapstructure:"rest" yaml:"rest"`
	Mongo     MongoConfig         `mapstructure:"mongo" yaml:"mongo"`

	// Path is the file the config was read from (may not exist).
	Path string `mapstructure:"-" yaml:"-"`
}

// Dir returns the feedlog home directory (~/.feedlog).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".feedlog"
	}
	return filepath.Join(home, ".feedlog")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a Config using the local backend.
func DefaultConfig() Config {
	return Config{
		Backend:   string(backend.KindLocal),
		DBPath:    filepath.Join(Dir(), "feedlog.db"),
		WeekStart: domain.WeekStartMonday,
		LogLevel:  "info",
		REST: RESTConfig{
			Timeout: backend.DefaultTimeout,
		},
		Mongo: MongoConfig{
			Database: "feedlog",
		},
	}
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"backend":        "FEEDLOG_BACKEND",
	"db_path":        "FEEDLOG_DB",
	"week_start":     "FEEDLOG_WEEK_START",
	"log_level":      "FEEDLOG_LOG_LEVEL",
	"rest.url":       "FEEDLOG_REST_URL",
	"rest.anon_key":  "FEEDLOG_REST_ANON_KEY",
	"rest.timeout":   "FEEDLOG_REST_TIMEOUT",
	"mongo.uri":      "FEEDLOG_MONGO_URI",
	"mongo.database": "FEEDLOG_MONGO_DATABASE",
}

// Load reads the config file at path (DefaultPath when empty), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("backend", def.Backend)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("week_start", string(def.WeekStart))
	v.SetDefault("debug", def.Debug)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("rest.url", def.REST.URL)
	v.SetDefault("rest.anon_key", def.REST.AnonKey)
	v.SetDefault("rest.timeout", def.REST.Timeout)
	v.SetDefault("mongo.uri", def.Mongo.URI)
	v.SetDefault("mongo.database", def.Mongo.Database)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Path = path

	// Debug is enabled only by the literal "true".
	if env, ok := os.LookupEnv("FEEDLOG_DEBUG"); ok {
		cfg.Debug = env == "true"
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.WeekStart = domain.WeekStartDay(strings.ToLower(strings.TrimSpace(string(cfg.WeekStart))))
	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and the fields the chosen backend needs.
func (c Config) Validate() error {
	switch backend.Kind(c.Backend) {
	case backend.KindLocal:
	case backend.KindREST:
		if c.REST.URL == "" || c.REST.AnonKey == "" {
			return fmt.Errorf("%w: backend %q needs rest.url and rest.anon_key (FEEDLOG_REST_URL, FEEDLOG_REST_ANON_KEY)",
				domain.ErrValidation, c.Backend)
		}
	case backend.KindMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("%w: backend %q needs mongo.uri (FEEDLOG_MONGO_URI)", domain.ErrValidation, c.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q (want local, rest or mongo)", domain.ErrValidation, c.Backend)
	}
	switch c.WeekStart {
	case domain.WeekStartMonday, domain.WeekStartSunday:
	default:
		return fmt.Errorf("%w: week_start must be monday or sunday, got %q", domain.ErrValidation, c.WeekStart)
	}
	if c.REST.Timeout <= 0 {
		return fmt.Errorf("%w: rest.timeout must be positive", domain.ErrValidation)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.REST.AnonKey != "" {
		c.REST.AnonKey = redact(c.REST.AnonKey)
	}
	if c.Mongo.URI != "" {
		c.Mongo.URI = redactURI(c.Mongo.URI)
	}
	return c
}

// YAML renders the config as it would appear in the file.
func (c Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c Config) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func redact(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// redactURI hides the password part of user:pass@host.
func redactURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return uri
	}
	creds := uri[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return uri[:scheme+3] + creds[:colon] + ":****" + uri[at:]
	}
	return uri
}
