package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/vango-dev/uiregistry/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "uiregistry.yaml"

	// EnvPrefix prefixes every environment override.
	// UIREGISTRY_SERVER__PORT sets server.port.
	EnvPrefix = "UIREGISTRY_"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultRemote is the registry the CLI talks to.
	DefaultRemote = "http://localhost:8080"
)

// Config is the complete uiregistry configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `koanf:"server"`

	// Registry contains registry source settings.
	Registry RegistryConfig `koanf:"registry"`

	// Table contains data-table defaults.
	Table TableConfig `koanf:"table"`

	// Database contains the contacts store connection.
	Database DatabaseConfig `koanf:"database"`

	// Log contains logging settings.
	Log LogConfig `koanf:"log"`

	// Telemetry contains metrics and tracing settings.
	Telemetry TelemetryConfig `koanf:"telemetry"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadTimeout bounds reading a request, headers included.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the token bucket size.
	RateBurst int `koanf:"rate_burst"`
}

// RegistryConfig contains registry source settings.
type RegistryConfig struct {
	// Dir is the local registry directory holding registry.json.
	Dir string `koanf:"dir"`

	// Prefix is the path segment hidden from file trees.
	Prefix string `koanf:"prefix"`

	// S3 selects an S3 bucket as the source when Bucket is set.
	S3 S3Config `koanf:"s3"`

	// Watch reloads a local registry when its files change.
	Watch bool `koanf:"watch"`

	// Refresh is a cron spec for reloading remote sources.
	Refresh string `koanf:"refresh"`

	// Remote is the registry server the CLI queries.
	Remote string `koanf:"remote"`
}

// S3Config locates a registry in an S3 bucket.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	PathStyle       bool   `koanf:"path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// Enabled reports whether an S3 source is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// TableConfig contains data-table defaults.
type TableConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// DatabaseConfig contains the contacts store connection.
type DatabaseConfig struct {
	// Driver is "pgx" or "sqlite". Empty disables the contacts API.
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`

	// Migrate runs pending migrations on startup.
	Migrate bool `koanf:"migrate"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Driver != ""
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// File enables rotated file output in addition to stderr.
	File       string `koanf:"file"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	Metrics     bool   `koanf:"metrics"`
	Tracing     bool   `koanf:"tracing"`
	ServiceName string `koanf:"service_name"`
}

// defaults returns the lowest-precedence layer.
func defaults() map[string]any {
	return map[string]any{
		"server.host":             DefaultHost,
		"server.port":             DefaultPort,
		"server.read_timeout":     "10s",
		"server.shutdown_timeout": "10s",
		"server.rate_limit":       0.0,
		"server.rate_burst":       20,
		"registry.dir":            ".",
		"registry.prefix":         "registry",
		"registry.watch":          true,
		"registry.refresh":        "@every 5m",
		"registry.remote":         DefaultRemote,
		"registry.s3.region":      "us-east-1",
		"table.default_page_size": 10,
		"table.max_page_size":     100,
		"database.migrate":        true,
		"log.level":               "info",
		"log.format":              "text",
		"log.max_size":            100,
		"log.max_backups":         3,
		"log.max_age":             28,
		"telemetry.metrics":       true,
		"telemetry.tracing":       false,
		"telemetry.service_name":  "uiregistry",
	}
}

// New creates a new Config with default values.
func New() *Config {
	k := koanf.New(".")
	var cfg Config
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		panic(err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"registry-dir": "registry.dir",
	"remote":       "registry.remote",
	"db-driver":    "database.driver",
	"db-dsn":       "database.dsn",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// Load reads configuration. Precedence, highest first: flags that were set
// on the command line, UIREGISTRY_ environment variables, the config file,
// defaults. An empty path looks for uiregistry.yaml in the working
// directory and continues without one if it is missing.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}
	if _, err := os.Stat(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithResource(path).
				WithSuggestion("Check the --config path").
				Wrap(err)
		}
		path = ""
	}

	cfg, err := load(koanf.New("."), path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(k *koanf.Koanf, path string, flags *pflag.FlagSet) (*Config, error) {
	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.New("E120").Wrap(err)
	}

	// 2. Config file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New("E120").
				WithResource(path).
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	}

	// 3. Environment: UIREGISTRY_REGISTRY__S3__BUCKET -> registry.s3.bucket
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, errors.New("E120").Wrap(err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.New("E120").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Unable to decode configuration: " + err.Error())
	}
	cfg.configPath = path
	return &cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("E121").
			WithDetailf("server.port is %d; it must be between 1 and 65535", c.Server.Port)
	}
	switch c.Database.Driver {
	case "", "pgx", "sqlite":
	default:
		return errors.New("E122").
			WithResource(c.Database.Driver).
			WithSuggestion(`Set database.driver to "pgx" or "sqlite"`)
	}
	if c.Database.Enabled() && c.Database.DSN == "" {
		return errors.New("E120").
			WithDetail("database.dsn is required when database.driver is set")
	}
	if c.Table.DefaultPageSize <= 0 {
		return errors.New("E120").
			WithDetailf("table.default_page_size is %d; it must be positive", c.Table.DefaultPageSize)
	}
	if c.Table.MaxPageSize != 0 && c.Table.MaxPageSize < c.Table.DefaultPageSize {
		return errors.New("E120").
			WithDetail("table.max_page_size must not be below table.default_page_size")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E120").
			WithDetailf("log.format is %q; use \"text\" or \"json\"", c.Log.Format)
	}
	if c.Server.RateLimit < 0 {
		return errors.New("E120").
			WithDetail("server.rate_limit must not be negative")
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// RegistryDir returns the absolute registry directory. Relative paths are
// resolved against the config file's directory.
func (c *Config) RegistryDir() string {
	dir := c.Registry.Dir
	if dir == "" {
		dir = "."
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	if c.configPath != "" {
		dir = filepath.Join(filepath.Dir(c.configPath), dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// String summarizes the configuration for logs without secrets.
func (c *Config) String() string {
	source := "dir=" + c.RegistryDir()
	if c.Registry.S3.Enabled() {
		source = fmt.Sprintf("s3=%s/%s", c.Registry.S3.Bucket, c.Registry.S3.Prefix)
	}
	return fmt.Sprintf("addr=%s %s db=%s", c.Address(), source, c.Database.Driver)
}
