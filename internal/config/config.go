package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/vango-dev/spool/internal/errors"
	"github.com/vango-dev/spool/pkg/ids"
	"github.com/vango-dev/spool/pkg/live"
	"github.com/vango-dev/spool/pkg/store"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "spool.json"

	// DefaultPort is the default live server port.
	DefaultPort = 3000

	// DefaultHost is the default live server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default directory for rendered pages.
	DefaultOutput = "dist"
)

// Publish targets.
const (
	TargetFile = "file"
	TargetS3   = "s3"
)

// Config represents the complete spool.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Render contains render settings.
	Render RenderConfig `json:"render,omitempty"`

	// Server contains live server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Store contains state store settings.
	Store StoreConfig `json:"store,omitempty"`

	// Publish contains the destination for rendered pages.
	Publish PublishConfig `json:"publish,omitempty"`

	// Watch contains file watching settings for render --watch.
	Watch WatchConfig `json:"watch,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RenderConfig contains render settings.
type RenderConfig struct {
	// IDs is the unique id source: "clock", "counter" or "uuid".
	IDs string `json:"ids,omitempty"`

	// IDPrefix is prepended to every unique id.
	IDPrefix string `json:"idPrefix,omitempty"`

	// Streaming writes output as fragments resolve instead of all at once.
	Streaming bool `json:"streaming,omitempty"`

	// Timeout bounds a single render (e.g., "30s").
	Timeout string `json:"timeout,omitempty"`
}

// ServerConfig contains live server settings.
type ServerConfig struct {
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	WSPath      string `json:"wsPath,omitempty"`
	ActionPath  string `json:"actionPath,omitempty"`
	MetricsPath string `json:"metricsPath,omitempty"`

	// Tracing records an OpenTelemetry span per render.
	Tracing bool `json:"tracing,omitempty"`
}

// StoreConfig contains state store settings.
type StoreConfig struct {
	// Driver is "memory", "redis" or "sqlite".
	Driver string `json:"driver,omitempty"`

	Address  string `json:"address,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`

	// TTL expires Redis values (e.g., "24h"). Empty keeps them forever.
	TTL string `json:"ttl,omitempty"`

	// DSN is the SQLite data source name.
	DSN string `json:"dsn,omitempty"`
}

// PublishConfig contains the destination for rendered pages.
type PublishConfig struct {
	// Target is "file" or "s3".
	Target string `json:"target,omitempty"`

	// Dir is the output directory for the file target.
	Dir string `json:"dir,omitempty"`

	Bucket       string `json:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	CacheControl string `json:"cacheControl,omitempty"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Paths are extra files or directories whose changes trigger a render.
	Paths []string `json:"paths,omitempty"`

	// Ignore contains glob patterns matched against file names.
	Ignore []string `json:"ignore,omitempty"`

	// Debounce delays a render until changes settle (e.g., "100ms").
	Debounce string `json:"debounce,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for spool.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("No spool.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'spool init' to create one").
				Wrap(err)
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithLocationFromError(path, err).
			WithSuggestion("Check that spool.json is valid JSON").
			Wrap(err)
	}
	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Render
	if c.Render.IDs == "" {
		c.Render.IDs = "clock"
	}
	if c.Render.Timeout == "" {
		c.Render.Timeout = "30s"
	}

	// Server
	defaults := live.DefaultConfig()
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = defaults.WSPath
	}
	if c.Server.ActionPath == "" {
		c.Server.ActionPath = defaults.ActionPath
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = defaults.MetricsPath
	}

	// Store
	if c.Store.Driver == "" {
		c.Store.Driver = store.DriverMemory
	}
	if c.Store.Driver == store.DriverRedis && c.Store.Address == "" {
		c.Store.Address = "localhost:6379"
	}
	if c.Store.Driver == store.DriverSQLite && c.Store.DSN == "" {
		c.Store.DSN = "spool.db"
	}

	// Publish
	if c.Publish.Target == "" {
		c.Publish.Target = TargetFile
	}
	if c.Publish.Dir == "" {
		c.Publish.Dir = DefaultOutput
	}

	// Watch
	if c.Watch.Ignore == nil {
		c.Watch.Ignore = []string{".*", "*~", "*.swp"}
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "100ms"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		e := errors.New(errors.CodeConfigInvalid).WithDetail(detail)
		if c.configPath != "" {
			e.Location = &errors.Location{File: c.configPath}
		}
		return e
	}

	if !slices.Contains(ids.Kinds, c.Render.IDs) {
		return invalid("render.ids must be one of clock, counter or uuid, got " + strconv.Quote(c.Render.IDs))
	}
	if _, err := parseDuration(c.Render.Timeout); err != nil {
		return invalid("render.timeout: " + err.Error())
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535")
	}
	switch c.Store.Driver {
	case store.DriverMemory, store.DriverRedis, store.DriverSQLite:
	default:
		return invalid("store.driver must be memory, redis or sqlite, got " + strconv.Quote(c.Store.Driver))
	}
	if _, err := parseDuration(c.Store.TTL); err != nil {
		return invalid("store.ttl: " + err.Error())
	}
	switch c.Publish.Target {
	case TargetFile:
	case TargetS3:
		if c.Publish.Bucket == "" {
			return invalid("publish.bucket is required for the s3 target")
		}
	default:
		return invalid("publish.target must be file or s3, got " + strconv.Quote(c.Publish.Target))
	}
	if _, err := parseDuration(c.Watch.Debounce); err != nil {
		return invalid("watch.debounce: " + err.Error())
	}
	return nil
}

// parseDuration parses d, treating an empty string as zero.
func parseDuration(d string) (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	return time.ParseDuration(d)
}

// Address returns the listen address for the live server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the URL of the live server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// RenderTimeout returns the parsed render timeout. Zero means no limit.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseDuration(c.Render.Timeout)
	return d
}

// DebounceInterval returns the parsed watch debounce interval.
func (c *Config) DebounceInterval() time.Duration {
	d, _ := parseDuration(c.Watch.Debounce)
	return d
}

// IDSource creates the configured unique id source.
func (c *Config) IDSource() (ids.Source, error) {
	return ids.New(c.Render.IDs, c.Render.IDPrefix)
}

// StoreOptions converts the store section for store.Open. A relative
// SQLite DSN is resolved against the config directory.
func (c *Config) StoreOptions() store.Config {
	ttl, _ := parseDuration(c.Store.TTL)
	dsn := c.Store.DSN
	if c.Store.Driver == store.DriverSQLite && dsn != ":memory:" {
		dsn = c.resolve(dsn)
	}
	return store.Config{
		Driver:   c.Store.Driver,
		Address:  c.Store.Address,
		Password: c.Store.Password,
		DB:       c.Store.DB,
		Prefix:   c.Store.Prefix,
		TTL:      ttl,
		DSN:      dsn,
	}
}

// LiveConfig converts the server section for live.New.
func (c *Config) LiveConfig() *live.Config {
	cfg := live.DefaultConfig()
	cfg.Address = c.Address()
	cfg.WSPath = c.Server.WSPath
	cfg.ActionPath = c.Server.ActionPath
	cfg.MetricsPath = c.Server.MetricsPath
	return cfg
}

// OutputPath returns the absolute path to the output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Publish.Dir)
}

// WatchPaths returns the absolute paths of the extra watched files.
func (c *Config) WatchPaths() []string {
	paths := make([]string, len(c.Watch.Paths))
	for i, p := range c.Watch.Paths {
		paths[i] = c.resolve(p)
	}
	return paths
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing spool.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigParse).
				WithDetail("No spool.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'spool init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest spool.json at or
// above the working directory. Without one it returns the defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
