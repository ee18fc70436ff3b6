// Package config loads service configuration from defaults, an optional YAML
// file and SBNAME_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML config file path.
const EnvConfigPath = "SBNAME_CONFIG"

// Cache drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverS3       = "s3"
)

// ValidDrivers lists every supported cache driver.
var ValidDrivers = []string{DriverNone, DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverS3}

// Config is the full service configuration.
type Config struct {
	Environment string   `yaml:"environment"`
	Server      Server   `yaml:"server"`
	Search      Search   `yaml:"search"`
	Cache       Cache    `yaml:"cache"`
	Format      Format   `yaml:"format"`
	Resolver    Resolver `yaml:"resolver"`
	Log         Log      `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Search configures the remote catalog search client.
type Search struct {
	URL              string        `yaml:"url"`
	APIKey           string        `yaml:"api_key"`
	QueryParam       string        `yaml:"query_param"`
	Timeout          time.Duration `yaml:"timeout"`
	BreakerFailures  int           `yaml:"breaker_failures"`
	BreakerSuccesses int           `yaml:"breaker_successes"`
}

// Cache selects and configures the durable slot behind the lookup cache.
type Cache struct {
	Driver      string `yaml:"driver"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	Redis       Redis  `yaml:"redis"`
	S3          S3     `yaml:"s3"`
}

// Redis holds the redis slot connection settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3 holds the object storage slot settings.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Format controls display name cropping and wrapping.
type Format struct {
	CropThreshold int    `yaml:"crop_threshold"`
	CropLength    int    `yaml:"crop_length"`
	Suffix        string `yaml:"suffix"`
	WrapTag       string `yaml:"wrap_tag"`
}

// Resolver tunes batch resolution.
type Resolver struct {
	Concurrency int `yaml:"concurrency"`
}

// Log configures the structured logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    64 << 10,
		},
		Search: Search{
			URL:              "http://localhost:8081/api/productsearch/search",
			QueryParam:       "searchquery",
			Timeout:          10 * time.Second,
			BreakerFailures:  5,
			BreakerSuccesses: 3,
		},
		Cache: Cache{
			Driver:     DriverFile,
			Dir:        "data",
			SQLitePath: "sbname.db",
			Redis:      Redis{Addr: "localhost:6379"},
		},
		Format:   Format{Suffix: "..."},
		Resolver: Resolver{Concurrency: 4},
		Log:      Log{Level: "info"},
	}
}

// Load reads the file named by SBNAME_CONFIG, if set, and applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile builds a config from defaults, the YAML file at path and the
// environment. An empty path or a missing file leaves the defaults in place.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SBNAME_* variables on top of the current values.
func (c *Config) applyEnvOverrides() error {
	e := &envReader{}

	e.str("SBNAME_ENV", &c.Environment)
	e.str("SBNAME_ADDR", &c.Server.Addr)
	e.duration("SBNAME_REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	e.duration("SBNAME_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("SBNAME_SEARCH_URL", &c.Search.URL)
	e.str("SBNAME_SEARCH_API_KEY", &c.Search.APIKey)
	e.str("SBNAME_SEARCH_QUERY_PARAM", &c.Search.QueryParam)
	e.duration("SBNAME_SEARCH_TIMEOUT", &c.Search.Timeout)
	e.integer("SBNAME_BREAKER_FAILURES", &c.Search.BreakerFailures)
	e.integer("SBNAME_BREAKER_SUCCESSES", &c.Search.BreakerSuccesses)

	e.str("SBNAME_CACHE_DRIVER", &c.Cache.Driver)
	e.str("SBNAME_CACHE_DIR", &c.Cache.Dir)
	e.str("SBNAME_SQLITE_PATH", &c.Cache.SQLitePath)
	e.str("SBNAME_DATABASE_URL", &c.Cache.DatabaseURL)
	e.str("SBNAME_REDIS_ADDR", &c.Cache.Redis.Addr)
	e.str("SBNAME_REDIS_PASSWORD", &c.Cache.Redis.Password)
	e.integer("SBNAME_REDIS_DB", &c.Cache.Redis.DB)
	e.str("SBNAME_S3_BUCKET", &c.Cache.S3.Bucket)
	e.str("SBNAME_S3_PREFIX", &c.Cache.S3.Prefix)
	e.str("SBNAME_S3_REGION", &c.Cache.S3.Region)
	e.str("SBNAME_S3_ENDPOINT", &c.Cache.S3.Endpoint)
	e.boolean("SBNAME_S3_PATH_STYLE", &c.Cache.S3.PathStyle)
	e.str("SBNAME_S3_ACCESS_KEY_ID", &c.Cache.S3.AccessKeyID)
	e.str("SBNAME_S3_SECRET_ACCESS_KEY", &c.Cache.S3.SecretAccessKey)

	e.integer("SBNAME_CROP_THRESHOLD", &c.Format.CropThreshold)
	e.integer("SBNAME_CROP_LENGTH", &c.Format.CropLength)
	e.str("SBNAME_CROP_SUFFIX", &c.Format.Suffix)
	e.str("SBNAME_WRAP_TAG", &c.Format.WrapTag)

	e.integer("SBNAME_CONCURRENCY", &c.Resolver.Concurrency)
	e.str("SBNAME_LOG_LEVEL", &c.Log.Level)

	return errors.Join(e.errs...)
}

// Validate checks values that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(ValidDrivers, c.Cache.Driver) {
		errs = append(errs, fmt.Errorf("invalid cache driver: %q (valid: %v)", c.Cache.Driver, ValidDrivers))
	}
	if c.Search.URL == "" {
		errs = append(errs, errors.New("search url is required"))
	}
	switch c.Cache.Driver {
	case DriverPostgres:
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres cache driver requires SBNAME_DATABASE_URL"))
		}
	case DriverS3:
		if c.Cache.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 cache driver requires SBNAME_S3_BUCKET"))
		}
	}
	if c.Format.CropThreshold < 0 || c.Format.CropLength < 0 {
		errs = append(errs, errors.New("crop threshold and length must not be negative"))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	errs []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
