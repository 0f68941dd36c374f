package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "OBJSTORE_"

const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverGCS    = "gcs"
	DriverLocal  = "local"
	DriverMemory = "memory"
)

type Config struct {
	Store StoreConfig `toml:"store"`
	Log   LogConfig   `toml:"log"`
}

// StoreConfig selects and configures the transport. It carries no bucket,
// every operation names its own.
type StoreConfig struct {
	Driver          string   `toml:"driver"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	PathStyle       bool     `toml:"path_style"`
	RootDir         string   `toml:"root_dir"`
	CredentialsFile string   `toml:"credentials_file"`
	RequestTimeout  Duration `toml:"request_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:         DriverS3,
			Region:         "us-east-1",
			UseSSL:         true,
			RequestTimeout: Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error. A
// .env file beside the config, and then the process environment, override
// file values through OBJSTORE_* variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	set("DRIVER", &c.Store.Driver)
	set("ENDPOINT", &c.Store.Endpoint)
	set("REGION", &c.Store.Region)
	set("ACCESS_KEY", &c.Store.AccessKey)
	set("SECRET_KEY", &c.Store.SecretKey)
	set("ROOT_DIR", &c.Store.RootDir)
	set("CREDENTIALS_FILE", &c.Store.CredentialsFile)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)
}

func (c *Config) ApplyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverS3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Store.Endpoint = strings.TrimSpace(c.Store.Endpoint)
	c.Store.Region = strings.TrimSpace(c.Store.Region)
	c.Store.RootDir = strings.TrimSpace(c.Store.RootDir)
	if c.Store.RootDir != "" {
		c.Store.RootDir = filepath.Clean(c.Store.RootDir)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log level must be debug, info, warn, or error")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.New("log format must be json or console")
	}
	return nil
}

func (s StoreConfig) Validate() error {
	if s.RequestTimeout.Duration < 0 {
		return errors.New("store request_timeout must be >= 0")
	}

	switch s.Driver {
	case DriverS3:
		if s.Region == "" {
			return errors.New("s3 region is required")
		}
		if s.Endpoint != "" {
			if err := validateHTTPURL(s.Endpoint); err != nil {
				return fmt.Errorf("s3 endpoint %w", err)
			}
		}
	case DriverMinio:
		if s.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if strings.Contains(s.Endpoint, "://") {
			if err := validateHTTPURL(s.Endpoint); err != nil {
				return fmt.Errorf("minio endpoint %w", err)
			}
		}
	case DriverGCS:
		if s.Endpoint != "" {
			if err := validateHTTPURL(s.Endpoint); err != nil {
				return fmt.Errorf("gcs endpoint %w", err)
			}
		}
	case DriverLocal, DriverMemory:
	default:
		return errors.New("store driver must be s3, minio, gcs, local, or memory")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return errors.New("must be a valid http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	return nil
}
