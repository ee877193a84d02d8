package hobbyhunter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
)

// Environment variables read after the config file.
const (
	EnvAPIBaseURL  = "HH_API_BASE_URL"
	EnvAPITimeout  = "HH_API_TIMEOUT"
	EnvAPIRetries  = "HH_API_RETRIES"
	EnvEnvironment = "HH_ENVIRONMENT"
	EnvLogLevel    = "HH_LOG_LEVEL"
	EnvAnalytics   = "HH_ANALYTICS"
)

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Environment string          `toml:"environment"`
	User        string          `toml:"user"`
	Analytics   bool            `toml:"analytics"`
	Log         LogConfig       `toml:"log"`
	API         APIConfig       `toml:"api"`
	Store       StoreConfig     `toml:"store"`
	Cache       CacheConfig     `toml:"cache"`
	Mock        MockConfig      `toml:"mock"`
	Flags       map[string]bool `toml:"flags"`
	Spaces      SpacesConfig    `toml:"spaces"`

	// EnvFlags holds HH_FLAG_* values; they are layered over Flags.
	EnvFlags map[flags.Name]bool `toml:"-"`
}

type LogConfig struct {
	Level   slog.Level `toml:"level"`
	NoColor bool       `toml:"no_color"`
}

type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	Retries   int      `toml:"retries"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

type MockConfig struct {
	Latency bool   `toml:"latency"`
	Seed    int64  `toml:"seed"`
	Mode    string `toml:"mode"`
	Fill    string `toml:"fill"`
}

type SpacesConfig struct {
	Key       string   `toml:"key"`
	Secret    string   `toml:"secret"`
	Region    string   `toml:"region"`
	Bucket    string   `toml:"bucket"`
	Endpoint  string   `toml:"endpoint"`
	CardRoot  string   `toml:"cardroot"`
	URLExpiry Duration `toml:"url_expiry"`
}

func (s SpacesConfig) Enabled() bool {
	return s.Bucket != "" && s.Key != ""
}

func DefaultConfig() Config {
	return Config{
		Environment: flags.EnvDevelopment,
		User:        "user-demo",
		Log:         LogConfig{Level: slog.LevelInfo},
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: Duration{10 * time.Second},
			Retries: 3,
		},
		Store: StoreConfig{Path: "hobbyhunter.db"},
		Cache: CacheConfig{Size: 1024},
		Mock:  MockConfig{Latency: true, Mode: "lenient", Fill: "uniform"},
	}
}

// LoadConfig reads the TOML file at path over the defaults, then .env and the
// process environment. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file",
			slog.String("type", "sys"),
			slog.Any("error", err))
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg from lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIBaseURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvAPITimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAPITimeout, err)
		}
		c.API.Timeout = Duration{d}
	}
	if v, ok := lookup(EnvAPIRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAPIRetries, err)
		}
		c.API.Retries = n
	}
	if v, ok := lookup(EnvEnvironment); ok && v != "" {
		c.Environment = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := c.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
		}
	}
	if v, ok := lookup(EnvAnalytics); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAnalytics, err)
		}
		c.Analytics = b
	}
	c.EnvFlags = flags.FromEnv(lookup)
	return nil
}

// FlagValues merges the file flags, the analytics switch and HH_FLAG_*
// values, later ones winning. Unknown names are dropped.
func (c *Config) FlagValues() map[flags.Name]bool {
	out := make(map[flags.Name]bool)
	for k, v := range c.Flags {
		if name := flags.Name(k); flags.Known(name) {
			out[name] = v
		}
	}
	if c.Analytics {
		out[flags.Analytics] = true
	}
	for k, v := range c.EnvFlags {
		out[k] = v
	}
	return out
}
