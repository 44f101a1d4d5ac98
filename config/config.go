package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port        int `toml:"port"`
	BodyLimitMB int `toml:"body_limit_mb"`
}

type StorageConfig struct {
	Path string `toml:"path"` // directory holding threadscope.db
}

type ParserConfig struct {
	HTMLFallback bool `toml:"html_fallback"` // use stripped text/html when no text/plain part exists
}

type OutputConfig struct {
	Format  string `toml:"format"` // "json" or "yaml"
	Indent  int    `toml:"indent"`
	Workers int    `toml:"workers"` // concurrent tree aggregation
}

type LogConfig struct {
	Level string `toml:"level"`
}

type JWTConfig struct {
	Secret string `toml:"secret"` // HS256 key for API bearer tokens, empty disables auth
}

type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
}

type CacheConfig struct {
	TTL Duration `toml:"ttl"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Parser    ParserConfig    `toml:"parser"`
	Output    OutputConfig    `toml:"output"`
	Log       LogConfig       `toml:"log"`
	JWT       JWTConfig       `toml:"jwt"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Cache     CacheConfig     `toml:"cache"`
}

// Duration decodes TOML strings such as "90s" or "5m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.BodyLimitMB = 32
	config.Storage.Path = "./data"
	config.Output.Format = "json"
	config.Output.Indent = 2
	config.Output.Workers = 1
	config.Log.Level = "info"
	config.RateLimit.Requests = 100
	config.RateLimit.Window = Duration{time.Minute}
	config.Cache.TTL = Duration{10 * time.Minute}

	return &config
}

func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	// Load config file
	if _, err := toml.DecodeFile(filepath, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Output.Format {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("unsupported output format %q", c.Output.Format)
	}

	if c.Output.Indent < 0 {
		return fmt.Errorf("output indent must not be negative")
	}

	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate limit requests must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("rate limit window is required when requests is set")
	}

	return nil
}
