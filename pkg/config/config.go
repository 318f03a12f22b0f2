// Package config loads plugd settings from a YAML or JSON file with
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a string ("1s", "250ms") in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the plugd configuration.
type Config struct {
	// Listen is the HTTP address of the prompt API.
	Listen string `yaml:"listen" json:"listen"`
	// Station names the test station this daemon serves; it scopes redis keys and locks.
	Station string `yaml:"station" json:"station"`
	// UpdatePeriod is how long a prompt snapshot is reused.
	UpdatePeriod Duration `yaml:"update_period" json:"update_period"`
	// MaxDepth bounds element nesting during resolution.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// AnswerTimeout bounds `plugd ask`; zero waits forever.
	AnswerTimeout Duration `yaml:"answer_timeout" json:"answer_timeout"`

	Log     LogConfig     `yaml:"log" json:"log"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "text" or "json"
}

// JournalConfig sizes the response journal. Path selects a file journal
// when redis is not configured; otherwise records are kept in memory.
// TTL expires the redis journal after that long without a response.
type JournalConfig struct {
	Capacity int      `yaml:"capacity" json:"capacity"`
	Path     string   `yaml:"path" json:"path"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
}

// RedisConfig enables the redis journal and station lock when Addr is set.
type RedisConfig struct {
	Addr     string   `yaml:"addr" json:"addr"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	LockTTL  Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

// Enabled reports whether a redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:       ":8080",
		Station:      "default",
		UpdatePeriod: Duration(time.Second),
		MaxDepth:     64,
		Log:          LogConfig{Level: "info", Format: "text"},
		Journal:      JournalConfig{Capacity: 256},
		Redis:        RedisConfig{LockTTL: Duration(30 * time.Second)},
	}
}

// Load reads path (YAML, or JSON by extension) over the defaults, then applies
// PLUGD_* environment overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if strings.ToLower(filepath.Ext(path)) == ".json" {
				if err := json.Unmarshal(data, &cfg); err != nil {
					return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
				}
			} else if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PLUGD_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookup("PLUGD_STATION"); ok {
		c.Station = v
	}
	if v, ok := lookup("PLUGD_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("PLUGD_JOURNAL_PATH"); ok {
		c.Journal.Path = v
	}
	if v, ok := lookup("PLUGD_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("PLUGD_REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup("PLUGD_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLUGD_REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup("PLUGD_UPDATE_PERIOD"); ok {
		if err := c.UpdatePeriod.parse(v); err != nil {
			return fmt.Errorf("PLUGD_UPDATE_PERIOD: %w", err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if c.UpdatePeriod <= 0 {
		return fmt.Errorf("update_period must be positive, got %s", c.UpdatePeriod.Std())
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("answer_timeout must not be negative")
	}
	if c.Station == "" {
		return fmt.Errorf("station must not be empty")
	}
	if c.Journal.TTL < 0 {
		return fmt.Errorf("journal.ttl must not be negative")
	}
	if c.Redis.Enabled() && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lock_ttl must be positive, got %s", c.Redis.LockTTL.Std())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// RedisPrefix is the key prefix for this station.
func (c Config) RedisPrefix() string {
	return "promptplug:" + c.Station + ":"
}
