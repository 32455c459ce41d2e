package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Listen string `toml:"listen" json:"listen"`
}

type CacheConfig struct {
	Capacity      int    `toml:"capacity" json:"capacity"`
	SuperCache    bool   `toml:"super_cache" json:"super_cache"`
	SuperCacheTTL string `toml:"super_cache_ttl" json:"super_cache_ttl"`
}

type BangsConfig struct {
	// Dataset is a doublestar glob of extra dataset files. Empty means
	// <home>/bangs/**/*.json.
	Dataset  string `toml:"dataset" json:"dataset"`
	Watch    bool   `toml:"watch" json:"watch"`
	Debounce string `toml:"debounce" json:"debounce"`
}

type IslandsConfig struct {
	LongestSuffix bool `toml:"longest_suffix" json:"longest_suffix"`
}

type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

type Config struct {
	Version     int           `toml:"version" json:"version"`
	DefaultBang string        `toml:"default_bang" json:"default_bang"`
	Server      ServerConfig  `toml:"server" json:"server"`
	Cache       CacheConfig   `toml:"cache" json:"cache"`
	Bangs       BangsConfig   `toml:"bangs" json:"bangs"`
	Islands     IslandsConfig `toml:"islands" json:"islands"`
	Log         LogConfig     `toml:"log" json:"log"`
}

func Default() Config {
	return Config{
		Version:     1,
		DefaultBang: "g",
		Server:      ServerConfig{Listen: "127.0.0.1:7878"},
		Cache: CacheConfig{
			Capacity:      100,
			SuperCache:    false,
			SuperCacheTTL: "168h",
		},
		Bangs: BangsConfig{
			Watch:    true,
			Debounce: "250ms",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadOrCreate reads the config at path, writing defaults first if the file
// does not exist.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("could not stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	cfg.normalize()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(dir, ".ducky-config-*.toml")
	if err != nil {
		return fmt.Errorf("could not create temp config file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not atomically replace config file: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()
	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.DefaultBang = strings.ToLower(strings.TrimSpace(c.DefaultBang))
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = defaults.Cache.Capacity
	}
	if _, err := time.ParseDuration(c.Cache.SuperCacheTTL); err != nil {
		c.Cache.SuperCacheTTL = defaults.Cache.SuperCacheTTL
	}
	if _, err := time.ParseDuration(c.Bangs.Debounce); err != nil {
		c.Bangs.Debounce = defaults.Bangs.Debounce
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if c.Log.MaxAgeDays < 0 {
		c.Log.MaxAgeDays = defaults.Log.MaxAgeDays
	}
}

// ApplyEnv overlays non-empty environment overrides.
func (c *Config) ApplyEnv(e *DuckyEnv) {
	if e == nil {
		return
	}
	if e.DefaultBang != "" {
		c.DefaultBang = strings.ToLower(e.DefaultBang)
	}
	if e.Listen != "" {
		c.Server.Listen = e.Listen
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
}

// SuperCacheTTLDuration returns the parsed super cache TTL.
func (c Config) SuperCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.Cache.SuperCacheTTL)
	if err != nil {
		d, _ = time.ParseDuration(Default().Cache.SuperCacheTTL)
	}
	return d
}

// DebounceDuration returns the parsed dataset watch debounce.
func (c Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Bangs.Debounce)
	if err != nil {
		d, _ = time.ParseDuration(Default().Bangs.Debounce)
	}
	return d
}

// DatasetPattern returns the dataset glob, defaulting under bangsDir.
func (c Config) DatasetPattern(bangsDir string) string {
	if c.Bangs.Dataset != "" {
		return c.Bangs.Dataset
	}
	return filepath.Join(bangsDir, "**", "*.json")
}

// Keys lists every key accepted by Get and Set.
func Keys() []string {
	keys := []string{
		"default_bang",
		"server.listen",
		"cache.capacity",
		"cache.super_cache",
		"cache.super_cache_ttl",
		"bangs.dataset",
		"bangs.watch",
		"bangs.debounce",
		"islands.longest_suffix",
		"log.level",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
		"log.max_age_days",
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) Set(key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	value = strings.TrimSpace(value)

	switch key {
	case "default_bang":
		c.DefaultBang = strings.ToLower(value)
	case "server.listen":
		if value == "" {
			return fmt.Errorf("server.listen must not be empty")
		}
		c.Server.Listen = value
	case "cache.capacity":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("cache.capacity must be a positive number")
		}
		c.Cache.Capacity = n
	case "cache.super_cache":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("cache.super_cache must be boolean")
		}
		c.Cache.SuperCache = b
	case "cache.super_cache_ttl":
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("cache.super_cache_ttl must be a positive duration like 168h")
		}
		c.Cache.SuperCacheTTL = value
	case "bangs.dataset":
		c.Bangs.Dataset = value
	case "bangs.watch":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("bangs.watch must be boolean")
		}
		c.Bangs.Watch = b
	case "bangs.debounce":
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("bangs.debounce must be a duration like 250ms")
		}
		c.Bangs.Debounce = value
	case "islands.longest_suffix":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("islands.longest_suffix must be boolean")
		}
		c.Islands.LongestSuffix = b
	case "log.level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.Log.Level = strings.ToLower(value)
		default:
			return fmt.Errorf("log.level must be one of debug|info|warn|error")
		}
	case "log.file":
		c.Log.File = value
	case "log.max_size_mb":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("log.max_size_mb must be a positive number")
		}
		c.Log.MaxSizeMB = n
	case "log.max_backups":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("log.max_backups must be zero or more")
		}
		c.Log.MaxBackups = n
	case "log.max_age_days":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("log.max_age_days must be zero or more")
		}
		c.Log.MaxAgeDays = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func (c Config) Get(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))

	switch key {
	case "default_bang":
		return c.DefaultBang, nil
	case "server.listen":
		return c.Server.Listen, nil
	case "cache.capacity":
		return strconv.Itoa(c.Cache.Capacity), nil
	case "cache.super_cache":
		return strconv.FormatBool(c.Cache.SuperCache), nil
	case "cache.super_cache_ttl":
		return c.Cache.SuperCacheTTL, nil
	case "bangs.dataset":
		return c.Bangs.Dataset, nil
	case "bangs.watch":
		return strconv.FormatBool(c.Bangs.Watch), nil
	case "bangs.debounce":
		return c.Bangs.Debounce, nil
	case "islands.longest_suffix":
		return strconv.FormatBool(c.Islands.LongestSuffix), nil
	case "log.level":
		return c.Log.Level, nil
	case "log.file":
		return c.Log.File, nil
	case "log.max_size_mb":
		return strconv.Itoa(c.Log.MaxSizeMB), nil
	case "log.max_backups":
		return strconv.Itoa(c.Log.MaxBackups), nil
	case "log.max_age_days":
		return strconv.Itoa(c.Log.MaxAgeDays), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool: %s", value)
	}
}
