// Package config provides centralized configuration management.
// The environment layer is read once; the file layer lives in config.toml.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DuckyEnv holds all ducky environment variables.
type DuckyEnv struct {
	// Home is the ducky home directory (DUCKY_HOME, default ~/.ducky)
	Home string

	// DefaultBang overrides the configured default bang (DUCKY_DEFAULT_BANG)
	DefaultBang string

	// Listen overrides the server listen address (DUCKY_LISTEN)
	Listen string

	// LogLevel overrides the log level (DUCKY_LOG_LEVEL)
	LogLevel string

	// SessionID tags log lines from one process (DUCKY_SESSION_ID, default random)
	SessionID string
}

var (
	env     *DuckyEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *DuckyEnv {
	envOnce.Do(func() {
		env = &DuckyEnv{
			Home:        getEnvDefault("DUCKY_HOME", defaultHome()),
			DefaultBang: os.Getenv("DUCKY_DEFAULT_BANG"),
			Listen:      os.Getenv("DUCKY_LISTEN"),
			LogLevel:    os.Getenv("DUCKY_LOG_LEVEL"),
			SessionID:   getEnvDefault("DUCKY_SESSION_ID", uuid.NewString()),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
	pathsOnce = sync.Once{}
	paths = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ducky")
}

// Paths holds standard ducky directory paths.
type Paths struct {
	// Home is the ducky home directory (~/.ducky)
	Home string

	// Data holds the rule database (~/.ducky/data)
	Data string

	// ConfigFile is the TOML config (~/.ducky/config.toml)
	ConfigFile string

	// LogFile is the default rotating log (~/.ducky/logs/ducky.log)
	LogFile string

	// Bangs holds extra bang datasets (~/.ducky/bangs)
	Bangs string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home := Env().Home
		paths = &Paths{
			Home:       home,
			Data:       filepath.Join(home, "data"),
			ConfigFile: filepath.Join(home, "config.toml"),
			LogFile:    filepath.Join(home, "logs", "ducky.log"),
			Bangs:      filepath.Join(home, "bangs"),
		}
	})
	return paths
}

// Path returns a path under the ducky home directory.
func Path(parts ...string) string {
	p := GetPaths()
	allParts := append([]string{p.Home}, parts...)
	return filepath.Join(allParts...)
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
