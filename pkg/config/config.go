// Package config loads ctd settings from YAML with environment overrides.
//
// The first existing file in this order is used:
//
//  1. the path in CTD_CONFIG
//  2. ./ctd.yaml
//  3. <user config dir>/ctd/config.yaml
//
// CTD_API_URL, CTD_API_KEY and CTD_INTEGRATION_ID override file values.
// With no file present, defaults apply.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ezmode-games/ctd/pkg/defaults"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

const (
	// DefaultAPIURL targets a local collector.
	DefaultAPIURL = "http://localhost:3000"
	// DefaultCrashesPath is the collector's report endpoint.
	DefaultCrashesPath = "/crashes"
	// LocalFileName is looked up in the working directory.
	LocalFileName = "ctd.yaml"
)

// Environment variables read by Load.
const (
	EnvConfig        = "CTD_CONFIG"
	EnvAPIURL        = "CTD_API_URL"
	EnvAPIKey        = "CTD_API_KEY"
	EnvIntegrationID = "CTD_INTEGRATION_ID"
)

// Config is the complete client configuration.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Integration IntegrationConfig `yaml:"integration"`
	Symbols     SymbolsConfig     `yaml:"symbols"`
	Inventory   InventoryConfig   `yaml:"inventory"`
	Log         LogConfig         `yaml:"log"`
}

// APIConfig configures the collector endpoint.
type APIConfig struct {
	URL         string `yaml:"url"`
	CrashesPath string `yaml:"crashesPath"`
	APIKey      string `yaml:"apiKey,omitempty"`
	TimeoutSecs int    `yaml:"timeoutSecs"`
}

// Timeout returns the request timeout, falling back to the default for
// non-positive values.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSecs <= 0 {
		return defaults.HTTPClientTimeout
	}
	return time.Duration(a.TimeoutSecs) * time.Second
}

// IntegrationConfig identifies the host the reports come from.
type IntegrationConfig struct {
	ID              string `yaml:"id"`
	GameVersion     string `yaml:"gameVersion,omitempty"`
	ExtenderVersion string `yaml:"extenderVersion,omitempty"`
}

// SymbolsConfig locates symbol files.
type SymbolsConfig struct {
	CacheDir   string   `yaml:"cacheDir,omitempty"`
	SearchDirs []string `yaml:"searchDirs,omitempty"`
	Extension  string   `yaml:"extension,omitempty"`
}

// InventoryConfig drives the startup inventory scan.
type InventoryConfig struct {
	Root        string `yaml:"root,omitempty"`
	RulesFile   string `yaml:"rulesFile,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:         DefaultAPIURL,
			CrashesPath: DefaultCrashesPath,
			TimeoutSecs: int(defaults.HTTPClientTimeout / time.Second),
		},
		Inventory: InventoryConfig{
			Concurrency: defaults.ScanConcurrency,
		},
		Log: LogConfig{Level: "info"},
	}
}

// userConfigDir is a variable for tests.
var userConfigDir = os.UserConfigDir

// Load resolves the configuration from the search order and environment.
// A path set in CTD_CONFIG must exist; the other locations are optional.
func Load() (*Config, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return LoadFile(p)
	}
	path, err := findConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFile(path)
}

// Path returns the file Load would read, or "" when defaults apply.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	return findConfig()
}

func findConfig() (string, error) {
	candidates := []string{LocalFileName}
	if dir, err := userConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "ctd", "config.yaml"))
	}
	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", cerrors.WrapWithContext(cerrors.ErrCodeConfig, "failed to stat config file", err,
				map[string]any{"path": c})
		}
	}
	return "", nil
}

// LoadFile reads path over the defaults and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeConfig, "failed to read config file", err,
			map[string]any{"path": path})
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeConfig, "failed to parse config file", err,
			map[string]any{"path": path})
	}
	cfg.applyEnv()
	return cfg, nil
}

// Parse decodes YAML over the defaults. Environment overrides are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		c.API.URL = v
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok && v != "" {
		c.API.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvIntegrationID); ok && v != "" {
		c.Integration.ID = v
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInternal, "failed to serialize config", err)
	}
	return b, nil
}

// Example returns a commented sample configuration file.
func Example() string {
	return `# ctd configuration
# Place this file at ./ctd.yaml or <user config dir>/ctd/config.yaml

api:
  # Base URL of the crash report collector
  url: "http://localhost:3000"
  # Path of the crash report endpoint
  crashesPath: "/crashes"
  # Optional API key, sent as a bearer token
  # apiKey: "your-api-key-here"
  # Request timeout in seconds
  timeoutSecs: 30

integration:
  # Game identifier reported with every crash
  id: "skyrim-se"
  # gameVersion: "1.6.1170"
  # extenderVersion: "2.2.6"

symbols:
  # cacheDir: "~/.cache/ctd/symbols"
  # searchDirs: ["./symbols"]
  extension: ".sym"

inventory:
  # root: "C:/Games/Skyrim Special Edition"
  # rulesFile: "./inventory.yaml"
  concurrency: 8

log:
  level: "info"
`
}
