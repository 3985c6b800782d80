// Package config handles loading and managing livesearch configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds configuration for the search endpoint.
type ServerConfig struct {
	BindAddr       string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	Port           int      `toml:"port"`             // HTTP port (default: 8888)
	CORSOrigins    []string `toml:"cors_origins"`     // Allowed browser origins
	RateLimitQPS   float64  `toml:"rate_limit_qps"`   // Per-IP requests per second
	RateLimitBurst int      `toml:"rate_limit_burst"` // Per-IP burst
}

// IndexConfig holds configuration for the q-gram index served by the endpoint.
type IndexConfig struct {
	File        string `toml:"file"`         // Tab-separated record file
	Schema      string `toml:"schema"`       // "movies" or "cities"
	Q           int    `toml:"q"`            // q-gram length
	MaxDistance int    `toml:"max_distance"` // Max prefix edit distance
	MaxResults  int    `toml:"max_results"`  // Results per query
	Encoding    string `toml:"encoding"`     // Record file charset, "" = detect
}

// SearchConfig holds configuration for the interactive search client.
type SearchConfig struct {
	URL            string   `toml:"url"`              // Endpoint origin
	AllowInsecure  bool     `toml:"allow_insecure"`   // Allow http:// to non-local hosts
	DebounceMS     int      `toml:"debounce_ms"`      // Delay before dispatch, 0 = immediate
	TimeoutSeconds int      `toml:"timeout_seconds"`  // Per-request timeout
	RateLimitQPS   float64  `toml:"rate_limit_qps"`   // Outgoing requests per second, 0 = unlimited
	RateLimitBurst int      `toml:"rate_limit_burst"` // Outgoing burst
	Fields         []string `toml:"fields"`           // Display field order, empty = as served
}

// Config represents the livesearch configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Index  IndexConfig  `toml:"index"`
	Search SearchConfig `toml:"search"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default livesearch home directory.
// Respects LIVESEARCH_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("LIVESEARCH_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".livesearch"
	}
	return filepath.Join(home, ".livesearch")
}

// Load reads the configuration from the specified file.
// If path is empty, uses config.toml in the home directory. homeDir
// overrides LIVESEARCH_HOME when non-empty.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	} else {
		homeDir = expandPath(homeDir)
	}

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir:    homeDir,
		configPath: path,
		// Defaults
		Server: ServerConfig{
			BindAddr:       "127.0.0.1",
			Port:           8888,
			RateLimitQPS:   50,
			RateLimitBurst: 100,
		},
		Index: IndexConfig{
			Schema:      "movies",
			Q:           3,
			MaxDistance: 1,
			MaxResults:  5,
		},
		Search: SearchConfig{
			URL:            "http://127.0.0.1:8888",
			TimeoutSeconds: 10,
			RateLimitBurst: 1,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Expand ~ in paths
	cfg.Index.File = expandPath(cfg.Index.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitQPS < 0 {
		return fmt.Errorf("server.rate_limit_qps must not be negative")
	}
	if c.Index.Q < 1 {
		return fmt.Errorf("index.q must be at least 1, got %d", c.Index.Q)
	}
	if c.Index.MaxDistance < 0 {
		return fmt.Errorf("index.max_distance must not be negative")
	}
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must not be negative")
	}
	if c.Search.TimeoutSeconds < 0 {
		return fmt.Errorf("search.timeout_seconds must not be negative")
	}
	if c.Search.RateLimitQPS < 0 {
		return fmt.Errorf("search.rate_limit_qps must not be negative")
	}
	return nil
}

// ConfigFilePath returns the path the configuration was (or would be) read from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0700)
}

// LogFilePath returns the log file used while the terminal UI owns the screen.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.HomeDir, "livesearch.log")
}

// Addr returns the host:port the endpoint listens on.
func (s ServerConfig) Addr() string {
	bindAddr := s.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	return net.JoinHostPort(bindAddr, strconv.Itoa(s.Port))
}

// Debounce returns the dispatch delay.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
