package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	appName    = "soundshow"
	dbFileName = "soundshow.db"
)

type Config struct {
	DatabasePath string `koanf:"database_path"` // empty means $XDG_DATA_HOME/soundshow/soundshow.db

	Log     LogConfig     `koanf:"log"`
	Catalog CatalogConfig `koanf:"catalog"`
	Engine  EngineConfig  `koanf:"engine"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Notifications *bool `koanf:"notifications"` // desktop notifications (default: true)
	MPRIS         *bool `koanf:"mpris"`         // media key integration (default: true)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File  string `koanf:"file"`  // empty means stderr
}

// CatalogConfig holds catalog browsing settings.
type CatalogConfig struct {
	TopN     int    `koanf:"top_n"`     // size of the most-played list (default: 5)
	SeedFile string `koanf:"seed_file"` // tracks imported by seedcatalog when no path is given
}

// EngineConfig holds media engine settings.
type EngineConfig struct {
	HTTPTimeout    time.Duration `koanf:"http_timeout"`     // stream download timeout (default: 60s)
	StatusInterval time.Duration `koanf:"status_interval"`  // status tick period (default: 500ms)
	MaxStreamBytes int64         `koanf:"max_stream_bytes"` // download cap (default: 200 MiB)
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
	// CallbackAddr is where lastfm-auth listens for the browser redirect.
	// Empty means localhost:9847.
	CallbackAddr string `koanf:"callback_addr"`
}

// Load reads the config files in priority order (last wins). Extra paths,
// such as one given on the command line, take precedence over the defaults.
func Load(extra ...string) (*Config, error) {
	k := koanf.New(".")

	configPaths := append(getConfigPaths(), extra...)

	for _, path := range configPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.DatabasePath != "" {
		cfg.DatabasePath = expandPath(cfg.DatabasePath)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}
	if cfg.Catalog.SeedFile != "" {
		cfg.Catalog.SeedFile = expandPath(cfg.Catalog.SeedFile)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/soundshow/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

	// 2. ./config.toml (pwd)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DBPath returns the document store location, creating the data directory
// when the default location is used.
func (c *Config) DBPath() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// HasLastfmConfig returns true if Last.fm API credentials are configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasLastfmSession returns true if scrobbling can run without user interaction.
func (c *Config) HasLastfmSession() bool {
	return c.HasLastfmConfig() && c.Lastfm.SessionKey != ""
}

// NotificationsEnabled reports whether desktop notifications are on.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}

// MPRISEnabled reports whether the MPRIS adapter should be started.
func (c *Config) MPRISEnabled() bool {
	return c.MPRIS == nil || *c.MPRIS
}

// GetCatalogConfig returns the catalog configuration with defaults applied.
func (c *Config) GetCatalogConfig() CatalogConfig {
	cfg := c.Catalog
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	return cfg
}

// GetEngineConfig returns the engine configuration with defaults applied.
func (c *Config) GetEngineConfig() EngineConfig {
	cfg := c.Engine
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 500 * time.Millisecond
	}
	if cfg.StatusInterval < 50*time.Millisecond {
		cfg.StatusInterval = 50 * time.Millisecond
	}
	if cfg.MaxStreamBytes <= 0 {
		cfg.MaxStreamBytes = 200 << 20
	}
	return cfg
}

// LogLevel returns the configured level name, "info" when unset.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}
