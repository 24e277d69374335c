package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"cmdtrack/internal/index"
	"cmdtrack/internal/logger"
	"cmdtrack/internal/store"
)

// Config is the tool-wide configuration, loaded from an optional TOML file
// in the base directory and overridable through CMDTRACK_* environment
// variables and CLI flags.
type Config struct {
	// BaseDir holds the database, lock, index and log files.
	BaseDir string `toml:"base_dir" mapstructure:"base_dir"`
	// Verbose enables per-operation debug logging.
	Verbose bool `toml:"verbose" mapstructure:"verbose"`
	// Index selects the secondary-index backend: auto, clink, sqlite, off.
	Index string `toml:"index" mapstructure:"index"`
	// ServeAddr is the listen address of the read-only status API.
	ServeAddr string `toml:"serve_addr" mapstructure:"serve_addr"`
	// Log configures captured command-output files.
	Log LogConfig `toml:"log" mapstructure:"log"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// ConfigFileName is looked up inside the base directory when no explicit
// path is given.
const ConfigFileName = "config.toml"

// Load reads configuration. path may be empty, in which case
// <base>/config.toml is used when present. Missing files are not an error;
// a malformed file is.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("base_dir", "")
	v.SetDefault("verbose", false)
	v.SetDefault("index", string(index.ModeAuto))
	v.SetDefault("serve_addr", "127.0.0.1:7777")

	v.SetEnvPrefix("CMDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(store.DefaultBaseDir(), ConfigFileName)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// A missing implicit config file is fine; anything else is not.
		if explicit || !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = store.DefaultBaseDir()
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(cfg.BaseDir, "logs")
	}
	if err := validateIndexMode(cfg.Index); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoggerConfig converts the log section for the logger package.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		Dir:        c.Log.Dir,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// IndexMode returns the configured secondary-index mode.
func (c Config) IndexMode() index.Mode { return index.Mode(c.Index) }

func validateIndexMode(mode string) error {
	switch index.Mode(mode) {
	case index.ModeAuto, index.ModeClink, index.ModeSQLite, index.ModeOff, "":
		return nil
	default:
		return fmt.Errorf("config: unknown index mode %q (want auto, clink, sqlite or off)", mode)
	}
}
