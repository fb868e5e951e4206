// Package config loads mend configuration from file, environment, and
// defaults using viper.
//
// Configuration is discovered as `.mend.yaml` in the repository root or
// the user's home directory; every key can be overridden through the
// environment with a MEND_ prefix (e.g. MEND_SCAN_CONCURRENCY=4).
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all mend settings.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan"`
	VCS       VCSConfig       `mapstructure:"vcs"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// ScanConfig controls the conflict scanner.
type ScanConfig struct {
	// Concurrency bounds how many files are scanned in parallel
	Concurrency int `mapstructure:"concurrency"`
}

// VCSConfig controls the backend.
type VCSConfig struct {
	// Backend is the registered backend name
	Backend string `mapstructure:"backend"`

	// Timeout bounds each backend command
	Timeout time.Duration `mapstructure:"timeout"`
}

// JournalConfig controls the resolution journal.
type JournalConfig struct {
	// Enabled turns journal recording on
	Enabled bool `mapstructure:"enabled"`

	// Path is the journal database path, relative to the repo root
	// unless absolute
	Path string `mapstructure:"path"`
}

// DashboardConfig controls the WebSocket dashboard server.
type DashboardConfig struct {
	// Port to listen on
	Port int `mapstructure:"port"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`

	// File enables rotated file logging when set; empty logs to stderr
	File string `mapstructure:"file"`

	// MaxSizeMB is the rotation size threshold
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is how many rotated files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// Load reads configuration for a repository. An explicit file path wins
// over discovery; a missing config file is not an error, the defaults
// apply.
func Load(repoPath, explicitFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName(".mend")
		v.SetConfigType("yaml")
		if repoPath != "" {
			v.AddConfigPath(repoPath)
		}
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Scan.Concurrency <= 0 {
		cfg.Scan.Concurrency = runtime.NumCPU()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.concurrency", runtime.NumCPU())
	v.SetDefault("vcs.backend", "git")
	v.SetDefault("vcs.timeout", 30*time.Second)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", ".mend/journal.db")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}
