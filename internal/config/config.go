// Package config defines the service configuration, loaded from a TOML
// file merged with environment variable overrides, per spec.md §6.
package config

import (
	"fmt"
	"time"
)

// SandboxConfig holds C1 settings.
type SandboxConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// AnalysisConfig holds ingest/analyzer tuning, per spec.md §6.
type AnalysisConfig struct {
	LargeFileThresholdMB int    `mapstructure:"large_file_threshold_mb"`
	WriteBufferKB        int    `mapstructure:"write_buffer_kb"`
	TempDir              string `mapstructure:"temp_dir"`
	MinFreeSpaceMB       int    `mapstructure:"min_free_space_mb"`
	TempFileMaxAgeSecs   int    `mapstructure:"temp_file_max_age_secs"`
	MmapFallbackEnabled  bool   `mapstructure:"mmap_fallback_enabled"`
	TimeoutSecs          int    `mapstructure:"timeout_secs"`
}

// ServerConfig holds admission/resource-limit settings, per spec.md §4.9.
type ServerConfig struct {
	MaxBodySizeMB    int    `mapstructure:"max_body_size_mb"`
	MaxConnections   int    `mapstructure:"max_connections"`
	MaxOpenFiles     int    `mapstructure:"max_open_files"`
	ReadTimeoutSecs  int    `mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int    `mapstructure:"write_timeout_secs"`
	IdleTimeoutSecs  int    `mapstructure:"idle_timeout_secs"`
	Port             int    `mapstructure:"port"`
	LogFormat        string `mapstructure:"log_format"`
	LogFile          string `mapstructure:"log_file"`
}

// MagicConfig holds C5 settings.
type MagicConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// AuthConfig holds the single shared credential.
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Config is the complete flat enumeration of options consumed by the core,
// per spec.md §6, grouped into the nested structs the teacher's own
// config.Validate() contract expects (see internal/config/manager_test.go).
type Config struct {
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Server   ServerConfig   `mapstructure:"server"`
	Magic    MagicConfig    `mapstructure:"magic"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// Default returns a Config populated with every default value listed in
// spec.md §6.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			LargeFileThresholdMB: 10,
			WriteBufferKB:        64,
			TempDir:              "/tmp/magicer",
			MinFreeSpaceMB:       1024,
			TempFileMaxAgeSecs:   3600,
			MmapFallbackEnabled:  true,
			TimeoutSecs:          30,
		},
		Server: ServerConfig{
			MaxBodySizeMB:    100,
			MaxConnections:   1000,
			MaxOpenFiles:     4096,
			ReadTimeoutSecs:  60,
			WriteTimeoutSecs: 60,
			IdleTimeoutSecs:  75,
			Port:             8080,
			LogFormat:        "text",
		},
	}
}

// Validate checks cross-field invariants that a raw file/env merge cannot
// enforce on its own.
func (c *Config) Validate() error {
	if c.Sandbox.BaseDir == "" {
		return fmt.Errorf("sandbox.base_dir must be set")
	}
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return fmt.Errorf("auth.username and auth.password must both be set")
	}
	if c.Analysis.LargeFileThresholdMB <= 0 {
		return fmt.Errorf("analysis.large_file_threshold_mb must be positive")
	}
	if c.Analysis.WriteBufferKB <= 0 {
		return fmt.Errorf("analysis.write_buffer_kb must be positive")
	}
	if c.Analysis.TempDir == "" {
		return fmt.Errorf("analysis.temp_dir must be set")
	}
	if c.Analysis.MinFreeSpaceMB < 0 {
		return fmt.Errorf("analysis.min_free_space_mb must not be negative")
	}
	if c.Analysis.TimeoutSecs <= 0 {
		return fmt.Errorf("analysis.timeout_secs must be positive")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be positive")
	}
	if c.Server.MaxConnections <= 0 {
		return fmt.Errorf("server.max_connections must be positive")
	}
	if c.Server.MaxOpenFiles <= 0 {
		return fmt.Errorf("server.max_open_files must be positive")
	}
	if c.Server.ReadTimeoutSecs <= 0 {
		return fmt.Errorf("server.read_timeout_secs must be positive")
	}
	if c.Server.WriteTimeoutSecs <= 0 {
		return fmt.Errorf("server.write_timeout_secs must be positive")
	}
	if c.Server.IdleTimeoutSecs <= 0 {
		return fmt.Errorf("server.idle_timeout_secs must be positive")
	}
	return nil
}

// MaxBodySizeBytes returns server.max_body_size_mb converted to bytes.
func (c *Config) MaxBodySizeBytes() int64 {
	return int64(c.Server.MaxBodySizeMB) * 1024 * 1024
}

// LargeFileThresholdBytes returns analysis.large_file_threshold_mb converted
// to bytes.
func (c *Config) LargeFileThresholdBytes() int64 {
	return int64(c.Analysis.LargeFileThresholdMB) * 1024 * 1024
}

// WriteBufferBytes returns analysis.write_buffer_kb converted to bytes.
func (c *Config) WriteBufferBytes() int {
	return c.Analysis.WriteBufferKB * 1024
}

// AnalysisTimeout returns analysis.timeout_secs as a time.Duration.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSecs) * time.Second
}

// ReadTimeout returns server.read_timeout_secs as a time.Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns server.write_timeout_secs as a time.Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSecs) * time.Second
}

// IdleTimeout returns server.idle_timeout_secs (the keep-alive ceiling) as a
// time.Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutSecs) * time.Second
}

// TempFileMaxAge returns analysis.temp_file_max_age_secs as a time.Duration.
func (c *Config) TempFileMaxAge() time.Duration {
	return time.Duration(c.Analysis.TempFileMaxAgeSecs) * time.Second
}

// ConfigGetter is a dynamic accessor for the live configuration, named and
// shaped after the teacher's own config.ConfigGetter (see
// internal/webdav/server.go's NewServer signature).
type ConfigGetter func() *Config
