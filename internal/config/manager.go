package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager owns the live Config, loaded once from file+env at startup and
// read-only thereafter, per spec.md §5 ("Config | Yes | Read-only after
// startup").
type Manager struct {
	mu  sync.RWMutex
	cfg Config
}

// Load reads configFile (TOML; may be empty to use defaults+env only),
// merges in MAGICER_-prefixed environment variable overrides, validates
// the result, and returns a ready Manager.
func Load(configFile string) (*Manager, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix("MAGICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{cfg: cfg}, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	// Keys with an empty default are still registered so that AutomaticEnv
	// overrides for them are visible to Unmarshal.
	v.SetDefault("sandbox.base_dir", d.Sandbox.BaseDir)
	v.SetDefault("auth.username", d.Auth.Username)
	v.SetDefault("auth.password", d.Auth.Password)
	v.SetDefault("magic.database_path", d.Magic.DatabasePath)
	v.SetDefault("server.log_file", d.Server.LogFile)
	v.SetDefault("analysis.large_file_threshold_mb", d.Analysis.LargeFileThresholdMB)
	v.SetDefault("analysis.write_buffer_kb", d.Analysis.WriteBufferKB)
	v.SetDefault("analysis.temp_dir", d.Analysis.TempDir)
	v.SetDefault("analysis.min_free_space_mb", d.Analysis.MinFreeSpaceMB)
	v.SetDefault("analysis.temp_file_max_age_secs", d.Analysis.TempFileMaxAgeSecs)
	v.SetDefault("analysis.mmap_fallback_enabled", d.Analysis.MmapFallbackEnabled)
	v.SetDefault("analysis.timeout_secs", d.Analysis.TimeoutSecs)
	v.SetDefault("server.max_body_size_mb", d.Server.MaxBodySizeMB)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.max_open_files", d.Server.MaxOpenFiles)
	v.SetDefault("server.read_timeout_secs", d.Server.ReadTimeoutSecs)
	v.SetDefault("server.write_timeout_secs", d.Server.WriteTimeoutSecs)
	v.SetDefault("server.idle_timeout_secs", d.Server.IdleTimeoutSecs)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_format", d.Server.LogFormat)
}

// Get returns the current configuration. The returned pointer must be
// treated as read-only by callers.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.cfg
	return &cfg
}

// Getter returns a ConfigGetter closing over this Manager.
func (m *Manager) Getter() ConfigGetter {
	return m.Get
}
