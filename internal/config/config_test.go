package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults plus required fields - ok",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing base dir",
			mutate: func(c *Config) {
				c.Sandbox.BaseDir = ""
			},
			wantErr:     true,
			errContains: "base_dir",
		},
		{
			name: "missing credentials",
			mutate: func(c *Config) {
				c.Auth.Username = ""
			},
			wantErr:     true,
			errContains: "auth",
		},
		{
			name: "zero threshold",
			mutate: func(c *Config) {
				c.Analysis.LargeFileThresholdMB = 0
			},
			wantErr: true,
		},
		{
			name: "negative min free space",
			mutate: func(c *Config) {
				c.Analysis.MinFreeSpaceMB = -1
			},
			wantErr: true,
		},
		{
			name: "zero max connections",
			mutate: func(c *Config) {
				c.Server.MaxConnections = 0
			},
			wantErr: true,
		},
		{
			name: "zero write timeout",
			mutate: func(c *Config) {
				c.Server.WriteTimeoutSecs = 0
			},
			wantErr:     true,
			errContains: "write_timeout_secs",
		},
		{
			name: "zero idle timeout",
			mutate: func(c *Config) {
				c.Server.IdleTimeoutSecs = 0
			},
			wantErr:     true,
			errContains: "idle_timeout_secs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Sandbox.BaseDir = "/srv/magicer/sandbox"
			cfg.Auth.Username = "admin"
			cfg.Auth.Password = "hunter2"

			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigUnitConversions(t *testing.T) {
	cfg := Default()
	cfg.Server.MaxBodySizeMB = 100
	cfg.Analysis.LargeFileThresholdMB = 10
	cfg.Analysis.WriteBufferKB = 64

	assert.Equal(t, int64(100*1024*1024), cfg.MaxBodySizeBytes())
	assert.Equal(t, int64(10*1024*1024), cfg.LargeFileThresholdBytes())
	assert.Equal(t, 64*1024, cfg.WriteBufferBytes())
}

func TestLoadWithoutConfigFileUsesDefaultsAndFailsValidationWithoutAuth(t *testing.T) {
	m, err := Load("")
	assert.Error(t, err, "auth credentials and sandbox base dir are required and absent here")
	assert.Nil(t, m)
}
