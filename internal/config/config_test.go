package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "empty mirror root",
			mutate:  func(c *Config) { c.Mirror.Root = "" },
			wantErr: "mirror root is required",
		},
		{
			name:    "nested extract dir",
			mutate:  func(c *Config) { c.Extract.Dir = "data/ia" },
			wantErr: "invalid extract dir",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "bad table",
			mutate:  func(c *Config) { c.Database.Table = "a.b.c" },
			wantErr: "invalid database table",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Database.LoginTimeout = 0 },
			wantErr: "login_timeout must be at least 1s",
		},
		{
			name:    "nanosecond connect timeout",
			mutate:  func(c *Config) { c.Database.ConnectTimeout = 15 },
			wantErr: "connect_timeout must be at least 1s",
		},
		{
			name:    "negative max entries",
			mutate:  func(c *Config) { c.Activity.MaxEntries = -1 },
			wantErr: "cannot be negative",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero queue",
			mutate:  func(c *Config) { c.Server.QueueSize = 0 },
			wantErr: "queue size must be positive",
		},
		{
			name:   "telemetry disabled ignores protocol",
			mutate: func(c *Config) { c.Telemetry.Protocol = "udp" },
		},
		{
			name: "telemetry unknown protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "unsupported telemetry protocol",
		},
		{
			name: "telemetry sample rate",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: "sample rate must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_SampleDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "AA", cfg.Extract.Method)
	assert.Equal(t, 6, cfg.Extract.Lab)
	assert.Equal(t, 1000, cfg.Activity.MaxEntries)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, ProtocolGRPC, cfg.Telemetry.Protocol)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("p@ss")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "p@ss", s.Value())
	assert.True(t, s.IsSet())
	assert.False(t, Secret("").IsSet())

	out, err := json.Marshal(DatabaseConfig{Password: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "p@ss")

	var back Secret
	require.NoError(t, back.UnmarshalText([]byte("raw")))
	assert.Equal(t, "raw", back.Value())
}

func TestValidTable(t *testing.T) {
	assert.True(t, ValidTable("dbo.nm_geochronology"))
	assert.True(t, ValidTable("nm_geochronology"))
	assert.False(t, ValidTable("nm geochronology"))
	assert.False(t, ValidTable("1table"))
	assert.False(t, ValidTable(""))
}
