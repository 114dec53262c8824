// Package config provides configuration loading for dvc-connector.
//
// Configuration is assembled from an optional YAML file and environment
// variables, then completed with defaults and validated. Constructors in the
// other packages take the relevant section explicitly; nothing here touches
// the filesystem on import.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Database drivers understood by the store package.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// tablePattern allows a bare or schema-qualified SQL identifier.
var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds the complete dvc-connector configuration.
type Config struct {
	Mirror    MirrorConfig    `koanf:"mirror"`
	Extract   ExtractConfig   `koanf:"extract"`
	Database  DatabaseConfig  `koanf:"database"`
	Activity  ActivityConfig  `koanf:"activity"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// MirrorConfig controls where repositories are mirrored and which branch is tracked.
type MirrorConfig struct {
	Root   string `koanf:"root"`
	Remote string `koanf:"remote"`
	Branch string `koanf:"branch"`
}

// ExtractConfig holds the sample directory name and the values injected into every record.
type ExtractConfig struct {
	Dir         string `koanf:"dir"`
	Method      string `koanf:"method"`
	Description string `koanf:"description"`
	Lab         int    `koanf:"lab"`
}

// DatabaseConfig holds connection parameters for the target table.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       Secret        `koanf:"password"`
	Name           string        `koanf:"name"`
	Table          string        `koanf:"table"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	LoginTimeout   time.Duration `koanf:"login_timeout"`

	// StrictConnect turns an unreachable database into a request failure
	// instead of a logged warning.
	StrictConnect bool `koanf:"strict_connect"`
}

// ActivityConfig controls the in-memory recent activity log.
type ActivityConfig struct {
	Disabled   bool          `koanf:"disabled"`
	Window     time.Duration `koanf:"window"`
	MaxEntries int           `koanf:"max_entries"`
}

// ServerConfig holds webhook listener configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	WebhookSecret   Secret        `koanf:"webhook_secret"`
	QueueSize       int           `koanf:"queue_size"`
	RateLimit       float64       `koanf:"rate_limit"`
	RateBurst       int           `koanf:"rate_burst"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Trace export protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// TelemetryConfig controls OTLP trace export. Disabled by default since most
// deployments have no collector.
type TelemetryConfig struct {
	Enabled       bool    `koanf:"enabled"`
	Endpoint      string  `koanf:"endpoint"`
	Protocol      string  `koanf:"protocol"`
	Insecure      bool    `koanf:"insecure"`
	TLSSkipVerify bool    `koanf:"tls_skip_verify"`
	SampleRate    float64 `koanf:"sample_rate"`
	ServiceName   string  `koanf:"service_name"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the mirror root, remote or branch is empty
//   - the database driver is unknown or the table is not a plain identifier
//   - a database timeout is below one second (a bare integer decodes as nanoseconds)
//   - another timeout is not positive
//   - the server port is outside 1-65535 or the queue size is not positive
//   - telemetry is enabled with an unknown protocol or a sample rate outside 0-1
func (c *Config) Validate() error {
	if c.Mirror.Root == "" {
		return errors.New("mirror root is required")
	}
	if c.Mirror.Remote == "" || c.Mirror.Branch == "" {
		return errors.New("mirror remote and branch are required")
	}

	if c.Extract.Dir == "" || strings.ContainsAny(c.Extract.Dir, `/\`) {
		return fmt.Errorf("invalid extract dir: %q", c.Extract.Dir)
	}

	switch c.Database.Driver {
	case DriverSQLServer, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if !tablePattern.MatchString(c.Database.Table) {
		return fmt.Errorf("invalid database table: %q", c.Database.Table)
	}
	if c.Database.ConnectTimeout < time.Second {
		return fmt.Errorf("database connect_timeout must be at least 1s, got %s (write durations with a unit, e.g. \"15s\")", c.Database.ConnectTimeout)
	}
	if c.Database.LoginTimeout < time.Second {
		return fmt.Errorf("database login_timeout must be at least 1s, got %s (write durations with a unit, e.g. \"5s\")", c.Database.LoginTimeout)
	}

	if c.Activity.Window <= 0 {
		return errors.New("activity window must be positive")
	}
	if c.Activity.MaxEntries < 0 {
		return fmt.Errorf("activity max entries cannot be negative: %d", c.Activity.MaxEntries)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive: %d", c.Server.QueueSize)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case ProtocolGRPC, ProtocolHTTP:
		default:
			return fmt.Errorf("unsupported telemetry protocol: %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry sample rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
		}
	}

	return nil
}

// ValidTable reports whether name is usable as the target table identifier.
func ValidTable(name string) bool {
	return tablePattern.MatchString(name)
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Mirror.Root == "" {
		cfg.Mirror.Root = filepath.Join("~", ".dvc_connector", "repositories")
	}
	cfg.Mirror.Root = expandHome(cfg.Mirror.Root)
	if cfg.Mirror.Remote == "" {
		cfg.Mirror.Remote = "origin"
	}
	if cfg.Mirror.Branch == "" {
		cfg.Mirror.Branch = "master"
	}

	if cfg.Extract.Dir == "" {
		cfg.Extract.Dir = "ia"
	}
	if cfg.Extract.Method == "" {
		cfg.Extract.Method = "AA"
	}
	if cfg.Extract.Description == "" {
		cfg.Extract.Description = "40/39 Argon-Argon"
	}
	if cfg.Extract.Lab == 0 {
		cfg.Extract.Lab = 6 // NMGRL
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLServer
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "dbo.nm_geochronology"
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 15 * time.Second
	}
	if cfg.Database.LoginTimeout == 0 {
		cfg.Database.LoginTimeout = 5 * time.Second
	}

	if cfg.Activity.Window == 0 {
		cfg.Activity.Window = 48 * time.Hour
	}
	if cfg.Activity.MaxEntries == 0 {
		cfg.Activity.MaxEntries = 1000
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.QueueSize == 0 {
		cfg.Server.QueueSize = 64
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 1
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 10
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = ProtocolGRPC
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "dvc-connector"
	}
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
