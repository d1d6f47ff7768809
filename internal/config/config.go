// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers file/env.
// - External errors must be wrapped via this package's sentinel errors.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite session store file.
	DBPath string `koanf:"db_path"`

	// CORSOrigins lists allowed browser origins for the HTTP API.
	CORSOrigins []string `koanf:"cors_origins"`

	// MaxSessionList caps GET /api/sessions?limit.
	MaxSessionList int `koanf:"max_session_list"`

	// RetentionHours controls how long incomplete sessions are kept before
	// the maintenance loop prunes them. Zero disables pruning.
	RetentionHours int `koanf:"retention_hours"`

	// MaintenanceIntervalMinutes sets the cadence of the maintenance loop.
	MaintenanceIntervalMinutes int `koanf:"maintenance_interval_minutes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		Addr:                       ":8000",
		DBPath:                     "kinescreen.db",
		CORSOrigins:                []string{"*"},
		MaxSessionList:             100,
		RetentionHours:             24,
		MaintenanceIntervalMinutes: 60,
	}
}
