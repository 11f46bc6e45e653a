// Package config defines the typed configuration structures shared across layers.
package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"` // sqlite file path
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		if d.Path == "" {
			return "scripthub.db"
		}
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret                string `mapstructure:"secret"`
	AccessExpMinutes      int    `mapstructure:"access_exp_minutes"`
	RefreshExpDays        int    `mapstructure:"refresh_exp_days"`
	RenewalWindowMinutes  int    `mapstructure:"renewal_window_minutes"`
	RenewalTimeoutSeconds int    `mapstructure:"renewal_timeout_seconds"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
	// ServiceToken guards service-to-service endpoints (payment webhooks,
	// session establishment, admin). Empty disables those routes.
	ServiceToken string `mapstructure:"service_token"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LicenseConfig carries the entitlement-engine tunables.
type LicenseConfig struct {
	TrialDurationHours int `mapstructure:"trial_duration_hours"`
	// ValidatePerMinute limits validate calls per key source (0 disables).
	ValidatePerMinute int `mapstructure:"validate_per_minute"`
}

// StoreRetryConfig bounds retries against a transiently failing database.
type StoreRetryConfig struct {
	MaxAttempts     int `mapstructure:"max_attempts"`
	InitialDelayMs  int `mapstructure:"initial_delay_ms"`
	MaxTotalDelayMs int `mapstructure:"max_total_delay_ms"`
}
