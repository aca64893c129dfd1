package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Email     EmailConfig     `yaml:"email"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Rental    RentalConfig    `yaml:"rental"`
	Zone      ZoneConfig      `yaml:"zone"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains token validation settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// EmailConfig contains sendgrid settings; an empty API key disables
// outbound email.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// StorageConfig contains damage photo storage settings
type StorageConfig struct {
	Type          string `yaml:"type"`       // "local"
	UploadDir     string `yaml:"upload_dir"` // For local storage
	BaseURL       string `yaml:"base_url"`   // Server base URL for local URLs
	MaxFileSizeMB int64  `yaml:"max_file_size_mb"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// RentalConfig carries the penalty base amounts in cents
type RentalConfig struct {
	DamageBaseCents          int32 `yaml:"damage_base_cents"`
	LateReturnBaseCents      int32 `yaml:"late_return_base_cents"`
	LateReturnPerMinuteCents int32 `yaml:"late_return_per_minute_cents"`
	ParkingBaseCents         int32 `yaml:"parking_base_cents"`
	GeofenceBaseCents        int32 `yaml:"geofence_base_cents"`
	CancellationCents        int32 `yaml:"cancellation_cents"`
}

// ZoneConfig describes the operating zone and the debounce threshold
type ZoneConfig struct {
	CenterLongitude  float64      `yaml:"center_longitude"`
	CenterLatitude   float64      `yaml:"center_latitude"`
	RadiusM          float64      `yaml:"radius_m"`
	Polygon          [][2]float64 `yaml:"polygon"`
	ThresholdMinutes int          `yaml:"threshold_minutes"`
}

// SchedulerConfig holds cron expressions for the background jobs
type SchedulerConfig struct {
	MarkOverdueBookings    string `yaml:"mark_overdue_bookings"`
	SendReturnReminders    string `yaml:"send_return_reminders"`
	ReconcileStationCounts string `yaml:"reconcile_station_counts"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Storage
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "evrental-identity"
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}

	if c.Zone.RadiusM <= 0 && len(c.Zone.Polygon) < 3 {
		return fmt.Errorf("operating zone needs a radius or a polygon")
	}
	if c.Zone.ThresholdMinutes <= 0 {
		c.Zone.ThresholdMinutes = 5
	}

	// Penalty defaults
	if c.Rental.DamageBaseCents == 0 {
		c.Rental.DamageBaseCents = 5000
	}
	if c.Rental.LateReturnBaseCents == 0 {
		c.Rental.LateReturnBaseCents = 1000
	}
	if c.Rental.LateReturnPerMinuteCents == 0 {
		c.Rental.LateReturnPerMinuteCents = 50
	}
	if c.Rental.ParkingBaseCents == 0 {
		c.Rental.ParkingBaseCents = 2000
	}
	if c.Rental.GeofenceBaseCents == 0 {
		c.Rental.GeofenceBaseCents = 3000
	}

	// Scheduler defaults
	if c.Scheduler.MarkOverdueBookings == "" {
		c.Scheduler.MarkOverdueBookings = "0 */10 * * * *" // every 10 minutes
	}
	if c.Scheduler.SendReturnReminders == "" {
		c.Scheduler.SendReturnReminders = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.ReconcileStationCounts == "" {
		c.Scheduler.ReconcileStationCounts = "0 0 3 * * *" // 3 AM UTC
	}

	return nil
}

// ZoneThreshold returns the debounce threshold as a duration
func (c *Config) ZoneThreshold() time.Duration {
	return time.Duration(c.Zone.ThresholdMinutes) * time.Minute
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
