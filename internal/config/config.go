//
// Go 1.21
//
// Package config provides a robust, enterprise-grade configuration management solution
// for the Tracking Service. It loads and validates all necessary settings related to
// MQTT broker connectivity, TimescaleDB parameters, and service-level configurations
// such as geofencing, location updates, and session timeouts. Comprehensive validation
// ensures integrity and security of the configuration.
//
// This package strictly follows production-ready standards and fully addresses
// the requirements for real-time location tracking, TimescaleDB storage settings,
// and MQTT-based communication patterns used by the rest of the service.
//
package config

// ------------------------
// External Imports
// ------------------------
import (
	"fmt"     // go1.21 - For formatted error output
	"strings" // go1.21 - For constructing detailed validation error messages
	"time"    // go1.21 - For duration and timeout configurations in service settings

	// viper: environment-variable driven configuration loading (github.com/spf13/viper v1.16.0)
	"github.com/spf13/viper"
)

// ------------------------
// Global Default Constants
// ------------------------
//
// Default configuration constants for use as sane fallbacks
// when environment variables or external settings are not provided.
//
const (
	DefaultMQTTPort               = 1883
	DefaultDBPort                 = 5432
	DefaultGeofenceRadius         = 0.5 // kilometers
	DefaultMaxConnections         = 100
	DefaultLocationUpdateInterval = 5 * time.Second
	DefaultSessionTimeout         = 30 * time.Minute
)

// ------------------------
// MQTTConfig Struct
// ------------------------
//
// MQTTConfig defines core MQTT connection parameters,
// including security settings (TLS) and reconnect handling.
//
type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ConnectionTimeout time.Duration
	KeepAlive         time.Duration
	TLSEnabled        bool
	QoS               int
	RetryInterval     time.Duration
}

// ------------------------
// DBConfig Struct
// ------------------------
//
// DBConfig defines TimescaleDB connection parameters,
// including credentials, connection pooling, timeouts,
// and other essential database settings.
//
type DBConfig struct {
	Host                  string
	Port                  int
	Database              string
	Username              string
	Password              string
	MaxConnections        int
	ConnectionTimeout     time.Duration
	MaxIdleConnections    int
	MaxConnectionLifetime time.Duration
}

// ------------------------
// ServiceConfig Struct
// ------------------------
//
// ServiceConfig defines general service-level parameters such as geofencing radius,
// location update intervals, session timeouts, and other tracking-related settings.
//
type ServiceConfig struct {
	GeofenceRadius         float64
	LocationUpdateInterval time.Duration
	SessionTimeout         time.Duration
	MaxConcurrentSessions  int
	MinAccuracy            float64
	MaxLocationHistory     int
	StaleLocationThreshold time.Duration
}

// ------------------------
// Config Struct
// ------------------------
//
// Config is the main configuration structure for the tracking service,
// consolidating MQTT, DB, and Service-level configs. It offers a Validate method
// to ensure all fields are thoroughly checked and safe for production use.
//
type Config struct {
	MQTT     MQTTConfig
	Database DBConfig
	Service  ServiceConfig
}

// ------------------------
// Validate Method
// ------------------------
//
// Validate performs comprehensive validation on all configuration fields.
// It aggregates any errors found and returns them as a single error. If no
// issues are found, it returns nil.
//
// Returns:
//   error: A descriptive error if any validation checks fail, or nil otherwise.
//
func (c *Config) Validate() error {
	var validationErrs []string

	// ------------------------
	// MQTT Validation
	// ------------------------
	if strings.TrimSpace(c.MQTT.Host) == "" {
		validationErrs = append(validationErrs, "MQTT host is empty")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		validationErrs = append(validationErrs, fmt.Sprintf("MQTT port %d is out of valid range", c.MQTT.Port))
	}
	if c.MQTT.ConnectionTimeout <= 0 {
		validationErrs = append(validationErrs, "MQTT connection timeout must be greater than zero")
	}
	if c.MQTT.KeepAlive < 0 {
		validationErrs = append(validationErrs, "MQTT keep-alive cannot be negative")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		validationErrs = append(validationErrs, fmt.Sprintf("MQTT QoS %d is invalid; must be 0, 1, or 2", c.MQTT.QoS))
	}
	if c.MQTT.RetryInterval < 0 {
		validationErrs = append(validationErrs, "MQTT retry interval cannot be negative")
	}

	// ------------------------
	// Database Validation
	// ------------------------
	if strings.TrimSpace(c.Database.Host) == "" {
		validationErrs = append(validationErrs, "DB host is empty")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		validationErrs = append(validationErrs, fmt.Sprintf("DB port %d is out of valid range", c.Database.Port))
	}
	if strings.TrimSpace(c.Database.Database) == "" {
		validationErrs = append(validationErrs, "DB database name is empty")
	}
	if c.Database.MaxConnections < 1 {
		validationErrs = append(validationErrs, fmt.Sprintf("DB max connections %d is invalid; must be at least 1", c.Database.MaxConnections))
	}
	if c.Database.ConnectionTimeout < 0 {
		validationErrs = append(validationErrs, "DB connection timeout cannot be negative")
	}
	if c.Database.MaxIdleConnections < 0 {
		validationErrs = append(validationErrs, fmt.Sprintf("DB max idle connections %d cannot be negative", c.Database.MaxIdleConnections))
	}
	if c.Database.MaxConnectionLifetime < 0 {
		validationErrs = append(validationErrs, "DB max connection lifetime cannot be negative")
	}

	// ------------------------
	// Service Validation
	// ------------------------
	if c.Service.GeofenceRadius <= 0 {
		validationErrs = append(validationErrs, fmt.Sprintf("service geofence radius %f must be positive", c.Service.GeofenceRadius))
	}
	if c.Service.LocationUpdateInterval <= 0 {
		validationErrs = append(validationErrs, "service location update interval must be greater than zero")
	}
	if c.Service.SessionTimeout <= 0 {
		validationErrs = append(validationErrs, "service session timeout must be greater than zero")
	}
	if c.Service.MaxConcurrentSessions < 0 {
		validationErrs = append(validationErrs, fmt.Sprintf("service max concurrent sessions %d cannot be negative", c.Service.MaxConcurrentSessions))
	}
	if c.Service.MinAccuracy < 0 {
		validationErrs = append(validationErrs, fmt.Sprintf("service minimum accuracy %f cannot be negative", c.Service.MinAccuracy))
	}
	if c.Service.MaxLocationHistory < 0 {
		validationErrs = append(validationErrs, fmt.Sprintf("service max location history %d cannot be negative", c.Service.MaxLocationHistory))
	}
	if c.Service.StaleLocationThreshold < 0 {
		validationErrs = append(validationErrs, "service stale location threshold cannot be negative")
	}

	// ------------------------
	// Return Validation Errors
	// ------------------------
	if len(validationErrs) > 0 {
		return fmt.Errorf("configuration validation failed:\n - %s", strings.Join(validationErrs, "\n - "))
	}
	return nil
}

// setDefaults registers every fallback value LoadConfig relies on, so a
// deployment only needs to set the environment variables it wants to
// override.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", DefaultMQTTPort)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.tls_enabled", false)
	v.SetDefault("mqtt.connection_timeout", "10s")
	v.SetDefault("mqtt.keep_alive", "60s")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retry_interval", "5s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", DefaultDBPort)
	v.SetDefault("db.database", "tracking_db")
	v.SetDefault("db.user", "")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.max_connections", DefaultMaxConnections)
	v.SetDefault("db.connection_timeout", "5s")
	v.SetDefault("db.max_idle_connections", 10)
	v.SetDefault("db.max_connection_lifetime", "60m")

	v.SetDefault("service.geofence_radius", DefaultGeofenceRadius)
	v.SetDefault("service.location_update_interval", "5s")
	v.SetDefault("service.session_timeout", "30m")
	v.SetDefault("service.max_concurrent_sessions", 10)
	v.SetDefault("service.min_accuracy", 10.0)
	v.SetDefault("service.max_location_history", 1000)
	v.SetDefault("service.stale_location_threshold", "30s")
}

// ------------------------
// LoadConfig Function
// ------------------------
//
// LoadConfig reads MQTT_*, DB_*, and SERVICE_* environment variables via
// viper, applies defaults for anything unset, and returns a populated
// Config pointer validated for production use.
//
// Returns:
//   *Config: Populated configuration struct if successful
//   error:   Any error if configuration loading or validation fails
//
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		MQTT: MQTTConfig{
			Host:              v.GetString("mqtt.host"),
			Port:              v.GetInt("mqtt.port"),
			Username:          v.GetString("mqtt.username"),
			Password:          v.GetString("mqtt.password"),
			TLSEnabled:        v.GetBool("mqtt.tls_enabled"),
			ConnectionTimeout: v.GetDuration("mqtt.connection_timeout"),
			KeepAlive:         v.GetDuration("mqtt.keep_alive"),
			QoS:               v.GetInt("mqtt.qos"),
			RetryInterval:     v.GetDuration("mqtt.retry_interval"),
		},
		Database: DBConfig{
			Host:                  v.GetString("db.host"),
			Port:                  v.GetInt("db.port"),
			Database:              v.GetString("db.database"),
			Username:              v.GetString("db.user"),
			Password:              v.GetString("db.pass"),
			MaxConnections:        v.GetInt("db.max_connections"),
			ConnectionTimeout:     v.GetDuration("db.connection_timeout"),
			MaxIdleConnections:    v.GetInt("db.max_idle_connections"),
			MaxConnectionLifetime: v.GetDuration("db.max_connection_lifetime"),
		},
		Service: ServiceConfig{
			GeofenceRadius:         v.GetFloat64("service.geofence_radius"),
			LocationUpdateInterval: v.GetDuration("service.location_update_interval"),
			SessionTimeout:         v.GetDuration("service.session_timeout"),
			MaxConcurrentSessions:  v.GetInt("service.max_concurrent_sessions"),
			MinAccuracy:            v.GetFloat64("service.min_accuracy"),
			MaxLocationHistory:     v.GetInt("service.max_location_history"),
			StaleLocationThreshold: v.GetDuration("service.stale_location_threshold"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
