package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Host:              "localhost",
			Port:              DefaultMQTTPort,
			ConnectionTimeout: 10 * time.Second,
			KeepAlive:         60 * time.Second,
			QoS:               1,
			RetryInterval:     5 * time.Second,
		},
		Database: DBConfig{
			Host:                  "localhost",
			Port:                  DefaultDBPort,
			Database:              "tracking_db",
			MaxConnections:        DefaultMaxConnections,
			ConnectionTimeout:     5 * time.Second,
			MaxIdleConnections:    10,
			MaxConnectionLifetime: 60 * time.Minute,
		},
		Service: ServiceConfig{
			GeofenceRadius:         DefaultGeofenceRadius,
			LocationUpdateInterval: DefaultLocationUpdateInterval,
			SessionTimeout:         DefaultSessionTimeout,
			MaxConcurrentSessions:  10,
			MinAccuracy:            10.0,
			MaxLocationHistory:     1000,
			StaleLocationThreshold: 30 * time.Second,
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyMQTTHost(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MQTT.Host = "  "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT host is empty")
}

func TestValidateRejectsOutOfRangeMQTTPort(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MQTT.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvalidQoS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MQTT.QoS = 3
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyDatabaseName(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Database.Database = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroMaxConnections(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Database.MaxConnections = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveGeofenceRadius(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Service.GeofenceRadius = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveSessionTimeout(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Service.SessionTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAggregatesMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MQTT.Host = ""
	cfg.Database.Database = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT host is empty")
	assert.Contains(t, err.Error(), "DB database name is empty")
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, DefaultMQTTPort, cfg.MQTT.Port)
	assert.Equal(t, "tracking_db", cfg.Database.Database)
	assert.Equal(t, DefaultGeofenceRadius, cfg.Service.GeofenceRadius)
}
