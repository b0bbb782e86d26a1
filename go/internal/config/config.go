// Package config reads server settings from the environment and an optional
// YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/courtclock/go/internal/clock"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/users"
	"gopkg.in/yaml.v3"
)

// Config holds everything the server process needs.
type Config struct {
	Port     string
	LogLevel string

	TickInterval     time.Duration
	ScheduleInterval time.Duration
	Timezone         string

	AdminUsername string
	AdminPassword string
	BcryptCost    int

	MaxConnections int
	CommandRate    float64
	CommandBurst   int

	NATSURL           string
	NATSSubjectPrefix string

	MQTTBrokerURL string
	MQTTTopic     string
	MQTTClientID  string

	Defaults  models.Settings
	Operators []users.Credential
}

// File is the optional YAML configuration named by COURTCLOCK_CONFIG.
type File struct {
	Timezone  string             `yaml:"timezone"`
	Defaults  models.Settings    `yaml:"defaults"`
	Operators []users.Credential `yaml:"operators"`
}

// Load reads COURTCLOCK_* style environment variables and, when
// COURTCLOCK_CONFIG is set, the YAML file it points to. Environment values win
// over the file.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TickInterval:      getEnvAsDuration("TICK_INTERVAL", 100*time.Millisecond),
		ScheduleInterval:  getEnvAsDuration("SCHEDULE_INTERVAL", 20*time.Second),
		Timezone:          os.Getenv("TIMEZONE"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "admin"),
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 0),
		MaxConnections:    getEnvAsInt("MAX_CONNECTIONS", 100),
		CommandRate:       getEnvAsFloat("COMMAND_RATE", 20),
		CommandBurst:      getEnvAsInt("COMMAND_BURST", 40),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "courtclock.events"),
		MQTTBrokerURL:     os.Getenv("MQTT_BROKER_URL"),
		MQTTTopic:         getEnv("MQTT_TOPIC", "courtclock/siren"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "courtclock"),
		Defaults:          models.DefaultSettings(),
	}

	if path := os.Getenv("COURTCLOCK_CONFIG"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Defaults = f.Defaults
		cfg.Operators = f.Operators
		if cfg.Timezone == "" {
			cfg.Timezone = f.Timezone
		}
	}
	if cfg.Timezone == "" {
		cfg.Timezone = clock.DefaultTimezone
	}
	if _, err := clock.LoadTimezone(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.TickInterval <= 0 || cfg.ScheduleInterval <= 0 {
		return Config{}, fmt.Errorf("tick and schedule intervals must be positive")
	}
	// entries match a single wall-clock minute, so a slower evaluation misses them
	if cfg.ScheduleInterval > time.Minute {
		return Config{}, fmt.Errorf("SCHEDULE_INTERVAL must be at most 1m, got %s", cfg.ScheduleInterval)
	}
	if cfg.CommandRate <= 0 || cfg.CommandBurst < 1 {
		return Config{}, fmt.Errorf("COMMAND_RATE must be positive and COMMAND_BURST at least 1")
	}
	cfg.Defaults = models.ClampSettings(cfg.Defaults)
	return cfg, nil
}

// LoadFile parses a YAML config file. Omitted timer defaults keep the factory values.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file: %w", err)
	}

	f := File{Defaults: models.DefaultSettings()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return f, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
