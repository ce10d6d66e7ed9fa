// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/matthewbaird/fadem/internal/storage"
	"github.com/matthewbaird/fadem/internal/types"
)

type Config struct {
	Port     string
	Module   string
	Currency string

	Storage storage.Options

	ScanInterval   time.Duration
	BackupInterval time.Duration

	WebhookURL string
	MQTT       struct {
		Broker   string
		ClientID string
		Topic    string
		Username string
		Password string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads a .env file when one exists (variables already set win), then
// the environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:       get("PORT", "8080"),
		Module:     get("FADEM_MODULE", storage.DefaultModule),
		Currency:   strings.ToUpper(get("CURRENCY", types.DefaultCurrency)),
		WebhookURL: get("WEBHOOK_URL", ""),
	}
	cfg.Storage = storage.Options{
		Driver:        strings.ToLower(get("STORAGE_DRIVER", storage.DriverSQLite)),
		DatabaseURL:   get("DATABASE_URL", "file:fadem.db?_pragma=busy_timeout(5000)"),
		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
	}
	db, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil || db < 0 {
		return nil, fmt.Errorf("REDIS_DB: invalid database number %q", getenv("REDIS_DB"))
	}
	cfg.Storage.RedisDB = db

	switch cfg.Storage.Driver {
	case storage.DriverMemory, storage.DriverSQLite, storage.DriverPostgres, storage.DriverRedis:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == storage.DriverPostgres && getenv("DATABASE_URL") == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}

	if cfg.ScanInterval, err = time.ParseDuration(get("SCAN_INTERVAL", "30s")); err != nil || cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("SCAN_INTERVAL: invalid duration %q", getenv("SCAN_INTERVAL"))
	}
	// 0 disables scheduled backups.
	if cfg.BackupInterval, err = time.ParseDuration(get("BACKUP_INTERVAL", "0s")); err != nil || cfg.BackupInterval < 0 {
		return nil, fmt.Errorf("BACKUP_INTERVAL: invalid duration %q", getenv("BACKUP_INTERVAL"))
	}

	cfg.MQTT.Broker = get("MQTT_BROKER", "")
	cfg.MQTT.ClientID = get("MQTT_CLIENT_ID", "fadem")
	cfg.MQTT.Topic = get("MQTT_TOPIC", "fadem/alerts")
	cfg.MQTT.Username = get("MQTT_USERNAME", "")
	cfg.MQTT.Password = get("MQTT_PASSWORD", "")

	cfg.Log.Level = get("LOG_LEVEL", "info")
	cfg.Log.Format = get("LOG_FORMAT", "json")
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }
