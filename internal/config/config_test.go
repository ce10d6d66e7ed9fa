package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fadem/internal/storage"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "immobilier", cfg.Module)
	assert.Equal(t, "XOF", cfg.Currency)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Zero(t, cfg.BackupInterval)
	assert.Equal(t, "fadem/alerts", cfg.MQTT.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":            "9000",
		"STORAGE_DRIVER":  "Redis",
		"REDIS_ADDR":      "cache:6379",
		"REDIS_DB":        "2",
		"CURRENCY":        "eur",
		"SCAN_INTERVAL":   "5m",
		"BACKUP_INTERVAL": "1h",
		"WEBHOOK_URL":     "https://hooks.example.com/fadem",
		"MQTT_BROKER":     "tcp://broker:1883",
		"LOG_FORMAT":      "console",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, storage.DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 5*time.Minute, cfg.ScanInterval)
	assert.Equal(t, time.Hour, cfg.BackupInterval)
	assert.Equal(t, "https://hooks.example.com/fadem", cfg.WebhookURL)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":       {"STORAGE_DRIVER": "mongo"},
		"postgres without url": {"STORAGE_DRIVER": "postgres"},
		"bad redis db":         {"REDIS_DB": "one"},
		"bad scan interval":    {"SCAN_INTERVAL": "often"},
		"zero scan interval":   {"SCAN_INTERVAL": "0s"},
		"negative backup":      {"BACKUP_INTERVAL": "-1h"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FADEM_MODULE=test_module\nPORT=7070\n"), 0o600))
	t.Setenv("PORT", "6060")
	t.Setenv("FADEM_MODULE", "")
	require.NoError(t, os.Unsetenv("FADEM_MODULE"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test_module", cfg.Module)
	assert.Equal(t, ":6060", cfg.Addr(), "the environment wins over the file")
}
