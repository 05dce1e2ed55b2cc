package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
auth:
  jwt_secret: s3cret
reminder:
  delay: 2m
mail:
  retries: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.Reminder.Delay)
	assert.Equal(t, 5, cfg.Mail.Retries)

	// untouched keys fall back to defaults
	assert.Equal(t, time.Second, cfg.Mail.Backoff)
	assert.Equal(t, "memory", cfg.Reminder.Backend)
	assert.Equal(t, 4000, cfg.Gateway.Port)
	assert.Zero(t, cfg.Order.DeliveryFee)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: memory\n")
	t.Setenv("STOREFRONT_AUTH_JWT_SECRET", "from-env")
	t.Setenv("STOREFRONT_GATEWAY_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 9090, cfg.Gateway.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "storage:\n  driver: memory\n"},
		{"bad driver", "storage:\n  driver: postgres\nauth:\n  jwt_secret: x\n"},
		{"bad reminder backend", "reminder:\n  backend: kafka\nauth:\n  jwt_secret: x\n"},
		{"zero retries", "mail:\n  retries: 0\nauth:\n  jwt_secret: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ShippedFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, "GHS", cfg.Order.Currency)
	assert.Zero(t, cfg.Order.DeliveryFee)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMySQLConfig_DSN(t *testing.T) {
	c := MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "shop"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}
