package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.APIBaseURL)
	assert.Equal(t, "/api/v1", c.APIPrefix)
	assert.Equal(t, "/auth/refresh-token", c.RefreshPath)
	assert.Equal(t, "/login", c.LoginRoute)
	assert.Equal(t, 120*time.Second, c.RefreshBuffer)
	assert.Equal(t, 5*time.Second, c.RefreshWaitTimeout)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
}

func TestLoadConfig_UsesDefaultsWithoutSources(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"medadmin"}
	t.Setenv("MEDADMIN_CONFIG", "")

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.APIBaseURL)
	assert.Equal(t, "medadmin.db", cfg.DBPath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"api_base_url": "http://json:1",
		"db_path":      "json.db",
		"log_level":    "warn",
	})
	t.Setenv("MEDADMIN_CONFIG", "")
	t.Setenv("MEDADMIN_DB_PATH", "env.db")
	t.Setenv("MEDADMIN_API_URL", "http://env:2")
	os.Args = []string{"medadmin", "-c", path, "-a", "http://flag:3"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag:3", cfg.APIBaseURL)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}
