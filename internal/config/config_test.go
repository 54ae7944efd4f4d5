package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/task-lobby/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, SourcePostgres, cfg.Catalog.Source)
	assert.Equal(t, models.TagCatalog(DefaultTaskTags), cfg.Catalog.Tags)
	assert.Equal(t, "other", cfg.Catalog.Tags.Rest())
	assert.Equal(t, 10*time.Minute, cfg.Catalog.RefreshInterval)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TASK_TAGS", " math, strings ,, math,rest ")
	t.Setenv("CATALOG_SOURCE", "file")
	t.Setenv("CATALOG_DIR", "/srv/catalog")
	t.Setenv("SELECTION_IDLE_TTL", "45m")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, models.TagCatalog{"math", "strings", "rest"}, cfg.Catalog.Tags)
	assert.Equal(t, SourceFile, cfg.Catalog.Source)
	assert.Equal(t, 45*time.Minute, cfg.Selection.IdleTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "invalid server port"},
		{"unknown source", map[string]string{"CATALOG_SOURCE": "ftp"}, "unknown catalog source"},
		{"platform without dsn", map[string]string{"CATALOG_SOURCE": "platform"}, "CATALOG_PLATFORM_DSN"},
		{"empty dsn", map[string]string{"DATABASE_DSN": ""}, "database DSN is required"},
		{"zero refresh", map[string]string{"CATALOG_REFRESH_INTERVAL": "0s"}, "refresh interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
