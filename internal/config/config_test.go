package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, time.Hour, cfg.Store.MemoryExpiration)
	assert.Equal(t, 2*time.Second, cfg.Client.SaveInterval)
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE", "CouchDB")
	t.Setenv("CLIENT_SAVE_INTERVAL", "500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreCouchDB, cfg.Store.Kind)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.SaveInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "http://u:p@localhost:5984", cfg.Database.URL())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "redis")

	_, err := Load()
	assert.Error(t, err)
}
