package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("JWT_SECRET", "secret")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, DriverSQLite, c.StorageDriver)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, "splitfriends.events", c.RabbitExchange)
	assert.Empty(t, c.RabbitURL)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err, "set but empty")

	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	_, err = Load()
	assert.Error(t, err, "unset")
}

func TestValidate(t *testing.T) {
	base := Config{StorageDriver: DriverSQLite, DBPath: "x.db", JWTSecret: "s", TokenTTL: time.Hour}
	require.NoError(t, base.Validate())

	pg := base
	pg.StorageDriver = DriverPostgres
	assert.Error(t, pg.Validate(), "postgres without a DSN")
	pg.PostgresDSN = "postgres://localhost/splitfriends"
	assert.NoError(t, pg.Validate())

	unknown := base
	unknown.StorageDriver = "mongo"
	assert.Error(t, unknown.Validate())

	ttl := base
	ttl.TokenTTL = 0
	assert.Error(t, ttl.Validate())
}
