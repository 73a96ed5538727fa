package database

import (
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-fusion/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	logger := slog.Default()

	t.Run("missing host", func(t *testing.T) {
		_, err := NewDatabaseConfig(&config.Config{}, logger)
		assert.ErrorIs(t, err, ErrMissingConfig)
	})

	t.Run("builds postgresql url", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Repositories.Postgres.Host = "localhost"
		cfg.Repositories.Postgres.Port = "5432"
		cfg.Repositories.Postgres.Username = "trip"
		cfg.Repositories.Postgres.Password = "s3cret"
		cfg.Repositories.Postgres.DB = "tripfusion"

		dbCfg, err := NewDatabaseConfig(cfg, logger)
		require.NoError(t, err)

		u, err := url.Parse(dbCfg.ConnectionURL)
		require.NoError(t, err)
		assert.Equal(t, "postgresql", u.Scheme)
		assert.Equal(t, "localhost:5432", u.Host)
		assert.Equal(t, "/tripfusion", u.Path)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		pw, _ := u.User.Password()
		assert.Equal(t, "s3cret", pw)
	})
}

func TestRunMigrations_RejectsBadScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/db", slog.Default())
	assert.Error(t, err)
}
