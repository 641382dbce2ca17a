package database

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnStringAddsTimeZone(t *testing.T) {
	cfg := Config{DSN: "postgres://u:p@db:5432/portal?sslmode=disable", TimeZone: "Asia/Tehran"}
	assert.Equal(t, "postgres://u:p@db:5432/portal?sslmode=disable&timezone=Asia%2FTehran", cfg.connString())

	cfg.DSN = "postgres://u:p@db:5432/portal?timezone=UTC"
	assert.Equal(t, cfg.DSN, cfg.connString())

	cfg.DSN = "host=db dbname=portal"
	assert.Equal(t, "host=db dbname=portal timezone=Asia/Tehran", cfg.connString())

	cfg.TimeZone = ""
	assert.Equal(t, "host=db dbname=portal", cfg.connString())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/portal")
	t.Setenv("DATABASE_MAX_CONNS", "12")
	t.Setenv("DATABASE_TIMEZONE", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db:5432/portal", cfg.DSN)
	assert.Equal(t, 12, cfg.MaxConns)
	assert.Equal(t, "Asia/Tehran", cfg.TimeZone)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	body, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS installments")
}

func TestConstraintErrors(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
