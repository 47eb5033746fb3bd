package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

// newPostgresTestStorage opens the test database with an empty journal.
func newPostgresTestStorage(t *testing.T) Storage {
	t.Helper()
	s, err := NewPostgresStorage(Config{ConnectionString: getPostgresDSN(t)})
	require.NoError(t, err)
	_, err = s.pool.Exec(context.Background(), `TRUNCATE documents`)
	require.NoError(t, err)
	return s
}

func TestPostgresStorage_EmptyConnectionString(t *testing.T) {
	_, err := NewPostgresStorage(Config{})
	assert.ErrorContains(t, err, "connection string is required")
}

func TestPostgresStorage_Unreachable(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: "postgres://crptapi@127.0.0.1:1/journal?connect_timeout=1"})
	assert.Error(t, err)
}
