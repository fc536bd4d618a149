package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/postgres"
	"github.com/faucetdb/touchline/internal/connector/sqlite"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

// newSQLiteExecutor returns an executor over a migrated in-memory database.
func newSQLiteExecutor(t *testing.T) (*database.Executor, *entity.Catalog) {
	t.Helper()
	reg := connector.NewRegistry()
	reg.RegisterDialect(sqlite.New())
	p, err := reg.Open(connector.ConnectionConfig{Dialect: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	c := entity.Football()
	require.NoError(t, entity.Migrate(context.Background(), p, c, nil))
	return database.NewExecutor(p, nil), c
}

func newMockExecutor(t *testing.T) (*database.Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	p := connector.NewProvider(sqlx.NewDb(db, "sqlmock"), postgres.New())
	return database.NewExecutor(p, nil), mock
}

func usersOf(t *testing.T, c *entity.Catalog) *entity.Entity {
	t.Helper()
	u, ok := c.Get("users")
	require.True(t, ok)
	return u
}
