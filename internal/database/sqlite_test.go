package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/sqlite"
	"github.com/faucetdb/touchline/internal/query"
)

func newSQLiteExecutor(t *testing.T) *Executor {
	t.Helper()
	reg := connector.NewRegistry()
	reg.RegisterDialect(sqlite.New())
	p, err := reg.Open(connector.ConnectionConfig{Dialect: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	ex := NewExecutor(p, nil)
	d := ex.Dialect()
	_, err = ex.Exec(context.Background(),
		`CREATE TABLE "teams" (`+d.KeyColumn("team_id", true)+`, "team_name" TEXT, "city" TEXT)`, nil)
	require.NoError(t, err)
	return ex
}

func insertTeam(t *testing.T, ex *Executor, name, city string) int64 {
	t.Helper()
	d := ex.Dialect()
	b := query.NewInsert(d.QuoteIdentifier, "teams").
		Value("team_name", "team_name").
		Value("city", "city")
	require.NoError(t, d.PrepareInsert(b, "team_id", "team_seq"))
	stmt, err := b.SQL()
	require.NoError(t, err)

	key, err := ex.Insert(context.Background(), stmt, query.Params{"team_name": name, "city": city})
	require.NoError(t, err)
	return key
}

func TestSQLiteGeneratedKeysAreMonotonic(t *testing.T) {
	ex := newSQLiteExecutor(t)

	n1 := insertTeam(t, ex, "Rovers", "Leeds")
	n2 := insertTeam(t, ex, "Rovers", "Leeds")
	assert.Greater(t, n2, n1)

	// AUTOINCREMENT never hands out a deleted key again.
	_, err := ex.Exec(context.Background(), `DELETE FROM "teams" WHERE "team_id" = :id`, query.Params{"id": n2})
	require.NoError(t, err)
	n3 := insertTeam(t, ex, "Rovers", "Leeds")
	assert.Greater(t, n3, n2)
}

func TestSQLiteDeleteIsIdempotent(t *testing.T) {
	ex := newSQLiteExecutor(t)
	id := insertTeam(t, ex, "City", "Bristol")

	del := `DELETE FROM "teams" WHERE "team_id" = :id`
	n, err := ex.Exec(context.Background(), del, query.Params{"id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = ex.Exec(context.Background(), del, query.Params{"id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLiteNullRoundTrip(t *testing.T) {
	ex := newSQLiteExecutor(t)
	d := ex.Dialect()
	b := query.NewInsert(d.QuoteIdentifier, "teams").
		Value("team_name", "team_name").
		Value("city", "city")
	require.NoError(t, d.PrepareInsert(b, "team_id", "team_seq"))
	stmt, err := b.SQL()
	require.NoError(t, err)

	// city is referenced but absent, so it binds as NULL.
	id, err := ex.Insert(context.Background(), stmt, query.Params{"team_name": "Athletic"})
	require.NoError(t, err)

	records, err := ex.Select(context.Background(),
		`SELECT "team_id", "team_name", "city" FROM "teams" WHERE "team_id" = :id`, query.Params{"id": id})
	require.NoError(t, err)
	require.Len(t, records, 1)

	city, ok := records[0].Get("city")
	assert.True(t, ok)
	assert.Nil(t, city)
	name, _ := records[0].Get("team_name")
	assert.Equal(t, "Athletic", name)
}

func TestSQLiteTransactionRollback(t *testing.T) {
	ex := newSQLiteExecutor(t)
	ctx := context.Background()

	err := ex.InTx(ctx, func(s *Session) error {
		if _, err := s.Exec(ctx, `INSERT INTO "teams" ("team_name") VALUES (:n)`, query.Params{"n": "Ghost"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := ex.Count(ctx, `SELECT COUNT(*) FROM "teams"`, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
