// Package postgres implements the PostgreSQL dialect over pgx's
// database/sql driver.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// SQLSTATE codes for duplicate_table, duplicate_schema and duplicate_object.
var alreadyExistsCodes = map[string]bool{"42P07": true, "42P06": true, "42710": true}

// Dialect implements connector.Dialect for PostgreSQL.
type Dialect struct{}

// New returns the PostgreSQL dialect.
func New() connector.Dialect { return Dialect{} }

func (Dialect) Name() string       { return "postgres" }
func (Dialect) DriverName() string { return "pgx" }
func (Dialect) BindType() int      { return sqlx.DOLLAR }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (Dialect) QuoteIdentifier(name string) string { return query.PostgresQuote(name) }

func (Dialect) KeyStrategy() connector.KeyStrategy { return connector.KeyFromRow }

// PrepareInsert draws the key from nextval() and returns it with RETURNING.
func (d Dialect) PrepareInsert(b *query.InsertBuilder, key, sequence string) error {
	if err := query.ValidateQualifiedIdentifier(sequence); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	b.Expr(key, "nextval('"+query.QuoteQualified(sequence, query.PostgresQuote)+"')")
	b.Suffix("RETURNING " + d.QuoteIdentifier(key))
	return nil
}

func (Dialect) Paginate(limit, offset int) string { return query.BuildLimitOffset(limit, offset) }
func (Dialect) LockSuffix() string                { return " FOR UPDATE" }

func (Dialect) ColumnType(kind fieldmap.Kind) string {
	switch kind {
	case fieldmap.KindInteger:
		return "INTEGER"
	case fieldmap.KindDecimal:
		return "NUMERIC(18,2)"
	case fieldmap.KindDate:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d Dialect) KeyColumn(key string, _ bool) string {
	return d.QuoteIdentifier(key) + " BIGINT PRIMARY KEY"
}

func (Dialect) CreateSequence(_, sequence string, start int64) []string {
	if start < 1 {
		start = 1
	}
	return []string{fmt.Sprintf("CREATE SEQUENCE %s START WITH %d",
		query.QuoteQualified(sequence, query.PostgresQuote), start)}
}

func (Dialect) IsAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return alreadyExistsCodes[pgErr.Code]
	}
	return err != nil && strings.Contains(err.Error(), "already exists")
}
