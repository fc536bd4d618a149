// Package sqlite implements the SQLite dialect over modernc.org/sqlite.
// Keys come from INTEGER PRIMARY KEY AUTOINCREMENT, which never reuses a
// value, and are read back with RETURNING.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// Dialect implements connector.Dialect for SQLite.
type Dialect struct{}

// New returns the SQLite dialect.
func New() connector.Dialect { return Dialect{} }

func (Dialect) Name() string       { return "sqlite" }
func (Dialect) DriverName() string { return "sqlite" }
func (Dialect) BindType() int      { return sqlx.QUESTION }

func (Dialect) QuoteIdentifier(name string) string { return query.PostgresQuote(name) }

func (Dialect) KeyStrategy() connector.KeyStrategy { return connector.KeyFromRow }

// PrepareInsert leaves the key to AUTOINCREMENT and returns it. The
// sequence name is not used.
func (d Dialect) PrepareInsert(b *query.InsertBuilder, key, _ string) error {
	if err := query.ValidateIdentifier(key); err != nil {
		return err
	}
	b.Suffix("RETURNING " + d.QuoteIdentifier(key))
	return nil
}

func (Dialect) Paginate(limit, offset int) string {
	if limit <= 0 && offset > 0 {
		// SQLite requires LIMIT before OFFSET.
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	}
	return query.BuildLimitOffset(limit, offset)
}

// LockSuffix is empty: a SQLite write transaction already holds the
// database lock.
func (Dialect) LockSuffix() string { return "" }

func (Dialect) ColumnType(kind fieldmap.Kind) string {
	switch kind {
	case fieldmap.KindInteger:
		return "INTEGER"
	case fieldmap.KindDecimal:
		return "NUMERIC"
	case fieldmap.KindDate:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (d Dialect) KeyColumn(key string, generated bool) string {
	if generated {
		return d.QuoteIdentifier(key) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return d.QuoteIdentifier(key) + " INTEGER PRIMARY KEY"
}

// CreateSequence seeds sqlite_sequence so the first key is start.
func (Dialect) CreateSequence(table, _ string, start int64) []string {
	if start <= 1 {
		return nil
	}
	name := strings.ReplaceAll(table, "'", "''")
	return []string{fmt.Sprintf(
		"INSERT INTO sqlite_sequence (name, seq) SELECT '%s', %d WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = '%s')",
		name, start-1, name)}
}

func (Dialect) IsAlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// TunePool pins in-memory databases to one connection; each connection to
// ":memory:" would otherwise see its own empty database.
func (Dialect) TunePool(db *sqlx.DB, cfg connector.ConnectionConfig) {
	if IsMemoryDSN(cfg.DSN) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
}

// IsMemoryDSN reports whether dsn names an in-memory database.
func IsMemoryDSN(dsn string) bool {
	return dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
