// Package connector owns database connections: the per-dialect SQL
// differences (placeholders, quoting, generated keys, paging, DDL) and the
// Provider that hands out one connection per operation.
package connector

import (
	"context"
	"database/sql"
	"net/url"
	"regexp"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// GeneratedKeyParam is the output parameter name used by dialects that
// return generated keys through an OUT bind.
const GeneratedKeyParam = "generated_key"

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Dialect         string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// KeyStrategy describes how a dialect hands back a generated key from a
// single INSERT execution.
type KeyStrategy int

const (
	// KeyFromRow: the INSERT yields a one-row result holding the key
	// (RETURNING or OUTPUT INSERTED).
	KeyFromRow KeyStrategy = iota
	// KeyFromOutParam: the key is written to the GeneratedKeyParam OUT bind
	// (RETURNING ... INTO).
	KeyFromOutParam
	// KeyFromLastInsertID: the driver reports the key via LastInsertId.
	KeyFromLastInsertID
)

// Dialect captures everything that differs between supported databases.
// Implementations are stateless and safe for concurrent use.
type Dialect interface {
	// Name is the configuration name (postgres, mysql, mssql, oracle, sqlite).
	Name() string
	// DriverName is the database/sql driver name.
	DriverName() string
	// BindType is the sqlx placeholder style.
	BindType() int
	QuoteIdentifier(name string) string

	// KeyStrategy reports how PrepareInsert statements return their key.
	KeyStrategy() KeyStrategy
	// PrepareInsert completes b so that one execution allocates the key
	// from sequence server-side and returns it. The key column must not
	// already be present in b.
	PrepareInsert(b *query.InsertBuilder, key, sequence string) error
	// Paginate renders a LIMIT/OFFSET fragment.
	Paginate(limit, offset int) string
	// LockSuffix is appended to a SELECT to lock the rows it reads inside
	// a transaction. Empty when the dialect has no suffix form.
	LockSuffix() string

	// ColumnType maps a field kind to a column type for DDL.
	ColumnType(kind fieldmap.Kind) string
	// KeyColumn renders the primary-key column definition.
	KeyColumn(key string, generated bool) string
	// CreateSequence returns the statements that create and seed the key
	// generator for table. They run after the table exists.
	CreateSequence(table, sequence string, start int64) []string
	// IsAlreadyExists reports whether err is a "object already exists"
	// failure from DDL.
	IsAlreadyExists(err error) bool
}

// PoolTuner is implemented by dialects that adjust the pool after opening,
// for example to pin an in-memory database to a single connection.
type PoolTuner interface {
	TunePool(db *sqlx.DB, cfg ConnectionConfig)
}

// Querier is the statement surface shared by *sqlx.Conn and *sqlx.Tx.
type Querier interface {
	QueryxContext(ctx context.Context, sqlText string, args ...interface{}) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, sqlText string, args ...interface{}) *sqlx.Row
	ExecContext(ctx context.Context, sqlText string, args ...interface{}) (sql.Result, error)
}

// SanitizeDSN ensures that URL-style DSNs (postgres://, sqlserver://,
// oracle://) have their userinfo (especially the password) properly
// percent-encoded. Raw passwords containing @, #, %, or other URL-special
// characters cause the Go URL parser to mis-split the authority component.
//
// MySQL DSNs are normalized to use the tcp() wrapper required by go-sql-driver.
// SQLite DSNs are file paths and are returned unchanged.
func SanitizeDSN(dialect, dsn string) string {
	switch dialect {
	case "postgres", "mssql", "oracle":
		return sanitizeURLDSN(dsn)
	case "mysql":
		return sanitizeMySQLDSN(dsn)
	default:
		return dsn
	}
}

// mysqlBareHostPort matches "user:pass@host:port/db" (no tcp() wrapper, no ()
// wrapper). We look for the last "@" followed by what looks like host:port/db.
var mysqlBareHostPort = regexp.MustCompile(`^(.+)@([^(@]+:\d+)(/.*)?$`)

// sanitizeMySQLDSN normalizes a MySQL DSN so that go-sql-driver/mysql can
// parse it correctly. The driver requires the format:
//
//	user:pass@tcp(host:port)/dbname
//
// Common mistakes from users:
//
//	user:pass@host:port/db          → missing tcp() wrapper
//	user:pass@(host:port)/db        → missing "tcp" before parens
//	user:pass@tcp(host:port)/db     → already correct
//
// When the password contains "@", the driver's ParseDSN splits on the last
// "@" before "/"; this works ONLY when "tcp(" is present, otherwise the
// parser treats the password fragment as a network name.
func sanitizeMySQLDSN(dsn string) string {
	// If it already parses cleanly and has a known network, trust it.
	if cfg, err := mysqldriver.ParseDSN(dsn); err == nil && (cfg.Net == "tcp" || cfg.Net == "unix") {
		return cfg.FormatDSN()
	}

	// Try to fix common patterns.

	// Pattern: user:pass@(host:port)/db, missing "tcp" keyword.
	// Find the last "@" followed immediately by "(" but NOT preceded by
	// a network name like "tcp" or "unix".
	if idx := strings.LastIndex(dsn, "@("); idx >= 0 {
		// Insert "tcp" between "@" and "("
		fixed := dsn[:idx] + "@tcp" + dsn[idx+1:]
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// Pattern: user:pass@host:port/db, no parens at all.
	if m := mysqlBareHostPort.FindStringSubmatch(dsn); m != nil {
		userpass := m[1] // everything before the last @host:port
		hostport := m[2]
		dbpart := m[3] // /dbname or empty
		fixed := userpass + "@tcp(" + hostport + ")" + dbpart
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// Nothing worked; return as-is and let the connect call give a clear error.
	return dsn
}

// sanitizeURLDSN parses a DSN that begins with a scheme (e.g.
// postgres://user:p@ss#word@host/db) and re-encodes the password so the
// URL library can parse it unambiguously.
func sanitizeURLDSN(dsn string) string {
	// Find the scheme separator.
	schemeEnd := strings.Index(dsn, "://")
	if schemeEnd < 0 {
		return dsn // not a URL-style DSN, return as-is
	}

	scheme := dsn[:schemeEnd]
	rest := dsn[schemeEnd+3:] // everything after "://"

	// Split off query/fragment from the authority+path portion.
	rawQuery := ""
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		rawQuery = rest[qi:]
		rest = rest[:qi]
	}

	// Find the LAST '@': everything before it is userinfo, everything after is host+path.
	atIdx := strings.LastIndex(rest, "@")
	if atIdx < 0 {
		return dsn // no credentials in the DSN
	}

	userinfo := rest[:atIdx]
	hostpath := rest[atIdx+1:]

	// Split userinfo into user and password at the FIRST ':'.
	user := userinfo
	pass := ""
	if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
		user = userinfo[:ci]
		pass = userinfo[ci+1:]
	}

	// Re-encode. url.PathEscape is too aggressive; url.QueryEscape encodes
	// spaces as '+' which isn't great for passwords. Use a manual approach:
	// percent-encode only the characters that break URL parsing.
	encodedUser := url.PathEscape(user)
	encodedPass := url.PathEscape(pass)

	return scheme + "://" + encodedUser + ":" + encodedPass + "@" + hostpath + rawQuery
}
