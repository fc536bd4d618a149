// Package mysql implements the MySQL dialect over go-sql-driver/mysql.
package mysql

import (
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// ER_TABLE_EXISTS_ERROR
const errTableExists = 1050

// Dialect implements connector.Dialect for MySQL.
type Dialect struct{}

// New returns the MySQL dialect.
func New() connector.Dialect { return Dialect{} }

func (Dialect) Name() string       { return "mysql" }
func (Dialect) DriverName() string { return "mysql" }
func (Dialect) BindType() int      { return sqlx.QUESTION }

// QuoteIdentifier wraps a SQL identifier in backticks.
func (Dialect) QuoteIdentifier(name string) string { return query.MySQLQuote(name) }

func (Dialect) KeyStrategy() connector.KeyStrategy { return connector.KeyFromLastInsertID }

// PrepareInsert leaves the key to AUTO_INCREMENT; the driver reports it
// through LastInsertId on the same execution.
func (Dialect) PrepareInsert(_ *query.InsertBuilder, key, _ string) error {
	return query.ValidateIdentifier(key)
}

func (Dialect) Paginate(limit, offset int) string { return query.BuildLimitOffset(limit, offset) }
func (Dialect) LockSuffix() string                { return " FOR UPDATE" }

func (Dialect) ColumnType(kind fieldmap.Kind) string {
	switch kind {
	case fieldmap.KindInteger:
		return "INT"
	case fieldmap.KindDecimal:
		return "DECIMAL(18,2)"
	case fieldmap.KindDate:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (d Dialect) KeyColumn(key string, generated bool) string {
	if generated {
		return d.QuoteIdentifier(key) + " BIGINT AUTO_INCREMENT PRIMARY KEY"
	}
	return d.QuoteIdentifier(key) + " BIGINT PRIMARY KEY"
}

// CreateSequence moves the AUTO_INCREMENT counter to start. MySQL ignores
// a value below the current maximum, so re-running is harmless.
func (d Dialect) CreateSequence(table, _ string, start int64) []string {
	if start <= 1 {
		return nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", d.QuoteIdentifier(table), start)}
}

func (Dialect) IsAlreadyExists(err error) bool {
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errTableExists
}
