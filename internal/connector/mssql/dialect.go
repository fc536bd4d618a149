// Package mssql implements the SQL Server dialect over go-mssqldb.
package mssql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// There is already an object named '%.*ls' in the database.
const errObjectExists = 2714

// Dialect implements connector.Dialect for SQL Server.
type Dialect struct{}

// New returns the SQL Server dialect.
func New() connector.Dialect { return Dialect{} }

func (Dialect) Name() string       { return "mssql" }
func (Dialect) DriverName() string { return "sqlserver" }
func (Dialect) BindType() int      { return sqlx.AT }

// QuoteIdentifier wraps a SQL identifier in square brackets, escaping any
// embedded closing brackets.
func (Dialect) QuoteIdentifier(name string) string { return query.SQLServerQuote(name) }

func (Dialect) KeyStrategy() connector.KeyStrategy { return connector.KeyFromRow }

// PrepareInsert draws the key from NEXT VALUE FOR and emits it with
// OUTPUT INSERTED, which SQL Server places before VALUES.
func (d Dialect) PrepareInsert(b *query.InsertBuilder, key, sequence string) error {
	if err := query.ValidateQualifiedIdentifier(sequence); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	b.Expr(key, "NEXT VALUE FOR "+query.QuoteQualified(sequence, query.SQLServerQuote))
	b.Output("OUTPUT INSERTED." + d.QuoteIdentifier(key))
	return nil
}

func (Dialect) Paginate(limit, offset int) string { return query.BuildOffsetFetch(limit, offset) }

// LockSuffix is empty: SQL Server locks through table hints, not a suffix.
func (Dialect) LockSuffix() string { return "" }

func (Dialect) ColumnType(kind fieldmap.Kind) string {
	switch kind {
	case fieldmap.KindInteger:
		return "INT"
	case fieldmap.KindDecimal:
		return "DECIMAL(18,2)"
	case fieldmap.KindDate:
		return "DATETIME2"
	default:
		return "NVARCHAR(4000)"
	}
}

func (d Dialect) KeyColumn(key string, _ bool) string {
	return d.QuoteIdentifier(key) + " BIGINT PRIMARY KEY"
}

func (Dialect) CreateSequence(_, sequence string, start int64) []string {
	if start < 1 {
		start = 1
	}
	return []string{fmt.Sprintf("CREATE SEQUENCE %s AS BIGINT START WITH %d INCREMENT BY 1",
		query.QuoteQualified(sequence, query.SQLServerQuote), start)}
}

func (Dialect) IsAlreadyExists(err error) bool {
	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		return msErr.Number == errObjectExists
	}
	return err != nil && strings.Contains(err.Error(), "There is already an object named")
}
