// Package oracle implements the Oracle dialect over go-ora. Keys come from
// SEQ.NEXTVAL and are returned through a RETURNING ... INTO OUT bind.
package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// ORA-00955: name is already used by an existing object.
const errNameInUse = 955

// Dialect implements connector.Dialect for Oracle.
type Dialect struct{}

// New returns the Oracle dialect.
func New() connector.Dialect { return Dialect{} }

func (Dialect) Name() string       { return "oracle" }
func (Dialect) DriverName() string { return "oracle" }
func (Dialect) BindType() int      { return sqlx.NAMED }

// QuoteIdentifier upper-cases and double-quotes name so it matches objects
// created with unquoted DDL.
func (Dialect) QuoteIdentifier(name string) string { return query.OracleQuote(name) }

func (Dialect) KeyStrategy() connector.KeyStrategy { return connector.KeyFromOutParam }

// PrepareInsert draws the key from SEQ.NEXTVAL and binds it back into
// :generated_key.
func (d Dialect) PrepareInsert(b *query.InsertBuilder, key, sequence string) error {
	if err := query.ValidateQualifiedIdentifier(sequence); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	b.Expr(key, query.QuoteQualified(sequence, query.OracleQuote)+".NEXTVAL")
	b.Suffix("RETURNING " + d.QuoteIdentifier(key) + " INTO " + query.Placeholder(connector.GeneratedKeyParam))
	return nil
}

func (Dialect) Paginate(limit, offset int) string { return query.BuildOffsetFetch(limit, offset) }
func (Dialect) LockSuffix() string                { return " FOR UPDATE" }

func (Dialect) ColumnType(kind fieldmap.Kind) string {
	switch kind {
	case fieldmap.KindInteger:
		return "NUMBER(10)"
	case fieldmap.KindDecimal:
		return "NUMBER(18,2)"
	case fieldmap.KindDate:
		return "DATE"
	default:
		return "VARCHAR2(4000)"
	}
}

func (d Dialect) KeyColumn(key string, _ bool) string {
	return d.QuoteIdentifier(key) + " NUMBER(19) PRIMARY KEY"
}

func (Dialect) CreateSequence(_, sequence string, start int64) []string {
	if start < 1 {
		start = 1
	}
	return []string{fmt.Sprintf("CREATE SEQUENCE %s START WITH %d INCREMENT BY 1 NOCACHE",
		query.QuoteQualified(sequence, query.OracleQuote), start)}
}

func (Dialect) IsAlreadyExists(err error) bool {
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return oraErr.ErrCode == errNameInUse
	}
	return err != nil && strings.Contains(err.Error(), "ORA-00955")
}
