package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Provider hands out one dedicated connection per database operation.
// Pooling below that is left to database/sql and the driver.
type Provider struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewProvider wraps an open handle. Tests use it with sqlmock handles.
func NewProvider(db *sqlx.DB, d Dialect) *Provider {
	return &Provider{db: db, dialect: d}
}

// Acquire returns a connection reserved for the caller until Close.
func (p *Provider) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// BeginTx starts a transaction on a dedicated connection.
func (p *Provider) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := p.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// Dialect returns the provider's dialect.
func (p *Provider) Dialect() Dialect { return p.dialect }

// Ping verifies the database is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// DB returns the underlying handle.
func (p *Provider) DB() *sqlx.DB { return p.db }

// Close closes the underlying handle.
func (p *Provider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
