package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/faucetdb/touchline/internal/connector"
)

// Statements returns the DDL that creates e's table and key generator in
// dialect d. Tables come first since MySQL and SQLite seed their counters on
// the table itself.
func Statements(d connector.Dialect, e *Entity) []string {
	q := d.QuoteIdentifier
	cols := []string{d.KeyColumn(e.Key, e.Generated())}
	for _, s := range e.Fields.Specs() {
		if strings.EqualFold(s.Column, e.Key) {
			continue
		}
		def := q(s.Column) + " " + d.ColumnType(s.Kind)
		if s.Required {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", q(e.Table), strings.Join(cols, ",\n  "))}
	if e.Generated() {
		start := e.SequenceStart
		if start == 0 {
			start = 1
		}
		stmts = append(stmts, d.CreateSequence(e.Table, e.Sequence, start)...)
	}
	return stmts
}

// Migrate creates every table and sequence in the catalog. Objects that
// already exist are left untouched, so running it again is a no-op.
func Migrate(ctx context.Context, p *connector.Provider, c *Catalog, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := p.Dialect()
	for _, e := range c.All() {
		if e.ReadOnly {
			continue
		}
		for _, stmt := range Statements(d, e) {
			if _, err := p.DB().ExecContext(ctx, stmt); err != nil {
				if d.IsAlreadyExists(err) {
					logger.Debug("migration object exists", "entity", e.Name, "statement", firstLine(stmt))
					continue
				}
				return fmt.Errorf("migrate %s: %w", e.Name, err)
			}
			logger.Info("migration applied", "entity", e.Name, "statement", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
