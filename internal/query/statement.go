package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAssignments is returned when an UPDATE has nothing to set.
	ErrNoAssignments = errors.New("statement has no assignments")
	// ErrNoColumns is returned when an INSERT has no columns.
	ErrNoColumns = errors.New("insert has no columns")
	// ErrUnboundedMutation is returned for an UPDATE or DELETE without a
	// WHERE condition.
	ErrUnboundedMutation = errors.New("mutation has no WHERE condition")
)

// Placeholder returns the named placeholder for param, e.g. ":team_name".
func Placeholder(param string) string {
	return ":" + param
}

func validateParam(param string) error {
	if !identifierRegex.MatchString(param) {
		return fmt.Errorf("invalid parameter name %q", param)
	}
	return nil
}

// conditions accumulates AND-joined predicates shared by SELECT, UPDATE,
// DELETE and COUNT statements.
type conditions struct {
	preds []string
	err   error
}

func (c *conditions) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *conditions) eq(quote Quoter, column, param string) {
	if err := ValidateIdentifier(column); err != nil {
		c.fail(err)
		return
	}
	if err := validateParam(param); err != nil {
		c.fail(err)
		return
	}
	c.preds = append(c.preds, quote(column)+" = "+Placeholder(param))
}

func (c *conditions) in(quote Quoter, column string, params []string) {
	if err := ValidateIdentifier(column); err != nil {
		c.fail(err)
		return
	}
	if len(params) == 0 {
		c.fail(fmt.Errorf("IN condition on %q has no values", column))
		return
	}
	ph := make([]string, len(params))
	for i, p := range params {
		if err := validateParam(p); err != nil {
			c.fail(err)
			return
		}
		ph[i] = Placeholder(p)
	}
	c.preds = append(c.preds, quote(column)+" IN ("+strings.Join(ph, ", ")+")")
}

func (c *conditions) like(quote Quoter, columns []string, param string) {
	if len(columns) == 0 {
		return
	}
	if err := validateParam(param); err != nil {
		c.fail(err)
		return
	}
	alts := make([]string, len(columns))
	for i, col := range columns {
		if err := ValidateIdentifier(col); err != nil {
			c.fail(err)
			return
		}
		alts[i] = quote(col) + " LIKE " + Placeholder(param)
	}
	if len(alts) == 1 {
		c.preds = append(c.preds, alts[0])
		return
	}
	c.preds = append(c.preds, "("+strings.Join(alts, " OR ")+")")
}

func (c *conditions) write(b *strings.Builder) {
	if len(c.preds) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(c.preds, " AND "))
}

// InsertBuilder accumulates (column, value) pairs for one INSERT statement.
type InsertBuilder struct {
	quote   Quoter
	table   string
	columns []string
	values  []string
	output  string
	suffix  string
	err     error
}

// NewInsert starts an INSERT into table.
func NewInsert(quote Quoter, table string) *InsertBuilder {
	b := &InsertBuilder{quote: quote, table: table}
	if err := ValidateIdentifier(table); err != nil {
		b.err = err
	}
	return b
}

// Value adds column bound to the named parameter param.
func (b *InsertBuilder) Value(column, param string) *InsertBuilder {
	if err := validateParam(param); err != nil && b.err == nil {
		b.err = err
	}
	return b.add(column, Placeholder(param))
}

// Expr adds column set to a dialect-generated SQL expression such as a
// sequence's next value. expr is never derived from client input.
func (b *InsertBuilder) Expr(column, expr string) *InsertBuilder {
	return b.add(column, expr)
}

func (b *InsertBuilder) add(column, value string) *InsertBuilder {
	if err := ValidateIdentifier(column); err != nil && b.err == nil {
		b.err = err
	}
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Output sets a clause emitted between the column list and VALUES
// (SQL Server's OUTPUT INSERTED.x).
func (b *InsertBuilder) Output(clause string) *InsertBuilder {
	b.output = clause
	return b
}

// Suffix sets a clause appended after VALUES (RETURNING ...).
func (b *InsertBuilder) Suffix(clause string) *InsertBuilder {
	b.suffix = clause
	return b
}

// Columns returns the columns added so far in insertion order.
func (b *InsertBuilder) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// Table returns the target table name.
func (b *InsertBuilder) Table() string { return b.table }

// Quote returns the builder's identifier quoter.
func (b *InsertBuilder) Quote() Quoter { return b.quote }

// SQL renders the statement.
func (b *InsertBuilder) SQL() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if len(b.columns) == 0 {
		return "", ErrNoColumns
	}

	quoted := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = b.quote(c)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.quote(b.table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(")")
	if b.output != "" {
		sb.WriteString(" ")
		sb.WriteString(b.output)
	}
	sb.WriteString(" VALUES (")
	sb.WriteString(strings.Join(b.values, ", "))
	sb.WriteString(")")
	if b.suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(b.suffix)
	}
	return sb.String(), nil
}

// UpdateBuilder accumulates assignments and conditions for one UPDATE.
type UpdateBuilder struct {
	quote Quoter
	table string
	sets  []string
	where conditions
}

// NewUpdate starts an UPDATE of table.
func NewUpdate(quote Quoter, table string) *UpdateBuilder {
	b := &UpdateBuilder{quote: quote, table: table}
	if err := ValidateIdentifier(table); err != nil {
		b.where.fail(err)
	}
	return b
}

// Set adds the assignment column = :param.
func (b *UpdateBuilder) Set(column, param string) *UpdateBuilder {
	if err := ValidateIdentifier(column); err != nil {
		b.where.fail(err)
		return b
	}
	if err := validateParam(param); err != nil {
		b.where.fail(err)
		return b
	}
	b.sets = append(b.sets, b.quote(column)+" = "+Placeholder(param))
	return b
}

// Where adds the condition column = :param.
func (b *UpdateBuilder) Where(column, param string) *UpdateBuilder {
	b.where.eq(b.quote, column, param)
	return b
}

// SQL renders the statement.
func (b *UpdateBuilder) SQL() (string, error) {
	if b.where.err != nil {
		return "", b.where.err
	}
	if len(b.sets) == 0 {
		return "", ErrNoAssignments
	}
	if len(b.where.preds) == 0 {
		return "", ErrUnboundedMutation
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.quote(b.table))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(b.sets, ", "))
	b.where.write(&sb)
	return sb.String(), nil
}

// DeleteBuilder accumulates conditions for one DELETE.
type DeleteBuilder struct {
	quote Quoter
	table string
	where conditions
}

// NewDelete starts a DELETE from table.
func NewDelete(quote Quoter, table string) *DeleteBuilder {
	b := &DeleteBuilder{quote: quote, table: table}
	if err := ValidateIdentifier(table); err != nil {
		b.where.fail(err)
	}
	return b
}

// Where adds the condition column = :param.
func (b *DeleteBuilder) Where(column, param string) *DeleteBuilder {
	b.where.eq(b.quote, column, param)
	return b
}

// WhereIn adds the condition column IN (:p1, :p2, ...).
func (b *DeleteBuilder) WhereIn(column string, params []string) *DeleteBuilder {
	b.where.in(b.quote, column, params)
	return b
}

// SQL renders the statement.
func (b *DeleteBuilder) SQL() (string, error) {
	if b.where.err != nil {
		return "", b.where.err
	}
	if len(b.where.preds) == 0 {
		return "", ErrUnboundedMutation
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.quote(b.table))
	b.where.write(&sb)
	return sb.String(), nil
}

// Pager renders a dialect's pagination fragment.
type Pager func(limit, offset int) string

// SelectBuilder accumulates a projection, conditions, ordering and paging.
type SelectBuilder struct {
	quote   Quoter
	table   string
	columns []string
	where   conditions
	order   []OrderClause
	limit   int
	offset  int
	pager   Pager
	lock    string
}

// NewSelect starts a SELECT from table.
func NewSelect(quote Quoter, table string) *SelectBuilder {
	b := &SelectBuilder{quote: quote, table: table}
	if err := ValidateIdentifier(table); err != nil {
		b.where.fail(err)
	}
	return b
}

// Columns sets the projection. No columns selects "*".
func (b *SelectBuilder) Columns(columns ...string) *SelectBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds the condition column = :param.
func (b *SelectBuilder) Where(column, param string) *SelectBuilder {
	b.where.eq(b.quote, column, param)
	return b
}

// WhereIn adds the condition column IN (:p1, :p2, ...).
func (b *SelectBuilder) WhereIn(column string, params []string) *SelectBuilder {
	b.where.in(b.quote, column, params)
	return b
}

// Search adds (c1 LIKE :param OR c2 LIKE :param ...).
func (b *SelectBuilder) Search(columns []string, param string) *SelectBuilder {
	b.where.like(b.quote, columns, param)
	return b
}

// OrderBy appends ordering clauses.
func (b *SelectBuilder) OrderBy(clauses ...OrderClause) *SelectBuilder {
	b.order = append(b.order, clauses...)
	return b
}

// Page limits the result window using the dialect's pager.
func (b *SelectBuilder) Page(limit, offset int, pager Pager) *SelectBuilder {
	b.limit, b.offset, b.pager = limit, offset, pager
	return b
}

// Lock appends a row-locking suffix such as " FOR UPDATE".
func (b *SelectBuilder) Lock(suffix string) *SelectBuilder {
	b.lock = suffix
	return b
}

// SQL renders the statement.
func (b *SelectBuilder) SQL() (string, error) {
	if b.where.err != nil {
		return "", b.where.err
	}
	projection, err := QuoteIdentifiers(b.columns, b.quote)
	if err != nil {
		return "", err
	}
	for _, o := range b.order {
		if err := ValidateIdentifier(o.Column); err != nil {
			return "", fmt.Errorf("invalid order column: %w", err)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projection)
	sb.WriteString(" FROM ")
	sb.WriteString(b.quote(b.table))
	b.where.write(&sb)
	if order := BuildOrderSQL(b.order, b.quote); order != "" {
		sb.WriteString(" ")
		sb.WriteString(order)
	}
	if b.pager != nil {
		if page := b.pager(b.limit, b.offset); page != "" {
			sb.WriteString(" ")
			sb.WriteString(page)
		}
	}
	sb.WriteString(b.lock)
	return sb.String(), nil
}

// CountSQL renders SELECT COUNT(*) over the same conditions, ignoring
// projection, ordering and paging.
func (b *SelectBuilder) CountSQL() (string, error) {
	if b.where.err != nil {
		return "", b.where.err
	}
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(b.quote(b.table))
	b.where.write(&sb)
	return sb.String(), nil
}
