package query

import (
	"fmt"
	"strings"
)

// Quoter quotes a single, already validated identifier for one SQL dialect.
type Quoter func(string) string

// OrderClause represents a single column ordering directive.
type OrderClause struct {
	Column    string // Validated column name.
	Direction string // "ASC" or "DESC".
}

// String returns the SQL fragment for this order clause, e.g. "match_date DESC".
func (o OrderClause) String() string {
	return o.Column + " " + o.Direction
}

// ParseOrderClause parses an order string like "match_date DESC, match_id"
// into validated OrderClause slices. Direction defaults to ASC.
func ParseOrderClause(order string) ([]OrderClause, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return nil, nil
	}

	parts := strings.Split(order, ",")
	clauses := make([]OrderClause, 0, len(parts))

	for _, part := range parts {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 2 {
			return nil, fmt.Errorf("invalid order clause %q: expected 'column [ASC|DESC]'", strings.TrimSpace(part))
		}

		col := tokens[0]
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid order column: %w", err)
		}

		dir := "ASC"
		if len(tokens) == 2 {
			switch d := strings.ToUpper(tokens[1]); d {
			case "ASC", "DESC":
				dir = d
			default:
				return nil, fmt.Errorf("invalid order direction %q: must be ASC or DESC", tokens[1])
			}
		}

		clauses = append(clauses, OrderClause{Column: col, Direction: dir})
	}

	if len(clauses) == 0 {
		return nil, nil
	}
	return clauses, nil
}

// BuildOrderSQL builds an ORDER BY fragment, applying quoteFn to column names.
func BuildOrderSQL(clauses []OrderClause, quoteFn Quoter) string {
	if len(clauses) == 0 {
		return ""
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = quoteFn(c.Column) + " " + c.Direction
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// ParseFieldSelection parses a comma-separated field list like
// "player_id,player_name" into validated names. Returns nil for empty input.
func ParseFieldSelection(fields string) ([]string, error) {
	fields = strings.TrimSpace(fields)
	if fields == "" {
		return nil, nil
	}

	parts := strings.Split(fields, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		col := strings.TrimSpace(part)
		if col == "" {
			continue
		}
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid field name: %w", err)
		}
		result = append(result, col)
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

// QuoteIdentifiers validates, quotes, and joins column names into a
// comma-separated fragment. An empty list yields "*".
func QuoteIdentifiers(names []string, quoteFn Quoter) (string, error) {
	if len(names) == 0 {
		return "*", nil
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return "", err
		}
		quoted[i] = quoteFn(name)
	}
	return strings.Join(quoted, ", "), nil
}

// PostgresQuote returns a double-quoted identifier.
func PostgresQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// OracleQuote returns a double-quoted, upper-cased identifier. Oracle folds
// unquoted names to upper case, so quoting the folded form matches tables
// created without quotes.
func OracleQuote(name string) string {
	return PostgresQuote(strings.ToUpper(name))
}

// MySQLQuote returns a backtick-quoted identifier.
func MySQLQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// SQLServerQuote returns a bracket-quoted identifier.
func SQLServerQuote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// BuildLimitOffset returns a LIMIT/OFFSET fragment for PostgreSQL, MySQL and
// SQLite. Returns an empty string if limit is 0.
func BuildLimitOffset(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	s := fmt.Sprintf("LIMIT %d", limit)
	if offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", offset)
	}
	return s
}

// BuildOffsetFetch returns the ANSI OFFSET/FETCH fragment used by Oracle and
// SQL Server. Both require the statement to carry an ORDER BY.
func BuildOffsetFetch(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}
