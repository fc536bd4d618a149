// Package query builds parameterized SQL statements from (column, parameter)
// pairs and binds named parameters to driver placeholders. Identifiers are
// validated before they are quoted into a statement; values never are.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex validates SQL identifiers (column, table, sequence names).
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen is the longest identifier accepted by every supported
// dialect (Oracle 12.2+ and SQL Server both allow 128).
const maxIdentifierLen = 128

// sqlReservedWords contains SQL keywords that cannot be used as identifiers.
var sqlReservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "DATABASE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"PROCEDURE": true, "FUNCTION": true, "TRIGGER": true, "SCHEMA": true,
	"SEQUENCE": true, "MERGE": true, "RETURNING": true, "VALUES": true,
}

// ValidateIdentifier ensures a SQL identifier is safe to quote into a
// statement. It rejects empty strings, names longer than 128 characters,
// names outside [a-zA-Z_][a-zA-Z0-9_]* and SQL reserved words.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier too long (max %d chars): %q", maxIdentifierLen, name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	if sqlReservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier %q is a SQL reserved word", name)
	}
	return nil
}

// ValidateIdentifiers validates multiple identifiers, returning the first error found.
func ValidateIdentifiers(names []string) error {
	for _, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQualifiedIdentifier accepts "name" or "owner.name", validating
// each part. Sequences on Oracle are commonly owner-qualified.
func ValidateQualifiedIdentifier(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("invalid qualified identifier %q: at most one '.' allowed", name)
	}
	for _, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return err
		}
	}
	return nil
}

// QuoteQualified quotes each dot-separated part of name with quoteFn.
func QuoteQualified(name string, quoteFn Quoter) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteFn(p)
	}
	return strings.Join(parts, ".")
}

// SanitizeStringValue removes null bytes and validates string length.
// A maxLen of zero or less means 65535.
func SanitizeStringValue(val string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = 65535
	}
	val = strings.ReplaceAll(val, "\x00", "")
	if len(val) > maxLen {
		return "", fmt.Errorf("string value too long (max %d chars)", maxLen)
	}
	return val, nil
}
