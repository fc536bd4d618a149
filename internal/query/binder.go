package query

import (
	"sort"
	"unicode"

	"github.com/jmoiron/sqlx"
)

// Params maps named placeholders (without the leading colon) to values.
// A nil value binds as SQL NULL. Output parameters are sql.Out values.
type Params map[string]any

// Set assigns name and returns p for chaining. A nil Params is allocated.
func (p Params) Set(name string, value any) Params {
	if p == nil {
		p = Params{}
	}
	p[name] = value
	return p
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order. Values are left out so
// callers can log statements without leaking secrets.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names returns the named placeholders referenced by sqlText in order of
// first appearance. It follows the same lexical rules as sqlx: a name starts
// after a single ':' and continues over letters, digits, '_' and '.'; "::"
// is an escaped colon and ":=" is an assignment operator.
func Names(sqlText string) []string {
	var (
		names []string
		seen  = map[string]bool{}
		runes = []rune(sqlText)
	)
	for i := 0; i < len(runes); i++ {
		if runes[i] != ':' {
			continue
		}
		if i+1 < len(runes) && (runes[i+1] == ':' || runes[i+1] == '=') {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && isNameRune(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		name := string(runes[i+1 : j])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i = j - 1
	}
	return names
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

// Bind converts a statement written with :name placeholders into the
// driver's placeholder style (sqlx.DOLLAR, sqlx.QUESTION, sqlx.AT or
// sqlx.NAMED) and returns the positional argument list. Every placeholder
// without a value in params binds as NULL so that positions never shift.
func Bind(bindType int, sqlText string, params Params) (string, []any, error) {
	full := make(map[string]interface{}, len(params))
	for _, name := range Names(sqlText) {
		v, ok := params[name]
		if !ok {
			v = nil
		}
		full[name] = v
	}
	return sqlx.BindNamed(bindType, sqlText, full)
}
