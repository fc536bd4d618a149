// Package fieldmap translates loosely typed client payloads into typed,
// named statement parameters using a per-entity whitelist of recognized
// fields. Unrecognized fields are dropped; malformed values are rejected.
package fieldmap

import (
	"fmt"
	"strings"

	"github.com/faucetdb/touchline/internal/query"
)

// Kind is the scalar type a field is coerced to.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindDecimal
	KindString
	KindDate
)

var kindNames = map[Kind]string{
	KindInteger: "integer",
	KindDecimal: "decimal",
	KindString:  "string",
	KindDate:    "date",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name as written in catalog files. "int" and
// "number" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return KindInteger, nil
	case "decimal", "number":
		return KindDecimal, nil
	case "string", "text":
		return KindString, nil
	case "date", "datetime", "timestamp":
		return KindDate, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// FieldSpec describes one recognized input field of an entity.
type FieldSpec struct {
	Name     string // client-facing field name, matched case-insensitively
	Column   string // SQL column; defaults to Name
	Param    string // bound parameter name; defaults to Column
	Kind     Kind
	Required bool // required on insert
}

// Whitelist is an immutable set of FieldSpecs for one entity.
type Whitelist struct {
	specs  []FieldSpec
	byName map[string]int
}

// NewWhitelist validates specs and fills in default Column and Param names.
// Field names must be unique ignoring case.
func NewWhitelist(specs ...FieldSpec) (*Whitelist, error) {
	w := &Whitelist{
		specs:  make([]FieldSpec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	params := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Column == "" {
			s.Column = s.Name
		}
		if s.Param == "" {
			s.Param = s.Column
		}
		if _, ok := kindNames[s.Kind]; !ok {
			return nil, fmt.Errorf("field %q: invalid kind %v", s.Name, s.Kind)
		}
		if err := query.ValidateIdentifier(s.Column); err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Name, err)
		}
		if err := query.ValidateIdentifier(s.Param); err != nil {
			return nil, fmt.Errorf("field %q: parameter: %w", s.Name, err)
		}
		key := strings.ToLower(s.Name)
		if key == "" {
			return nil, fmt.Errorf("field name cannot be empty")
		}
		if _, dup := w.byName[key]; dup {
			return nil, fmt.Errorf("duplicate field %q", s.Name)
		}
		if params[s.Param] {
			return nil, fmt.Errorf("duplicate parameter %q", s.Param)
		}
		params[s.Param] = true
		w.byName[key] = len(w.specs)
		w.specs = append(w.specs, s)
	}
	return w, nil
}

// MustWhitelist is NewWhitelist for static tables; it panics on error.
func MustWhitelist(specs ...FieldSpec) *Whitelist {
	w, err := NewWhitelist(specs...)
	if err != nil {
		panic(err)
	}
	return w
}

// Lookup is the tagged result of a whitelist lookup.
type Lookup struct {
	Spec       FieldSpec
	Recognized bool
}

// Lookup matches name against the whitelist ignoring case.
func (w *Whitelist) Lookup(name string) Lookup {
	i, ok := w.byName[strings.ToLower(name)]
	if !ok {
		return Lookup{}
	}
	return Lookup{Spec: w.specs[i], Recognized: true}
}

// Specs returns a copy of the field specs in declaration order.
func (w *Whitelist) Specs() []FieldSpec {
	out := make([]FieldSpec, len(w.specs))
	copy(out, w.specs)
	return out
}

// Columns returns the SQL columns in declaration order.
func (w *Whitelist) Columns() []string {
	out := make([]string, len(w.specs))
	for i, s := range w.specs {
		out[i] = s.Column
	}
	return out
}

// Without returns a new whitelist omitting the named fields.
func (w *Whitelist) Without(names ...string) *Whitelist {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[strings.ToLower(n)] = true
	}
	kept := make([]FieldSpec, 0, len(w.specs))
	for _, s := range w.specs {
		if !drop[strings.ToLower(s.Name)] {
			kept = append(kept, s)
		}
	}
	// Specs were already validated, so this cannot fail.
	return MustWhitelist(kept...)
}

// Len returns the number of recognized fields.
func (w *Whitelist) Len() int { return len(w.specs) }
