package fieldmap

import (
	"strings"

	"github.com/faucetdb/touchline/internal/query"
)

// Binding pairs a recognized field with its coerced value. A nil Value
// binds as SQL NULL.
type Binding struct {
	Spec  FieldSpec
	Value any
}

// Mapping is the ordered result of mapping a payload. Bindings keep the
// position at which each field was first encountered.
type Mapping struct {
	bindings []Binding
}

// Map validates payload against w and returns the recognized fields as
// typed bindings. Unrecognized fields are dropped. A field appearing more
// than once keeps its first position and its last value. Any malformed
// value fails the whole mapping before a statement is built.
func Map(payload Payload, w *Whitelist) (Mapping, error) {
	var m Mapping
	index := make(map[string]int, len(payload))

	for _, f := range payload {
		l := w.Lookup(f.Name)
		if !l.Recognized {
			continue
		}
		v, err := coerce(l.Spec, f.Value)
		if err != nil {
			return Mapping{}, err
		}
		if i, ok := index[l.Spec.Param]; ok {
			m.bindings[i].Value = v
			continue
		}
		index[l.Spec.Param] = len(m.bindings)
		m.bindings = append(m.bindings, Binding{Spec: l.Spec, Value: v})
	}

	if len(m.bindings) == 0 {
		return Mapping{}, ErrNoFields
	}
	return m, nil
}

// Len returns the number of bindings.
func (m Mapping) Len() int { return len(m.bindings) }

// Bindings returns a copy of the bindings in encounter order.
func (m Mapping) Bindings() []Binding {
	out := make([]Binding, len(m.bindings))
	copy(out, m.bindings)
	return out
}

// Params returns the bindings as statement parameters.
func (m Mapping) Params() query.Params {
	p := make(query.Params, len(m.bindings))
	for _, b := range m.bindings {
		p[b.Spec.Param] = b.Value
	}
	return p
}

// Value returns the value bound for field name, matched ignoring case.
func (m Mapping) Value(name string) (any, bool) {
	for _, b := range m.bindings {
		if strings.EqualFold(b.Spec.Name, name) {
			return b.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of m with the named fields removed.
func (m Mapping) Without(names ...string) Mapping {
	out := Mapping{bindings: make([]Binding, 0, len(m.bindings))}
outer:
	for _, b := range m.bindings {
		for _, n := range names {
			if strings.EqualFold(b.Spec.Name, n) {
				continue outer
			}
		}
		out.bindings = append(out.bindings, b)
	}
	return out
}

// Missing returns a *ValidationError naming the first required field of w
// that is absent from m or bound to null, or nil if all are present.
func (m Mapping) Missing(w *Whitelist) error {
	for _, s := range w.specs {
		if !s.Required {
			continue
		}
		if v, ok := m.Value(s.Name); !ok || v == nil {
			return &ValidationError{Field: s.Name, Reason: "is required"}
		}
	}
	return nil
}

// NullRequired returns a *ValidationError for the first required field
// that m binds to null. Updates use it since they may omit required fields.
func (m Mapping) NullRequired() error {
	for _, b := range m.bindings {
		if b.Spec.Required && b.Value == nil {
			return &ValidationError{Field: b.Spec.Name, Reason: "must not be null"}
		}
	}
	return nil
}
