package database

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is one result row: column names exactly as reported by the driver
// and their values in select order. A nil value is SQL NULL. Records are
// built once per row and not modified afterwards.
type Record struct {
	columns []string
	values  []any
}

// NewRecord builds a record from parallel column and value slices.
func NewRecord(columns []string, values []any) Record {
	c := make([]string, len(columns))
	copy(c, columns)
	v := make([]any, len(values))
	copy(v, values)
	return Record{columns: c, values: v}
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.columns) }

// Columns returns the column names in order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the values in column order.
func (r Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value of column name. An exact match wins; otherwise the
// first case-insensitive match is used, since Oracle reports upper case.
func (r Record) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	for i, c := range r.columns {
		if strings.EqualFold(c, name) {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// cleanValue converts driver byte slices to strings so records encode as
// text rather than base64.
func cleanValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
