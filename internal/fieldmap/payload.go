package fieldmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// Field is one top-level member of a client payload. Value holds the
// decoded JSON value with numbers kept as json.Number.
type Field struct {
	Name  string
	Value any
}

// Payload is a client object in encounter order.
type Payload []Field

// DecodePayload reads a single JSON object from r, preserving member order.
// An empty body decodes to an empty payload.
func DecodePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return Payload{}, nil
	}
	if err != nil {
		return nil, malformed(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &ValidationError{Reason: "request body must be a JSON object"}
	}

	var p Payload
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, malformed(fmt.Errorf("unexpected token %v", tok))
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, malformed(err)
		}
		p = append(p, Field{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Reason: "request body must contain a single JSON object"}
	}
	return p, nil
}

func malformed(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return &ValidationError{Reason: "malformed JSON body: " + err.Error()}
}

// PayloadFromMap builds a payload from an unordered map, ordering fields by
// name so mapping is deterministic.
func PayloadFromMap(m map[string]any) Payload {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	p := make(Payload, len(names))
	for i, n := range names {
		p[i] = Field{Name: n, Value: m[n]}
	}
	return p
}
