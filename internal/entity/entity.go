// Package entity describes the tables the service exposes: for each entity
// its table, primary key, key sequence and field whitelist. Definitions are
// built once at startup and shared read-only by every request.
package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// Entity is one exposed table.
type Entity struct {
	Name          string // route name, e.g. "teams"
	Table         string
	Key           string // primary-key column, always an integer
	Sequence      string // key generator; empty when clients supply the key
	SequenceStart int64
	Fields        *fieldmap.Whitelist
	ListOrder     []query.OrderClause
	Filters       []string // field names usable as equality filters on list
	Search        []string // field names matched by the list search term
	ReadOnly      bool
	Internal      bool // served by dedicated routes only
}

// Generated reports whether keys come from a server-side sequence.
func (e *Entity) Generated() bool { return e.Sequence != "" }

// InsertFields is the whitelist applied on create. Sequence-backed entities
// never accept a key from the client.
func (e *Entity) InsertFields() *fieldmap.Whitelist {
	if !e.Generated() {
		return e.Fields
	}
	return e.Fields.Without(e.keyFieldNames()...)
}

// UpdateFields is the whitelist applied on update; keys are immutable.
func (e *Entity) UpdateFields() *fieldmap.Whitelist {
	return e.Fields.Without(e.keyFieldNames()...)
}

// FilterSpecs returns the specs of the filterable fields. The key is always
// filterable.
func (e *Entity) FilterSpecs() []fieldmap.FieldSpec {
	out := []fieldmap.FieldSpec{e.KeySpec()}
	for _, name := range e.Filters {
		if l := e.Fields.Lookup(name); l.Recognized && !strings.EqualFold(l.Spec.Column, e.Key) {
			out = append(out, l.Spec)
		}
	}
	return out
}

// KeySpec describes the key as an integer field.
func (e *Entity) KeySpec() fieldmap.FieldSpec {
	return fieldmap.FieldSpec{Name: e.Key, Column: e.Key, Param: e.Key, Kind: fieldmap.KindInteger}
}

// SearchColumns returns the columns matched by a list search term.
func (e *Entity) SearchColumns() []string {
	cols := make([]string, 0, len(e.Search))
	for _, name := range e.Search {
		if l := e.Fields.Lookup(name); l.Recognized {
			cols = append(cols, l.Spec.Column)
		}
	}
	return cols
}

func (e *Entity) keyFieldNames() []string {
	var names []string
	for _, s := range e.Fields.Specs() {
		if strings.EqualFold(s.Column, e.Key) {
			names = append(names, s.Name)
		}
	}
	return names
}

// Validate checks identifiers and cross-references.
func (e *Entity) Validate() error {
	if err := query.ValidateIdentifier(e.Name); err != nil {
		return fmt.Errorf("entity name: %w", err)
	}
	if err := query.ValidateIdentifier(e.Table); err != nil {
		return fmt.Errorf("entity %s: table: %w", e.Name, err)
	}
	if err := query.ValidateIdentifier(e.Key); err != nil {
		return fmt.Errorf("entity %s: key: %w", e.Name, err)
	}
	if e.Sequence != "" {
		if err := query.ValidateQualifiedIdentifier(e.Sequence); err != nil {
			return fmt.Errorf("entity %s: sequence: %w", e.Name, err)
		}
	}
	if e.SequenceStart < 0 {
		return fmt.Errorf("entity %s: sequence start must not be negative", e.Name)
	}
	if e.Fields == nil || e.Fields.Len() == 0 {
		return fmt.Errorf("entity %s: no fields", e.Name)
	}
	if !e.Generated() && len(e.keyFieldNames()) == 0 && !e.ReadOnly {
		return fmt.Errorf("entity %s: client-keyed entity must list key %s as a field", e.Name, e.Key)
	}
	for _, name := range append(append([]string{}, e.Filters...), e.Search...) {
		if !e.Fields.Lookup(name).Recognized {
			return fmt.Errorf("entity %s: unknown field %q in filters or search", e.Name, name)
		}
	}
	order := make([]string, 0, len(e.ListOrder))
	for _, o := range e.ListOrder {
		order = append(order, o.Column)
	}
	if err := query.ValidateIdentifiers(order); err != nil {
		return fmt.Errorf("entity %s: order: %w", e.Name, err)
	}
	return nil
}

// Catalog is the immutable set of entities.
type Catalog struct {
	byName map[string]*Entity
	names  []string
}

// NewCatalog validates entities and indexes them by lower-cased name.
func NewCatalog(entities ...*Entity) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(e.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate entity %q", e.Name)
		}
		c.byName[key] = e
		c.names = append(c.names, key)
	}
	sort.Strings(c.names)
	return c, nil
}

// MustCatalog is NewCatalog for built-in definitions; it panics on error.
func MustCatalog(entities ...*Entity) *Catalog {
	c, err := NewCatalog(entities...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the entity called name, ignoring case.
func (c *Catalog) Get(name string) (*Entity, bool) {
	e, ok := c.byName[strings.ToLower(name)]
	return e, ok
}

// Names returns all entity names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// All returns every entity sorted by name.
func (c *Catalog) All() []*Entity {
	out := make([]*Entity, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[n])
	}
	return out
}

// Public returns the entities served by the generic routes.
func (c *Catalog) Public() []*Entity {
	var out []*Entity
	for _, e := range c.All() {
		if !e.Internal {
			out = append(out, e)
		}
	}
	return out
}
