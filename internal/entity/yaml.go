package entity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// CatalogYAML is the on-disk form of a catalog.
type CatalogYAML struct {
	Entities []EntityYAML `yaml:"entities"`
}

// EntityYAML defines one entity in a catalog file.
type EntityYAML struct {
	Name          string      `yaml:"name"`
	Table         string      `yaml:"table"`
	Key           string      `yaml:"key"`
	Sequence      string      `yaml:"sequence,omitempty"`
	SequenceStart int64       `yaml:"sequence_start,omitempty"`
	Order         string      `yaml:"order,omitempty"`
	Filters       []string    `yaml:"filters,omitempty"`
	Search        []string    `yaml:"search,omitempty"`
	ReadOnly      bool        `yaml:"read_only,omitempty"`
	Internal      bool        `yaml:"internal,omitempty"`
	Fields        []FieldYAML `yaml:"fields"`
}

// FieldYAML defines one whitelisted field.
type FieldYAML struct {
	Name     string        `yaml:"name"`
	Column   string        `yaml:"column,omitempty"`
	Param    string        `yaml:"param,omitempty"`
	Kind     fieldmap.Kind `yaml:"kind"`
	Required bool          `yaml:"required,omitempty"`
}

// LoadCatalog reads a catalog file. Environment variables referenced as
// ${VAR_NAME} are expanded before parsing.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog([]byte(os.ExpandEnv(string(data))))
}

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc CatalogYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("catalog defines no entities")
	}

	entities := make([]*Entity, 0, len(doc.Entities))
	for _, ey := range doc.Entities {
		e, err := ey.build()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return NewCatalog(entities...)
}

func (ey EntityYAML) build() (*Entity, error) {
	specs := make([]fieldmap.FieldSpec, len(ey.Fields))
	for i, f := range ey.Fields {
		specs[i] = fieldmap.FieldSpec{
			Name:     f.Name,
			Column:   f.Column,
			Param:    f.Param,
			Kind:     f.Kind,
			Required: f.Required,
		}
	}
	fields, err := fieldmap.NewWhitelist(specs...)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", ey.Name, err)
	}
	order, err := query.ParseOrderClause(ey.Order)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", ey.Name, err)
	}

	table := ey.Table
	if table == "" {
		table = ey.Name
	}
	return &Entity{
		Name:          ey.Name,
		Table:         table,
		Key:           ey.Key,
		Sequence:      ey.Sequence,
		SequenceStart: ey.SequenceStart,
		Fields:        fields,
		ListOrder:     order,
		Filters:       ey.Filters,
		Search:        ey.Search,
		ReadOnly:      ey.ReadOnly,
		Internal:      ey.Internal,
	}, nil
}

// MarshalCatalog renders c in the catalog file format.
func MarshalCatalog(c *Catalog) ([]byte, error) {
	var doc CatalogYAML
	for _, e := range c.All() {
		ey := EntityYAML{
			Name:          e.Name,
			Table:         e.Table,
			Key:           e.Key,
			Sequence:      e.Sequence,
			SequenceStart: e.SequenceStart,
			Filters:       e.Filters,
			Search:        e.Search,
			ReadOnly:      e.ReadOnly,
			Internal:      e.Internal,
		}
		for i, o := range e.ListOrder {
			if i > 0 {
				ey.Order += ", "
			}
			ey.Order += o.String()
		}
		for _, s := range e.Fields.Specs() {
			ey.Fields = append(ey.Fields, FieldYAML{
				Name: s.Name, Column: s.Column, Param: s.Param, Kind: s.Kind, Required: s.Required,
			})
		}
		doc.Entities = append(doc.Entities, ey)
	}
	return yaml.Marshal(doc)
}
