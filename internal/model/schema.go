package model

import "github.com/faucetdb/touchline/internal/entity"

// EntitySchema describes one entity for API and agent clients.
type EntitySchema struct {
	Name      string        `json:"name"`
	Table     string        `json:"table"`
	Key       string        `json:"key"`
	Generated bool          `json:"generated_key"`
	ReadOnly  bool          `json:"read_only"`
	Order     string        `json:"order,omitempty"`
	Filters   []string      `json:"filters,omitempty"`
	Search    []string      `json:"search,omitempty"`
	Fields    []FieldSchema `json:"fields"`
}

// FieldSchema describes a single whitelisted field.
type FieldSchema struct {
	Name     string `json:"name"`
	Column   string `json:"column"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// EntitySummary is the short form listed by GET /entities.
type EntitySummary struct {
	Name      string `json:"name"`
	Generated bool   `json:"generated_key"`
	ReadOnly  bool   `json:"read_only"`
	Fields    int    `json:"field_count"`
}

// DescribeEntity converts an entity definition to its public description.
func DescribeEntity(e *entity.Entity) EntitySchema {
	s := EntitySchema{
		Name:      e.Name,
		Table:     e.Table,
		Key:       e.Key,
		Generated: e.Generated(),
		ReadOnly:  e.ReadOnly,
		Filters:   e.Filters,
		Search:    e.Search,
	}
	for i, o := range e.ListOrder {
		if i > 0 {
			s.Order += ", "
		}
		s.Order += o.String()
	}
	for _, f := range e.Fields.Specs() {
		s.Fields = append(s.Fields, FieldSchema{
			Name:     f.Name,
			Column:   f.Column,
			Type:     f.Kind.String(),
			Required: f.Required,
		})
	}
	return s
}

// SummarizeEntity converts an entity definition to its list form.
func SummarizeEntity(e *entity.Entity) EntitySummary {
	return EntitySummary{
		Name:      e.Name,
		Generated: e.Generated(),
		ReadOnly:  e.ReadOnly,
		Fields:    e.Fields.Len(),
	}
}
