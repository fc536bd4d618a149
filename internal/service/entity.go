package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// MaxListLimit caps the page size of a list.
const MaxListLimit = 1000

const (
	searchParam  = "q_search"
	filterPrefix = "f_"
)

// ListOptions narrows and pages a list.
type ListOptions struct {
	Fields       []string          // projection by field name; empty selects all columns
	Filters      map[string]string // field name to literal, matched by equality
	Search       string            // LIKE match over the entity's search fields
	Order        string            // "field [ASC|DESC], ..." replacing the default order
	Limit        int
	Offset       int
	IncludeTotal bool
}

// ListResult is one page of records.
type ListResult struct {
	Records []database.Record
	Total   *int64
}

// EntityService runs the generic read and write operations for catalog
// entities. It holds no per-request state.
type EntityService struct {
	exec    *database.Executor
	catalog *entity.Catalog
	logger  *slog.Logger
}

// NewEntityService creates an EntityService.
func NewEntityService(exec *database.Executor, catalog *entity.Catalog, logger *slog.Logger) *EntityService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EntityService{exec: exec, catalog: catalog, logger: logger}
}

// Catalog returns the entity catalog.
func (s *EntityService) Catalog() *entity.Catalog { return s.catalog }

// Entity returns the public entity called name.
func (s *EntityService) Entity(name string) (*entity.Entity, error) {
	e, ok := s.catalog.Get(name)
	if !ok || e.Internal {
		return nil, ErrUnknownEntity
	}
	return e, nil
}

// Ping checks the database.
func (s *EntityService) Ping(ctx context.Context) error { return s.exec.Ping(ctx) }

// List returns records of entity name matching opts.
func (s *EntityService) List(ctx context.Context, name string, opts ListOptions) (ListResult, error) {
	e, err := s.Entity(name)
	if err != nil {
		return ListResult{}, err
	}
	d := s.exec.Dialect()

	columns, err := projection(e, opts.Fields)
	if err != nil {
		return ListResult{}, err
	}
	b := query.NewSelect(d.QuoteIdentifier, e.Table).Columns(columns...)
	params := query.Params{}

	if err := applyFilters(e, b, params, opts.Filters); err != nil {
		return ListResult{}, err
	}
	if opts.Search != "" {
		if cols := e.SearchColumns(); len(cols) > 0 {
			b.Search(cols, searchParam)
			params[searchParam] = "%" + opts.Search + "%"
		}
	}

	order, err := listOrder(e, opts.Order)
	if err != nil {
		return ListResult{}, err
	}
	limit := opts.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	b.OrderBy(order...).Page(limit, offset, d.Paginate)

	stmt, err := b.SQL()
	if err != nil {
		return ListResult{}, err
	}
	records, err := s.exec.Select(ctx, stmt, params)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Records: records}
	if opts.IncludeTotal {
		countStmt, err := b.CountSQL()
		if err != nil {
			return ListResult{}, err
		}
		total, err := s.exec.Count(ctx, countStmt, params)
		if err != nil {
			return ListResult{}, err
		}
		result.Total = &total
	}
	return result, nil
}

// Get returns the record of entity name keyed id.
func (s *EntityService) Get(ctx context.Context, name string, id int64) (database.Record, error) {
	e, err := s.Entity(name)
	if err != nil {
		return database.Record{}, err
	}
	d := s.exec.Dialect()
	stmt, err := query.NewSelect(d.QuoteIdentifier, e.Table).Where(e.Key, keyParam).SQL()
	if err != nil {
		return database.Record{}, err
	}
	records, err := s.exec.Select(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return database.Record{}, err
	}
	if len(records) == 0 {
		return database.Record{}, ErrNotFound
	}
	return records[0], nil
}

// Create inserts payload into entity name and returns the new key.
// Sequence-backed entities ignore any key in the payload.
func (s *EntityService) Create(ctx context.Context, name string, payload fieldmap.Payload) (int64, error) {
	e, err := s.writable(name)
	if err != nil {
		return 0, err
	}
	fields := e.InsertFields()
	m, err := fieldmap.Map(payload, fields)
	if err != nil {
		return 0, err
	}
	if err := m.Missing(fields); err != nil {
		return 0, err
	}

	id, err := insertRecord(ctx, s.exec, s.exec.Dialect(), e, m.Bindings())
	if err != nil {
		return 0, err
	}
	s.logger.Debug("record created", "entity", e.Name, "id", id)
	return id, nil
}

// Update assigns the recognized fields of payload to the record keyed id.
// A payload with no recognized field fails before any statement runs.
func (s *EntityService) Update(ctx context.Context, name string, id int64, payload fieldmap.Payload) error {
	e, err := s.writable(name)
	if err != nil {
		return err
	}
	m, err := fieldmap.Map(payload, e.UpdateFields())
	if err != nil {
		return err
	}
	if err := m.NullRequired(); err != nil {
		return err
	}
	return updateRecord(ctx, s.exec, s.exec.Dialect(), e, id, m.Bindings())
}

// Delete removes the record keyed id. Deleting a missing record reports
// ErrNotFound and changes nothing.
func (s *EntityService) Delete(ctx context.Context, name string, id int64) error {
	e, err := s.writable(name)
	if err != nil {
		return err
	}
	d := s.exec.Dialect()
	stmt, err := query.NewDelete(d.QuoteIdentifier, e.Table).Where(e.Key, keyParam).SQL()
	if err != nil {
		return err
	}
	n, err := s.exec.Exec(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntityService) writable(name string) (*entity.Entity, error) {
	e, err := s.Entity(name)
	if err != nil {
		return nil, err
	}
	if e.ReadOnly {
		return nil, ErrReadOnly
	}
	return e, nil
}

// projection maps field names to columns. The key is always selectable.
func projection(e *entity.Entity, fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.EqualFold(f, e.Key) {
			cols = append(cols, e.Key)
			continue
		}
		l := e.Fields.Lookup(f)
		if !l.Recognized {
			return nil, &fieldmap.ValidationError{Field: f, Reason: "is not a field of " + e.Name}
		}
		cols = append(cols, l.Spec.Column)
	}
	return cols, nil
}

func applyFilters(e *entity.Entity, b *query.SelectBuilder, params query.Params, filters map[string]string) error {
	if len(filters) == 0 {
		return nil
	}
	specs := e.FilterSpecs()
	names := make([]string, 0, len(filters))
	for n := range filters {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		var spec *fieldmap.FieldSpec
		for i := range specs {
			if strings.EqualFold(specs[i].Name, n) {
				spec = &specs[i]
				break
			}
		}
		if spec == nil {
			return &fieldmap.ValidationError{Field: n, Reason: "is not filterable"}
		}
		v, err := fieldmap.Coerce(*spec, filters[n])
		if err != nil {
			return err
		}
		p := filterPrefix + spec.Param
		b.Where(spec.Column, p)
		params[p] = v
	}
	return nil
}

// listOrder resolves a client order string against the whitelist, falling
// back to the entity default and finally to the key, so paging is stable.
func listOrder(e *entity.Entity, order string) ([]query.OrderClause, error) {
	clauses, err := query.ParseOrderClause(order)
	if err != nil {
		return nil, &fieldmap.ValidationError{Field: "order", Value: order, Reason: err.Error()}
	}
	for i, c := range clauses {
		if strings.EqualFold(c.Column, e.Key) {
			clauses[i].Column = e.Key
			continue
		}
		l := e.Fields.Lookup(c.Column)
		if !l.Recognized {
			return nil, &fieldmap.ValidationError{Field: "order", Value: c.Column, Reason: "is not a field of " + e.Name}
		}
		clauses[i].Column = l.Spec.Column
	}
	if len(clauses) == 0 {
		clauses = e.ListOrder
	}
	if len(clauses) == 0 {
		clauses = []query.OrderClause{{Column: e.Key, Direction: "ASC"}}
	}
	return clauses, nil
}
