package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// keyParam names the bound primary key in WHERE clauses.
const keyParam = "pk"

// runner is satisfied by *database.Executor and *database.Session.
type runner interface {
	Select(ctx context.Context, sqlText string, params query.Params) ([]database.Record, error)
	Count(ctx context.Context, sqlText string, params query.Params) (int64, error)
	Exec(ctx context.Context, sqlText string, params query.Params) (int64, error)
	Insert(ctx context.Context, sqlText string, params query.Params) (int64, error)
}

// insertRecord inserts bindings into e and returns the row's key. Keys of
// sequence-backed entities are allocated by the database in the same
// statement; other entities must carry their key among the bindings.
func insertRecord(ctx context.Context, r runner, d connector.Dialect, e *entity.Entity, bindings []fieldmap.Binding) (int64, error) {
	b := query.NewInsert(d.QuoteIdentifier, e.Table)
	params := make(query.Params, len(bindings))
	var clientKey any
	for _, bnd := range bindings {
		b.Value(bnd.Spec.Column, bnd.Spec.Param)
		params[bnd.Spec.Param] = bnd.Value
		if strings.EqualFold(bnd.Spec.Column, e.Key) {
			clientKey = bnd.Value
		}
	}

	if !e.Generated() {
		id, ok := clientKey.(int64)
		if !ok {
			return 0, &fieldmap.ValidationError{Field: e.Key, Reason: "is required"}
		}
		stmt, err := b.SQL()
		if err != nil {
			return 0, err
		}
		if _, err := r.Exec(ctx, stmt, params); err != nil {
			return 0, err
		}
		return id, nil
	}

	if err := d.PrepareInsert(b, e.Key, e.Sequence); err != nil {
		return 0, err
	}
	stmt, err := b.SQL()
	if err != nil {
		return 0, err
	}
	return r.Insert(ctx, stmt, params)
}

// updateRecord assigns bindings to the row keyed id and reports
// ErrNotFound when no row matched.
func updateRecord(ctx context.Context, r runner, d connector.Dialect, e *entity.Entity, id int64, bindings []fieldmap.Binding) error {
	b := query.NewUpdate(d.QuoteIdentifier, e.Table)
	params := make(query.Params, len(bindings)+1)
	for _, bnd := range bindings {
		b.Set(bnd.Spec.Column, bnd.Spec.Param)
		params[bnd.Spec.Param] = bnd.Value
	}
	b.Where(e.Key, keyParam)
	params[keyParam] = id

	stmt, err := b.SQL()
	if err != nil {
		return err
	}
	n, err := r.Exec(ctx, stmt, params)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	case float64:
		return int64(t), t == float64(int64(t))
	case decimal.Decimal:
		return t.IntPart(), t.IsInteger()
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
