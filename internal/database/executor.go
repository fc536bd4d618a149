// Package database executes bound statements and materializes their results
// as ordered records. Every call runs on its own connection, released on
// every exit path; multi-statement work goes through InTx.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/query"
)

// Executor runs statements against a Provider.
type Executor struct {
	provider *connector.Provider
	logger   *slog.Logger
}

// NewExecutor creates an Executor. A nil logger discards output.
func NewExecutor(p *connector.Provider, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{provider: p, logger: logger}
}

// Dialect returns the dialect statements must be written for.
func (e *Executor) Dialect() connector.Dialect { return e.provider.Dialect() }

// Ping checks that the database answers.
func (e *Executor) Ping(ctx context.Context) error { return e.provider.Ping(ctx) }

// Select runs a query and returns every row in order.
func (e *Executor) Select(ctx context.Context, sqlText string, params query.Params) ([]Record, error) {
	conn, err := e.provider.Acquire(ctx)
	if err != nil {
		return nil, e.fail("select", sqlText, params, err)
	}
	defer conn.Close()
	return e.run(conn).selectRows(ctx, sqlText, params)
}

// Count runs a single-value query such as SELECT COUNT(*).
func (e *Executor) Count(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	conn, err := e.provider.Acquire(ctx)
	if err != nil {
		return 0, e.fail("count", sqlText, params, err)
	}
	defer conn.Close()
	return e.run(conn).count(ctx, sqlText, params)
}

// Exec runs an UPDATE or DELETE and returns the affected row count. Zero
// rows is not an error.
func (e *Executor) Exec(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	conn, err := e.provider.Acquire(ctx)
	if err != nil {
		return 0, e.fail("exec", sqlText, params, err)
	}
	defer conn.Close()
	return e.run(conn).exec(ctx, sqlText, params)
}

// Insert runs a statement completed by the dialect's PrepareInsert and
// returns the generated key it reported. A key that is not reported fails
// with ErrInsertIntegrity.
func (e *Executor) Insert(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	conn, err := e.provider.Acquire(ctx)
	if err != nil {
		return 0, e.fail("insert", sqlText, params, err)
	}
	defer conn.Close()
	return e.run(conn).insert(ctx, sqlText, params)
}

// InTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back when fn returns an error or panics.
func (e *Executor) InTx(ctx context.Context, fn func(*Session) error) (err error) {
	tx, err := e.provider.BeginTx(ctx, nil)
	if err != nil {
		return e.fail("begin", "", nil, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				e.logger.Error("rollback failed", "error", rbErr)
			}
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = e.fail("commit", "", nil, cerr)
		}
	}()

	return fn(&Session{runner: e.run(tx)})
}

func (e *Executor) run(q connector.Querier) runner {
	d := e.provider.Dialect()
	return runner{q: q, bindType: d.BindType(), strategy: d.KeyStrategy(), fail: e.fail}
}

// fail logs a driver failure with the statement and parameter names and
// wraps it. Parameter values are never logged.
func (e *Executor) fail(op, sqlText string, params query.Params, err error) error {
	if errors.Is(err, context.Canceled) {
		e.logger.Debug("statement canceled", "op", op, "statement", sqlText)
	} else {
		e.logger.Error("statement failed",
			"op", op,
			"statement", sqlText,
			"params", params.Keys(),
			"error", err,
		)
	}
	return &Error{Op: op, Statement: sqlText, Err: err}
}

// Session runs statements inside a transaction started by InTx.
type Session struct {
	runner runner
}

// Select runs a query inside the transaction.
func (s *Session) Select(ctx context.Context, sqlText string, params query.Params) ([]Record, error) {
	return s.runner.selectRows(ctx, sqlText, params)
}

// Count runs a single-value query inside the transaction.
func (s *Session) Count(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	return s.runner.count(ctx, sqlText, params)
}

// Exec runs an UPDATE or DELETE inside the transaction.
func (s *Session) Exec(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	return s.runner.exec(ctx, sqlText, params)
}

// Insert runs a key-returning INSERT inside the transaction.
func (s *Session) Insert(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	return s.runner.insert(ctx, sqlText, params)
}

type runner struct {
	q        connector.Querier
	bindType int
	strategy connector.KeyStrategy
	fail     func(op, sqlText string, params query.Params, err error) error
}

func (r runner) bind(op, sqlText string, params query.Params) (string, []any, error) {
	bound, args, err := query.Bind(r.bindType, sqlText, params)
	if err != nil {
		return "", nil, r.fail(op, sqlText, params, fmt.Errorf("bind: %w", err))
	}
	return bound, args, nil
}

func (r runner) selectRows(ctx context.Context, sqlText string, params query.Params) ([]Record, error) {
	bound, args, err := r.bind("select", sqlText, params)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryxContext(ctx, bound, args...)
	if err != nil {
		return nil, r.fail("select", sqlText, params, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, r.fail("select", sqlText, params, err)
	}

	records := make([]Record, 0)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, r.fail("select", sqlText, params, err)
		}
		for i := range values {
			values[i] = cleanValue(values[i])
		}
		records = append(records, Record{columns: columns, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("select", sqlText, params, err)
	}
	return records, nil
}

func (r runner) count(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	bound, args, err := r.bind("count", sqlText, params)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.q.QueryRowxContext(ctx, bound, args...).Scan(&n); err != nil {
		return 0, r.fail("count", sqlText, params, err)
	}
	return n, nil
}

func (r runner) exec(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	bound, args, err := r.bind("exec", sqlText, params)
	if err != nil {
		return 0, err
	}
	res, err := r.q.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, r.fail("exec", sqlText, params, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.fail("exec", sqlText, params, err)
	}
	return n, nil
}

func (r runner) insert(ctx context.Context, sqlText string, params query.Params) (int64, error) {
	var key sql.NullInt64

	switch r.strategy {
	case connector.KeyFromOutParam:
		p := params.Clone().Set(connector.GeneratedKeyParam, sql.Out{Dest: &key})
		bound, args, err := r.bind("insert", sqlText, p)
		if err != nil {
			return 0, err
		}
		if _, err := r.q.ExecContext(ctx, bound, args...); err != nil {
			return 0, r.fail("insert", sqlText, p, err)
		}

	case connector.KeyFromRow:
		bound, args, err := r.bind("insert", sqlText, params)
		if err != nil {
			return 0, err
		}
		err = r.q.QueryRowxContext(ctx, bound, args...).Scan(&key)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.fail("insert", sqlText, params, ErrInsertIntegrity)
		}
		if err != nil {
			return 0, r.fail("insert", sqlText, params, err)
		}

	case connector.KeyFromLastInsertID:
		bound, args, err := r.bind("insert", sqlText, params)
		if err != nil {
			return 0, err
		}
		res, err := r.q.ExecContext(ctx, bound, args...)
		if err != nil {
			return 0, r.fail("insert", sqlText, params, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, r.fail("insert", sqlText, params, err)
		}
		key = sql.NullInt64{Int64: id, Valid: id > 0}

	default:
		return 0, r.fail("insert", sqlText, params, fmt.Errorf("unknown key strategy %d", r.strategy))
	}

	if !key.Valid {
		return 0, r.fail("insert", sqlText, params, ErrInsertIntegrity)
	}
	return key.Int64, nil
}
