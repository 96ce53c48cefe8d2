// Package query runs validated statements against the business database
// and narrates their results.
package query

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/types"
)

// DefaultMaxRows caps the rows kept from one statement
const DefaultMaxRows = 1000

// Querier is the read side of *sql.DB
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Executor runs one statement per call. It holds no per-request state.
type Executor struct {
	db      Querier
	timeout time.Duration
	maxRows int
}

// Option configures an Executor
type Option func(*Executor)

// WithTimeout bounds each statement; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithMaxRows caps the returned rows; the result is marked truncated when
// more were available
func WithMaxRows(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxRows = n
		}
	}
}

// NewExecutor creates an executor over db
func NewExecutor(db Querier, opts ...Option) *Executor {
	e := &Executor{db: db, maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs sqlText and returns its columns and rows. Every failure is
// an execution error carrying the database's own message.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*types.QueryResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, e.executionError(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.executionError(ctx, err)
	}

	result := &types.QueryResult{
		Columns: columns,
		Rows:    make([][]interface{}, 0),
	}

	for rows.Next() {
		if len(result.Rows) == e.maxRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, e.executionError(ctx, err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, e.executionError(ctx, err)
	}

	logging.WithFields(map[string]interface{}{
		"rows":      len(result.Rows),
		"columns":   len(columns),
		"truncated": result.Truncated,
		"elapsed":   time.Since(start).String(),
	}).Debug("statement executed")

	return result, nil
}

func (e *Executor) executionError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(err, errors.ErrTypeExecution, "query timed out after %s", e.timeout)
	}

	return errors.NewExecutionError(err)
}
