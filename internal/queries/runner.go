package queries

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/repository"
)

// Row is one result row; values line up with Result.Columns.
type Row struct {
	columns []string
	Values  []any
}

// Get returns the value of column (case-insensitive).
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if strings.EqualFold(c, column) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object whose keys keep column order.
func (r Row) MarshalJSON() ([]byte, error) {
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
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is a materialized result set. It marshals as a JSON array of row
// objects.
type Result struct {
	Name    Name
	Columns []string
	Rows    []Row
}

func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Rows)
}

type Runner struct {
	db     *repository.DB
	logger *slog.Logger
}

func NewRunner(db *repository.DB, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, logger: logger}
}

// Run executes the canned query n and materializes its rows. Column names are
// upper-cased so results look the same across database engines.
func (r *Runner) Run(ctx context.Context, n Name) (*Result, error) {
	query := n.SQL()
	if query == "" {
		return nil, common.NewAppError("UNKNOWN_QUERY", fmt.Sprintf("unknown query %q", n), common.ErrInvalidInput)
	}
	start := time.Now()

	res := &Result{Name: n}
	err := r.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("%w: query %s: %v", common.ErrDatabase, n, err)
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("%w: columns %s: %v", common.ErrDatabase, n, err)
		}
		for i := range cols {
			cols[i] = strings.ToUpper(cols[i])
		}
		res.Columns = cols

		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("%w: scan %s: %v", common.ErrDatabase, n, err)
			}
			for i, v := range vals {
				vals[i] = normalizeValue(v)
			}
			res.Rows = append(res.Rows, Row{columns: cols, Values: vals})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: rows %s: %v", common.ErrDatabase, n, err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("query failed", "query", n, "error", err)
		return nil, err
	}

	r.logger.Info("query complete", "query", n, "rows", len(res.Rows), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// RunJSON runs the query selected by name and returns it as a JSON array of
// row objects.
func (r *Runner) RunJSON(ctx context.Context, selector string) ([]byte, error) {
	n, err := ParseName(selector)
	if err != nil {
		return nil, err
	}
	res, err := r.Run(ctx, n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
