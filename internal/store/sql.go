package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLStore implements Store over database/sql. Every statement is built from
// the schema registry, so model and column names never come from callers
// unchecked.
type SQLStore struct {
	db   *sql.DB
	q    querier
	inTx bool
	now  func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db, now: time.Now}
}

// DB returns the underlying handle for raw, unfiltered access.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) FindMany(ctx context.Context, model string, q Query) ([]Row, error) {
	t, err := lookup(model)
	if err != nil {
		return nil, err
	}
	stmt, args, err := selectStmt(t, q)
	if err != nil {
		return nil, fmt.Errorf("find many %s: %w", model, err)
	}
	rows, err := s.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find many %s: %w", model, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", model, err)
	}
	return out, nil
}

func (s *SQLStore) FindFirst(ctx context.Context, model string, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.FindMany(ctx, model, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *SQLStore) FindUnique(ctx context.Context, model string, id int64) (Row, error) {
	return s.FindFirst(ctx, model, Query{Where: Where{"id": id}})
}

func (s *SQLStore) Create(ctx context.Context, model string, values Row) (Row, error) {
	t, err := lookup(model)
	if err != nil {
		return nil, err
	}

	values = s.stamp(t, values, "created_at", "updated_at")
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return nil, fmt.Errorf("create %s: %w: no values", model, ErrInvalidQuery)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		if !t.has(c) {
			return nil, fmt.Errorf("create %s: %w: unknown column %q", model, ErrInvalidQuery, c)
		}
		quoted[i] = quote(c)
		marks[i] = "?"
		args[i] = bindValue(values[c])
	}

	stmt := `INSERT INTO ` + quote(t.name) + ` (` + strings.Join(quoted, ", ") + `) VALUES (` + strings.Join(marks, ", ") + `)`
	result, err := s.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", model, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.FindUnique(ctx, model, id)
}

func (s *SQLStore) Update(ctx context.Context, model string, where Where, values Row) (int64, error) {
	t, err := lookup(model)
	if err != nil {
		return 0, err
	}

	values = s.stamp(t, values, "updated_at")
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return 0, fmt.Errorf("update %s: %w: no values", model, ErrInvalidQuery)
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where))
	for i, c := range cols {
		if !t.has(c) {
			return 0, fmt.Errorf("update %s: %w: unknown column %q", model, ErrInvalidQuery, c)
		}
		sets[i] = quote(c) + ` = ?`
		args = append(args, bindValue(values[c]))
	}

	clause, whereArgs, err := buildWhere(t, where)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", model, err)
	}
	args = append(args, whereArgs...)

	stmt := `UPDATE ` + quote(t.name) + ` SET ` + strings.Join(sets, ", ") + clause
	result, err := s.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", model, err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) Delete(ctx context.Context, model string, id int64) error {
	n, err := s.DeleteMany(ctx, model, Where{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteMany(ctx context.Context, model string, where Where) (int64, error) {
	t, err := lookup(model)
	if err != nil {
		return 0, err
	}
	clause, args, err := buildWhere(t, where)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", model, err)
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM `+quote(t.name)+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", model, err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) Tx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, q: tx, inTx: true, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// stamp fills the named timestamp columns the caller did not set.
func (s *SQLStore) stamp(t *table, values Row, cols ...string) Row {
	out := make(Row, len(values)+len(cols))
	for k, v := range values {
		out[k] = v
	}
	now := s.now()
	for _, c := range cols {
		if _, set := out[c]; !set && t.has(c) {
			out[c] = now
		}
	}
	return out
}

func selectStmt(t *table, q Query) (string, []any, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = quote(c)
	}

	clause, args, err := buildWhere(t, q.Where)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + strings.Join(cols, ", ") + ` FROM ` + quote(t.name) + clause)

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	if !t.has(orderBy) {
		return "", nil, fmt.Errorf("%w: unknown order column %q", ErrInvalidQuery, orderBy)
	}
	b.WriteString(` ORDER BY ` + quote(orderBy))
	if q.Desc {
		b.WriteString(` DESC`)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, q.Limit)
	}
	return b.String(), args, nil
}

func buildWhere(t *table, where Where) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var parts []string
	var args []any
	for _, col := range sortedKeys(where) {
		if !t.has(col) {
			return "", nil, fmt.Errorf("%w: unknown column %q", ErrInvalidQuery, col)
		}
		c := quote(col)

		op, isOp := where[col].(Op)
		if !isOp {
			v := bindValue(where[col])
			if v == nil {
				parts = append(parts, c+` IS NULL`)
				continue
			}
			parts = append(parts, c+` = ?`)
			args = append(args, v)
			continue
		}

		switch op.kind {
		case "NOT NULL":
			parts = append(parts, c+` IS NOT NULL`)
		case "!=":
			v := bindValue(op.value)
			if v == nil {
				parts = append(parts, c+` IS NOT NULL`)
				continue
			}
			parts = append(parts, `(`+c+` IS NULL OR `+c+` != ?)`)
			args = append(args, v)
		case ">=", "<=":
			parts = append(parts, c+` `+op.kind+` ?`)
			args = append(args, bindValue(op.value))
		case "BETWEEN":
			bounds := op.value.([2]any)
			parts = append(parts, c+` BETWEEN ? AND ?`)
			args = append(args, bindValue(bounds[0]), bindValue(bounds[1]))
		case "IN":
			vs := op.value.([]any)
			if len(vs) == 0 {
				parts = append(parts, `1 = 0`)
				continue
			}
			marks := make([]string, len(vs))
			for i, v := range vs {
				marks[i] = "?"
				args = append(args, bindValue(v))
			}
			parts = append(parts, c+` IN (`+strings.Join(marks, ", ")+`)`)
		default:
			return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, op.kind)
		}
	}
	return ` WHERE ` + strings.Join(parts, " AND "), args, nil
}

// bindValue normalises Go values into what the driver stores. Timestamps
// become TimeLayout strings; typed nil pointers become NULL.
func bindValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatTime(*x)
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	}
	return v
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// IsNotFound reports whether err means the record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
