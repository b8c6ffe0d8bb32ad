package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidQuery is returned for unknown models, unknown columns or malformed values.
	ErrInvalidQuery = errors.New("invalid query")
)

// Store is the data-access contract shared by the SQL implementation and its
// decorators. Model names are the keys of the schema registry.
type Store interface {
	FindMany(ctx context.Context, model string, q Query) ([]Row, error)
	FindFirst(ctx context.Context, model string, q Query) (Row, error)
	FindUnique(ctx context.Context, model string, id int64) (Row, error)
	Create(ctx context.Context, model string, values Row) (Row, error)
	Update(ctx context.Context, model string, where Where, values Row) (int64, error)
	Delete(ctx context.Context, model string, id int64) error
	DeleteMany(ctx context.Context, model string, where Where) (int64, error)

	// Tx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Tx(ctx context.Context, fn func(Store) error) error
}

// Where maps a column to the value it must match. A nil value matches NULL;
// operator values (Gte, Lte, Ne, In, NotNull) express other predicates.
type Where map[string]any

// Merge returns a copy of w with every key of other set, overriding w.
func (w Where) Merge(other Where) Where {
	out := make(Where, len(w)+len(other))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Query is the argument shape of FindMany and FindFirst.
type Query struct {
	Where   Where
	OrderBy string
	Desc    bool
	Limit   int
}

// Op is a non-equality predicate on a single column.
type Op struct {
	kind  string
	value any
}

func Gte(v any) Op    { return Op{kind: ">=", value: v} }
func Lte(v any) Op    { return Op{kind: "<=", value: v} }
func Ne(v any) Op     { return Op{kind: "!=", value: v} }
func In(vs ...any) Op { return Op{kind: "IN", value: vs} }
func NotNull() Op     { return Op{kind: "NOT NULL"} }

// Between matches lo <= col <= hi.
func Between(lo, hi any) Op {
	return Op{kind: "BETWEEN", value: [2]any{lo, hi}}
}

// Row is a single record keyed by column name.
type Row map[string]any

// Int64 returns the integer value of col, or 0 when it is NULL.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Int64Ptr returns nil when col is NULL.
func (r Row) Int64Ptr(col string) *int64 {
	if r[col] == nil {
		return nil
	}
	v := r.Int64(col)
	return &v
}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	}
	return fmt.Sprint(r[col])
}

func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}

// Time returns the timestamp stored in col, or the zero time when it is NULL
// or unparseable.
func (r Row) Time(col string) time.Time {
	t, _ := r.timeValue(col)
	return t
}

// TimePtr returns nil when col is NULL.
func (r Row) TimePtr(col string) *time.Time {
	t, ok := r.timeValue(col)
	if !ok {
		return nil
	}
	return &t
}

func (r Row) timeValue(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

// TimeLayout is the fixed-width UTC layout used for every timestamp this
// package writes, so lexical order matches chronological order.
const TimeLayout = "2006-01-02 15:04:05.000000000"

var readLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
