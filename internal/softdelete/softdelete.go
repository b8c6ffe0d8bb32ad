// Package softdelete wraps a store.Store so that rows carrying a non-null
// deleted_at are invisible to reads and deletes only stamp deleted_at.
package softdelete

import (
	"context"
	"time"

	"github.com/dukerupert/homebase/internal/store"
)

const column = "deleted_at"

// DefaultModels lists every model that carries a deleted_at column.
var DefaultModels = []string{
	store.ModelUser,
	store.ModelHousehold,
	store.ModelThread,
	store.ModelMessage,
	store.ModelAttachment,
	store.ModelChore,
	store.ModelExpense,
	store.ModelTransaction,
	store.ModelEvent,
}

type includeDeletedKey struct{}

// WithDeleted returns a context under which reads are not rewritten. Deletes
// stay soft.
func WithDeleted(ctx context.Context) context.Context {
	return context.WithValue(ctx, includeDeletedKey{}, true)
}

func includeDeleted(ctx context.Context) bool {
	v, _ := ctx.Value(includeDeletedKey{}).(bool)
	return v
}

// Interceptor is a store.Store decorator. Models outside its set pass through
// untouched.
type Interceptor struct {
	inner  store.Store
	models map[string]struct{}
	now    func() time.Time
}

var _ store.Store = (*Interceptor)(nil)

// New wraps inner. With no models given, DefaultModels is used.
func New(inner store.Store, models ...string) *Interceptor {
	if len(models) == 0 {
		models = DefaultModels
	}
	set := make(map[string]struct{}, len(models))
	for _, m := range models {
		set[m] = struct{}{}
	}
	return &Interceptor{inner: inner, models: set, now: time.Now}
}

// Unwrap returns the undecorated store.
func (i *Interceptor) Unwrap() store.Store {
	return i.inner
}

// SoftDeletable reports whether model is in the interceptor's set.
func (i *Interceptor) SoftDeletable(model string) bool {
	_, ok := i.models[model]
	return ok
}

func (i *Interceptor) filtered(ctx context.Context, model string) bool {
	return i.SoftDeletable(model) && !includeDeleted(ctx)
}

// FindMany forces deleted_at IS NULL, replacing any deleted_at predicate the
// caller supplied.
func (i *Interceptor) FindMany(ctx context.Context, model string, q store.Query) ([]store.Row, error) {
	if i.filtered(ctx, model) {
		q.Where = q.Where.Merge(store.Where{column: nil})
	}
	return i.inner.FindMany(ctx, model, q)
}

func (i *Interceptor) FindFirst(ctx context.Context, model string, q store.Query) (store.Row, error) {
	if i.filtered(ctx, model) {
		q.Where = q.Where.Merge(store.Where{column: nil})
	}
	return i.inner.FindFirst(ctx, model, q)
}

// FindUnique looks the row up unfiltered and reports store.ErrNotFound when
// it has been soft-deleted.
func (i *Interceptor) FindUnique(ctx context.Context, model string, id int64) (store.Row, error) {
	row, err := i.inner.FindUnique(ctx, model, id)
	if err != nil {
		return nil, err
	}
	if i.filtered(ctx, model) && row[column] != nil {
		return nil, store.ErrNotFound
	}
	return row, nil
}

func (i *Interceptor) Create(ctx context.Context, model string, values store.Row) (store.Row, error) {
	return i.inner.Create(ctx, model, values)
}

func (i *Interceptor) Update(ctx context.Context, model string, where store.Where, values store.Row) (int64, error) {
	return i.inner.Update(ctx, model, where, values)
}

// Delete stamps deleted_at on a live row. Deleting a row that is missing or
// already soft-deleted reports store.ErrNotFound.
func (i *Interceptor) Delete(ctx context.Context, model string, id int64) error {
	if !i.SoftDeletable(model) {
		return i.inner.Delete(ctx, model, id)
	}
	n, err := i.inner.Update(ctx, model, store.Where{"id": id, column: nil}, store.Row{column: i.now()})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMany stamps deleted_at on every live row matching where. Rows that
// are already soft-deleted keep their original timestamp and are not counted.
func (i *Interceptor) DeleteMany(ctx context.Context, model string, where store.Where) (int64, error) {
	if !i.SoftDeletable(model) {
		return i.inner.DeleteMany(ctx, model, where)
	}
	return i.inner.Update(ctx, model, where.Merge(store.Where{column: nil}), store.Row{column: i.now()})
}

func (i *Interceptor) Tx(ctx context.Context, fn func(store.Store) error) error {
	return i.inner.Tx(ctx, func(tx store.Store) error {
		return fn(&Interceptor{inner: tx, models: i.models, now: i.now})
	})
}
