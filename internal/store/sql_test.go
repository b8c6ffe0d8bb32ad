package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/homebase/internal/database"
)

func setupSQLTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db)
}

func createHousehold(t *testing.T, s Store, name string) int64 {
	t.Helper()
	h, err := s.Create(context.Background(), ModelHousehold, Row{"name": name})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h.Int64("id")
}

func TestCreateAndFindUnique(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()

	hid := createHousehold(t, s, "Smith")
	due := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	c, err := s.Create(ctx, ModelChore, Row{"household_id": hid, "title": "Dishes", "due_date": due})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	got, err := s.FindUnique(ctx, ModelChore, c.Int64("id"))
	if err != nil {
		t.Fatalf("find unique: %v", err)
	}
	chore := ChoreFromRow(got)
	if chore.Title != "Dishes" {
		t.Errorf("title = %q, want %q", chore.Title, "Dishes")
	}
	if chore.Status != "PENDING" {
		t.Errorf("status = %q, want default PENDING", chore.Status)
	}
	if chore.DueDate == nil || !chore.DueDate.Equal(due) {
		t.Errorf("due_date = %v, want %v", chore.DueDate, due)
	}
	if chore.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if chore.DeletedAt != nil {
		t.Errorf("deleted_at = %v, want nil", chore.DeletedAt)
	}
}

func TestFindUniqueNotFound(t *testing.T) {
	s := setupSQLTestStore(t)

	_, err := s.FindUnique(context.Background(), ModelChore, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUnknownModelAndColumn(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()

	if _, err := s.FindMany(ctx, "grocery", Query{}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown model err = %v, want ErrInvalidQuery", err)
	}
	if _, err := s.FindMany(ctx, ModelChore, Query{Where: Where{"title; DROP TABLE chores": 1}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown column err = %v, want ErrInvalidQuery", err)
	}
	if _, err := s.Create(ctx, ModelChore, Row{"bogus": 1}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("create unknown column err = %v, want ErrInvalidQuery", err)
	}
	if _, err := s.FindMany(ctx, ModelChore, Query{OrderBy: "nope"}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("order by unknown column err = %v, want ErrInvalidQuery", err)
	}
}

func TestWhereOperators(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()
	hid := createHousehold(t, s, "Smith")

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		title  string
		status string
		due    *time.Time
	}{
		{"a", "PENDING", ptr(base.Add(-2 * time.Hour))},
		{"b", "PENDING", ptr(base.Add(3 * time.Hour))},
		{"c", "COMPLETED", ptr(base.Add(5 * time.Hour))},
		{"d", "PENDING", ptr(base.Add(30 * time.Hour))},
		{"e", "PENDING", nil},
	}
	for _, c := range seed {
		if _, err := s.Create(ctx, ModelChore, Row{"household_id": hid, "title": c.title, "status": c.status, "due_date": c.due}); err != nil {
			t.Fatalf("create %s: %v", c.title, err)
		}
	}

	tests := []struct {
		name  string
		where Where
		want  []string
	}{
		{"between", Where{"due_date": Between(base, base.Add(24*time.Hour))}, []string{"b", "c"}},
		{"between and ne", Where{"due_date": Between(base, base.Add(24*time.Hour)), "status": Ne("COMPLETED")}, []string{"b"}},
		{"is null", Where{"due_date": nil}, []string{"e"}},
		{"not null", Where{"due_date": NotNull()}, []string{"a", "b", "c", "d"}},
		{"gte", Where{"due_date": Gte(base.Add(4 * time.Hour))}, []string{"c", "d"}},
		{"lte", Where{"due_date": Lte(base)}, []string{"a"}},
		{"in", Where{"title": In("a", "e", "zz")}, []string{"a", "e"}},
		{"empty in", Where{"title": In()}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.FindMany(ctx, ModelChore, Query{Where: tt.where, OrderBy: "title"})
			if err != nil {
				t.Fatalf("find many: %v", err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.String("title"))
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestFindFirstOrderAndLimit(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()
	hid := createHousehold(t, s, "Smith")
	for _, title := range []string{"b", "a", "c"} {
		s.Create(ctx, ModelChore, Row{"household_id": hid, "title": title})
	}

	first, err := s.FindFirst(ctx, ModelChore, Query{OrderBy: "title", Desc: true})
	if err != nil {
		t.Fatalf("find first: %v", err)
	}
	if first.String("title") != "c" {
		t.Errorf("first title = %q, want %q", first.String("title"), "c")
	}

	rows, err := s.FindMany(ctx, ModelChore, Query{OrderBy: "title", Limit: 2})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(rows) != 2 || rows[0].String("title") != "a" {
		t.Errorf("limited rows = %v", rows)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()
	hid := createHousehold(t, s, "Smith")
	c, _ := s.Create(ctx, ModelChore, Row{"household_id": hid, "title": "Dishes"})
	id := c.Int64("id")

	n, err := s.Update(ctx, ModelChore, Where{"id": id}, Row{"status": "COMPLETED"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
	got, _ := s.FindUnique(ctx, ModelChore, id)
	if got.String("status") != "COMPLETED" {
		t.Errorf("status = %q, want COMPLETED", got.String("status"))
	}

	if err := s.Delete(ctx, ModelChore, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindUnique(ctx, ModelChore, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, ModelChore, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTxCommitAndRollback(t *testing.T) {
	s := setupSQLTestStore(t)
	ctx := context.Background()

	err := s.Tx(ctx, func(tx Store) error {
		createHousehold(t, tx, "Committed")
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	boom := errors.New("boom")
	err = s.Tx(ctx, func(tx Store) error {
		createHousehold(t, tx, "Rolled back")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx err = %v, want boom", err)
	}

	rows, err := s.FindMany(ctx, ModelHousehold, Query{})
	if err != nil {
		t.Fatalf("find households: %v", err)
	}
	if len(rows) != 1 || rows[0].String("name") != "Committed" {
		t.Errorf("households = %v, want only Committed", rows)
	}
}

func TestRowAccessors(t *testing.T) {
	r := Row{
		"i":   int64(7),
		"f":   float64(2.5),
		"b":   int64(1),
		"s":   []byte("hello"),
		"t":   "2026-01-02 03:04:05",
		"n":   nil,
		"t2":  time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)),
		"raw": "2026-01-02 03:04:05.000000000",
	}

	if r.Int64("i") != 7 {
		t.Errorf("Int64 = %d", r.Int64("i"))
	}
	if r.Float64("f") != 2.5 {
		t.Errorf("Float64 = %v", r.Float64("f"))
	}
	if !r.Bool("b") {
		t.Error("Bool = false, want true")
	}
	if r.String("s") != "hello" {
		t.Errorf("String = %q", r.String("s"))
	}
	if r.Int64Ptr("n") != nil || r.TimePtr("n") != nil {
		t.Error("expected nil pointers for NULL")
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !r.Time("t").Equal(want) || !r.Time("raw").Equal(want) {
		t.Errorf("Time = %v / %v, want %v", r.Time("t"), r.Time("raw"), want)
	}
	if !r.Time("t2").Equal(want.Add(-time.Hour)) {
		t.Errorf("Time(t2) = %v", r.Time("t2"))
	}
}

func ptr[T any](v T) *T { return &v }
