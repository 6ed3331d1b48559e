package stores

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oarkflow/policyeval"
)

func seedEntities(t *testing.T, store *SQLEntityStore, names ...string) {
	t.Helper()
	ctx := context.Background()
	for _, name := range names {
		data := []byte(fmt.Sprintf(`{"name":%q}`, name))
		if err := store.Insert(ctx, name, data); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
}

func recordNames(records []policyeval.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestSQLEntityStoreListAfter(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	seedEntities(t, store, "delta", "alpha", "charlie", "bravo", "echo")
	ctx := context.Background()
	filter := policyeval.ListFilter{Include: policyeval.IncludeNonDeleted}

	rows, err := store.ListAfter(ctx, filter, 3, "")
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	got := recordNames(rows)
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	rows, err = store.ListAfter(ctx, filter, 3, "charlie")
	if err != nil {
		t.Fatalf("list after cursor: %v", err)
	}
	got = recordNames(rows)
	if len(got) != 2 || got[0] != "delta" || got[1] != "echo" {
		t.Fatalf("expected [delta echo], got %v", got)
	}
}

func TestSQLEntityStoreListBefore(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	seedEntities(t, store, "alpha", "bravo", "charlie", "delta", "echo")
	ctx := context.Background()
	filter := policyeval.ListFilter{Include: policyeval.IncludeNonDeleted}

	rows, err := store.ListBefore(ctx, filter, 2, "delta")
	if err != nil {
		t.Fatalf("list before: %v", err)
	}
	got := recordNames(rows)
	// descending order, rows strictly below the bound
	if len(got) != 2 || got[0] != "charlie" || got[1] != "bravo" {
		t.Fatalf("expected [charlie bravo], got %v", got)
	}
}

func TestSQLEntityStoreSoftDelete(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	seedEntities(t, store, "alpha", "bravo", "charlie")
	ctx := context.Background()

	if err := store.SoftDelete(ctx, "bravo"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	live := policyeval.ListFilter{Include: policyeval.IncludeNonDeleted}
	deleted := policyeval.ListFilter{Include: policyeval.IncludeDeleted}
	all := policyeval.ListFilter{Include: policyeval.IncludeAll}

	for _, tc := range []struct {
		filter policyeval.ListFilter
		want   int
	}{
		{live, 2},
		{deleted, 1},
		{all, 3},
	} {
		n, err := store.ListCount(ctx, tc.filter)
		if err != nil {
			t.Fatalf("count %s: %v", tc.filter.Include, err)
		}
		if n != tc.want {
			t.Fatalf("count %s: expected %d, got %d", tc.filter.Include, tc.want, n)
		}
	}

	row, err := store.Get(ctx, "bravo")
	if err != nil {
		t.Fatalf("get deleted row: %v", err)
	}
	if !row.Deleted {
		t.Fatalf("expected bravo flagged deleted")
	}

	if err := store.Restore(ctx, "bravo"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	n, err := store.ListCount(ctx, live)
	if err != nil {
		t.Fatalf("count after restore: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 live rows after restore, got %d", n)
	}
}

func TestSQLEntityStoreGetMissing(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, policyeval.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLEntityStoreScopedByType(t *testing.T) {
	db := newTestDB(t)
	tables := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	users := NewSQLEntityStore(db, policyeval.EntityTypeUser)
	seedEntities(t, tables, "orders", "invoices")
	seedEntities(t, users, "alice")
	ctx := context.Background()
	filter := policyeval.ListFilter{Include: policyeval.IncludeAll}

	n, err := tables.ListCount(ctx, filter)
	if err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tables, got %d", n)
	}
	n, err = users.ListCount(ctx, filter)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestSQLEntityStorePaginates(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLEntityStore(db, policyeval.EntityTypeTable)
	seedEntities(t, store, "a", "b", "c", "d", "e", "f", "g")
	ctx := context.Background()

	p := policyeval.NewPaginator(store)
	filter := policyeval.ListFilter{Include: policyeval.IncludeNonDeleted}

	page, err := p.Paginate(ctx, filter, 3, "", policyeval.DirectionForward)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if got := recordNames(page.Records); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected first page %v", got)
	}
	if page.Paging.Total != 7 {
		t.Fatalf("expected total 7, got %d", page.Paging.Total)
	}
	if page.Paging.After == "" {
		t.Fatalf("expected a next cursor")
	}

	page, err = p.Paginate(ctx, filter, 3, page.Paging.After, policyeval.DirectionForward)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if got := recordNames(page.Records); len(got) != 3 || got[0] != "d" || got[2] != "f" {
		t.Fatalf("unexpected second page %v", got)
	}
}
