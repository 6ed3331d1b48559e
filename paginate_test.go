package policyeval

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedStore(names ...string) *MemoryEntityStore {
	store := NewMemoryEntityStore()
	for _, n := range names {
		store.Put(n, []byte(`{"name":"`+n+`"}`))
	}
	return store
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestCursorRoundTrip(t *testing.T) {
	for _, key := range []string{"A", "db.schema.orders", "weird name/with?chars&=", ""} {
		cursor := EncodeCursor(key)
		// cursors are URL-safe by construction
		require.Equal(t, cursor, url.QueryEscape(cursor))
		got, err := DecodeCursor(cursor)
		require.NoError(t, err)
		require.Equal(t, key, got)
	}
	_, err := DecodeCursor("%%%not-base64%%%")
	require.Error(t, err)
}

func TestPaginateSevenRowsLimitThree(t *testing.T) {
	ctx := context.Background()
	store := seedStore("A", "B", "C", "D", "E", "F", "G")
	p := NewPaginator(store)
	filter := ListFilter{Include: IncludeNonDeleted}

	page1, err := p.Paginate(ctx, filter, 3, "", DirectionForward)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, names(page1.Records))
	require.Equal(t, 7, page1.Paging.Total)
	require.Empty(t, page1.Paging.Before, "first page never returns a before cursor")
	require.Equal(t, EncodeCursor("C"), page1.Paging.After)

	page2, err := p.Paginate(ctx, filter, 3, page1.Paging.After, DirectionForward)
	require.NoError(t, err)
	require.Equal(t, []string{"D", "E", "F"}, names(page2.Records))
	require.Equal(t, EncodeCursor("D"), page2.Paging.Before)
	require.Equal(t, EncodeCursor("F"), page2.Paging.After)

	page3, err := p.Paginate(ctx, filter, 3, page2.Paging.After, DirectionForward)
	require.NoError(t, err)
	require.Equal(t, []string{"G"}, names(page3.Records))
	require.Equal(t, EncodeCursor("G"), page3.Paging.Before)
	require.Empty(t, page3.Paging.After, "last page has no next page")
}

func TestPaginateForwardRoundTripNoGapsNoOverlap(t *testing.T) {
	ctx := context.Background()
	filter := ListFilter{Include: IncludeNonDeleted}
	for _, total := range []int{0, 1, 3, 6, 7, 10} {
		for limit := 1; limit <= 4; limit++ {
			all := make([]string, 0, total)
			for i := 0; i < total; i++ {
				all = append(all, fmt.Sprintf("row-%02d", i))
			}
			p := NewPaginator(seedStore(all...))

			got := make([]string, 0, total)
			cursor := ""
			for {
				page, err := p.Paginate(ctx, filter, limit, cursor, DirectionForward)
				require.NoError(t, err)
				require.Equal(t, total, page.Paging.Total)
				require.LessOrEqual(t, len(page.Records), limit)
				got = append(got, names(page.Records)...)
				if page.Paging.After == "" {
					break
				}
				cursor = page.Paging.After
			}
			require.Equal(t, all, got, "total=%d limit=%d", total, limit)
		}
	}
}

func TestPaginateBackward(t *testing.T) {
	ctx := context.Background()
	store := seedStore("A", "B", "C", "D", "E", "F", "G")
	p := NewPaginator(store)
	filter := ListFilter{Include: IncludeNonDeleted}

	// page back from G's page: rows strictly before "G"
	page, err := p.Paginate(ctx, filter, 3, EncodeCursor("G"), DirectionBackward)
	require.NoError(t, err)
	require.Equal(t, []string{"D", "E", "F"}, names(page.Records))
	require.Equal(t, EncodeCursor("D"), page.Paging.Before)
	require.Equal(t, EncodeCursor("F"), page.Paging.After)

	// page back again lands on the first page, which has no previous page
	page, err = p.Paginate(ctx, filter, 3, page.Paging.Before, DirectionBackward)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, names(page.Records))
	require.Empty(t, page.Paging.Before)
	require.Equal(t, EncodeCursor("C"), page.Paging.After)

	// backward paging always needs a cursor
	_, err = p.Paginate(ctx, filter, 3, "", DirectionBackward)
	require.Error(t, err)
}

func TestPaginateHonorsIncludeFilter(t *testing.T) {
	ctx := context.Background()
	store := seedStore("A", "B", "C", "D")
	store.SoftDelete("B")
	p := NewPaginator(store)

	page, err := p.Paginate(ctx, ListFilter{Include: IncludeNonDeleted}, 10, "", DirectionForward)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "D"}, names(page.Records))
	require.Equal(t, 3, page.Paging.Total, "total must use the same filter as the page")

	page, err = p.Paginate(ctx, ListFilter{Include: IncludeDeleted}, 10, "", DirectionForward)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, names(page.Records))
	require.Equal(t, 1, page.Paging.Total)

	page, err = p.Paginate(ctx, ListFilter{Include: IncludeAll}, 10, "", DirectionForward)
	require.NoError(t, err)
	require.Equal(t, 4, page.Paging.Total)
}

func TestPaginateInvalidLimit(t *testing.T) {
	p := NewPaginator(seedStore("A"))
	_, err := p.Paginate(context.Background(), ListFilter{}, 0, "", DirectionForward)
	require.Error(t, err)
}

type failingEntityStore struct {
	EntityStore
	failList  bool
	failCount bool
}

func (f *failingEntityStore) ListAfter(ctx context.Context, filter ListFilter, limit int, after string) ([]Record, error) {
	if f.failList {
		return nil, errors.New("storage offline")
	}
	return f.EntityStore.ListAfter(ctx, filter, limit, after)
}

func (f *failingEntityStore) ListCount(ctx context.Context, filter ListFilter) (int, error) {
	if f.failCount {
		return 0, errors.New("storage offline")
	}
	return f.EntityStore.ListCount(ctx, filter)
}

func TestPaginatePropagatesFetchErrors(t *testing.T) {
	ctx := context.Background()
	base := seedStore("A", "B", "C")

	p := NewPaginator(&failingEntityStore{EntityStore: base, failList: true})
	_, err := p.Paginate(ctx, ListFilter{}, 2, "", DirectionForward)
	var fetchErr *PageFetchError
	require.True(t, errors.As(err, &fetchErr), "expected PageFetchError, got %v", err)

	p = NewPaginator(&failingEntityStore{EntityStore: base, failCount: true})
	_, err = p.Paginate(ctx, ListFilter{}, 2, "", DirectionForward)
	require.True(t, errors.As(err, &fetchErr), "expected PageFetchError, got %v", err)
}
