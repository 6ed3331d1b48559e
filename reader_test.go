package policyeval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestPageReaderWalksAllPages(t *testing.T) {
	ctx := context.Background()
	all := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		all = append(all, fmt.Sprintf("entity-%03d", i))
	}
	reader := NewPageReader(NewPaginator(seedStore(all...)), ListFilter{Include: IncludeNonDeleted}, 10)

	var got []string
	batches := 0
	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		batches++
		got = append(got, names(batch)...)
		reader.UpdateStats(len(batch), 0)
	}
	if batches != 3 {
		t.Fatalf("expected 3 batches, got %d", batches)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 records, got %d", len(got))
	}
	for i, name := range all {
		if got[i] != name {
			t.Fatalf("record %d: expected %s, got %s", i, name, got[i])
		}
	}

	stats := reader.Stats()
	if stats.TotalRecords != 25 || stats.ProcessedRecords != 25 || stats.SuccessRecords != 25 || stats.FailedRecords != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// reader stays exhausted until reset
	if _, err := reader.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after exhaustion")
	}
	reader.Reset()
	batch, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("next after reset: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("expected first batch of 10 after reset, got %d", len(batch))
	}
}

func TestPageReaderEmptyListing(t *testing.T) {
	reader := NewPageReader(NewPaginator(NewMemoryEntityStore()), ListFilter{}, 5)
	if _, err := reader.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF for empty listing")
	}
	if stats := reader.Stats(); stats.TotalRecords != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPageReaderPropagatesErrors(t *testing.T) {
	store := &failingEntityStore{EntityStore: NewMemoryEntityStore(), failCount: true}
	reader := NewPageReader(NewPaginator(store), ListFilter{}, 5)
	_, err := reader.Next(context.Background())
	var fetchErr *PageFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected PageFetchError, got %v", err)
	}
}
