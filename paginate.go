package policyeval

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/oarkflow/policyeval/logger"
)

// Direction selects which way a listing request pages
type Direction string

const (
	DirectionForward  Direction = "forward"  // page strictly after the cursor
	DirectionBackward Direction = "backward" // page strictly before the cursor
)

// EncodeCursor turns an ordering key into an opaque URL-safe cursor
func EncodeCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor recovers the ordering key from a cursor
func DecodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("decode cursor %q: %w", cursor, err)
	}
	return string(b), nil
}

// Paging carries the adjacent-page cursors and the filtered total
type Paging struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Total  int    `json:"total"`
}

// ResultList is one bounded page of an ordered listing
type ResultList struct {
	Records []Record `json:"records"`
	Paging  Paging   `json:"paging"`
}

// Paginator turns a (filter, limit, cursor, direction) request into a bounded
// page plus cursors, against an EntityStore that answers keyset queries.
type Paginator struct {
	store  EntityStore
	logger logger.Logger
}

// PaginatorOption configures a Paginator
type PaginatorOption func(*Paginator)

// WithPaginatorLogger installs a logger for fetch diagnostics
func WithPaginatorLogger(l logger.Logger) PaginatorOption {
	return func(p *Paginator) { p.logger = l }
}

func NewPaginator(store EntityStore, opts ...PaginatorOption) *Paginator {
	p := &Paginator{store: store, logger: logger.NewNullLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paginate fetches one page. An empty cursor with DirectionForward starts at
// the beginning of the sequence; an empty cursor with DirectionBackward is
// invalid. Store failures surface as PageFetchError, never as an empty page.
func (p *Paginator) Paginate(ctx context.Context, filter ListFilter, limit int, cursor string, dir Direction) (*ResultList, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	switch dir {
	case DirectionForward, "":
		return p.pageAfter(ctx, filter, limit, cursor)
	case DirectionBackward:
		return p.pageBefore(ctx, filter, limit, cursor)
	default:
		return nil, fmt.Errorf("unknown pagination direction %q", dir)
	}
}

func (p *Paginator) pageAfter(ctx context.Context, filter ListFilter, limit int, cursor string) (*ResultList, error) {
	afterKey := ""
	if cursor != "" {
		key, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		afterKey = key
	}
	total, err := p.store.ListCount(ctx, filter)
	if err != nil {
		p.logger.Error("page count failed", "error", err.Error())
		return nil, &PageFetchError{Op: "count", Err: err}
	}
	rows, err := p.store.ListAfter(ctx, filter, limit+1, afterKey)
	if err != nil {
		p.logger.Error("page fetch failed", "direction", "forward", "error", err.Error())
		return nil, &PageFetchError{Op: "list-after", Err: err}
	}

	paging := Paging{Total: total}
	// the first page never needs a before cursor back to nothing
	if cursor != "" && len(rows) > 0 {
		paging.Before = EncodeCursor(rows[0].Name)
	}
	if len(rows) > limit {
		rows = rows[:limit]
		paging.After = EncodeCursor(rows[limit-1].Name)
	}
	return &ResultList{Records: rows, Paging: paging}, nil
}

func (p *Paginator) pageBefore(ctx context.Context, filter ListFilter, limit int, cursor string) (*ResultList, error) {
	if cursor == "" {
		return nil, fmt.Errorf("before cursor is required for backward pagination")
	}
	beforeKey, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	total, err := p.store.ListCount(ctx, filter)
	if err != nil {
		p.logger.Error("page count failed", "error", err.Error())
		return nil, &PageFetchError{Op: "count", Err: err}
	}
	rows, err := p.store.ListBefore(ctx, filter, limit+1, beforeKey)
	if err != nil {
		p.logger.Error("page fetch failed", "direction", "backward", "error", err.Error())
		return nil, &PageFetchError{Op: "list-before", Err: err}
	}

	paging := Paging{Total: total}
	hasPrevious := len(rows) > limit
	if hasPrevious {
		rows = rows[:limit]
	}
	// rows arrive descending; restore ascending order for display
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if len(rows) > 0 {
		if hasPrevious {
			paging.Before = EncodeCursor(rows[0].Name)
		}
		// the page the caller navigated back from always exists
		paging.After = EncodeCursor(rows[len(rows)-1].Name)
	}
	return &ResultList{Records: rows, Paging: paging}, nil
}
