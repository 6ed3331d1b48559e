package policyeval

import (
	"context"
	"io"

	"github.com/oarkflow/policyeval/logger"
)

// StepStats tracks progress of a batch pipeline step
type StepStats struct {
	TotalRecords     int `json:"total_records"`
	ProcessedRecords int `json:"processed_records"`
	SuccessRecords   int `json:"success_records"`
	FailedRecords    int `json:"failed_records"`
}

// PageReader walks an entire ordered listing page by page through the
// paginator, following after cursors until the sequence is exhausted. Used by
// batch pipelines (reindexing, exports) that consume a full collection.
type PageReader struct {
	paginator *Paginator
	filter    ListFilter
	batchSize int
	logger    logger.Logger

	cursor string
	done   bool
	stats  StepStats
}

// PageReaderOption configures a PageReader
type PageReaderOption func(*PageReader)

// WithReaderLogger installs a logger for batch progress diagnostics
func WithReaderLogger(l logger.Logger) PageReaderOption {
	return func(r *PageReader) { r.logger = l }
}

func NewPageReader(p *Paginator, filter ListFilter, batchSize int, opts ...PageReaderOption) *PageReader {
	if batchSize < 1 {
		batchSize = 100
	}
	r := &PageReader{paginator: p, filter: filter, batchSize: batchSize, logger: logger.NewNullLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the next batch of records, or io.EOF once the listing is
// exhausted. Fetch failures propagate as PageFetchError.
func (r *PageReader) Next(ctx context.Context) ([]Record, error) {
	if r.done {
		return nil, io.EOF
	}
	page, err := r.paginator.Paginate(ctx, r.filter, r.batchSize, r.cursor, DirectionForward)
	if err != nil {
		return nil, err
	}
	if r.cursor == "" {
		r.stats.TotalRecords = page.Paging.Total
	}
	r.cursor = page.Paging.After
	if r.cursor == "" {
		r.done = true
	}
	r.stats.ProcessedRecords += len(page.Records)
	r.logger.Debug("read batch",
		"records", len(page.Records),
		"processed", r.stats.ProcessedRecords,
		"total", r.stats.TotalRecords)
	if len(page.Records) == 0 {
		return nil, io.EOF
	}
	return page.Records, nil
}

// UpdateStats records how many of the last batch succeeded and failed
func (r *PageReader) UpdateStats(success, failed int) {
	r.stats.SuccessRecords += success
	r.stats.FailedRecords += failed
}

// Stats returns a snapshot of the reader's progress
func (r *PageReader) Stats() StepStats { return r.stats }

// Reset rewinds the reader to the start of the sequence
func (r *PageReader) Reset() {
	r.cursor = ""
	r.done = false
	r.stats = StepStats{}
}
