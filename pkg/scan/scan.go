// Package scan reads a whole collection from a store that truncates every
// response to a fixed row count.
//
// A Scanner requests consecutive pages [p*K, (p+1)*K) until the store returns
// an empty page or a short one (fewer than K rows), which marks the end of the
// data. Asking for a larger range in one request is not a substitute: the
// store caps the response without signalling it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// Sentinel errors.
var (
	// ErrConsumed is yielded when Rows is called on a scanner that already ran.
	ErrConsumed = errors.New("scanner already consumed")
	// ErrInvalidPageSize indicates a non-positive page size.
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrMissingCollection indicates an empty collection name.
	ErrMissingCollection = errors.New("collection name is required")
	// ErrShortPage indicates a short page followed by a non-empty one, which
	// means the store caps responses below the page size.
	ErrShortPage = errors.New("short page before end of data")
)

// Request describes one exhaustive read.
type Request struct {
	// Collection is the table or resource name.
	Collection string

	// Columns is the projection. Empty selects every column.
	Columns []string

	// PageSize is the number of rows requested per page. It must not exceed
	// the store's row cap, otherwise pages come back short and the scan ends early.
	PageSize int

	// Workers is the number of pages fetched concurrently. Values below 2
	// read pages strictly one at a time.
	Workers int
}

func (r Request) validate() error {
	if r.Collection == "" {
		return ErrMissingCollection
	}

	if r.PageSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, r.PageSize)
	}

	return nil
}

// PageError reports a failed page read.
type PageError struct {
	Collection string
	Page       int
	Range      store.Range
	Err        error
}

// Error implements error.
func (e *PageError) Error() string {
	return fmt.Sprintf("scan %s page %d [%d,%d): %v", e.Collection, e.Page, e.Range.Offset, e.Range.End(), e.Err)
}

// Unwrap returns the underlying store error.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Scanner is a forward-only, single-use reader over one collection.
// It is not safe for concurrent use.
type Scanner struct {
	src      store.Reader
	req      Request
	consumed bool
	pages    int
	rows     int
}

// New returns a scanner for req over src. No I/O happens until Rows is ranged over.
func New(src store.Reader, req Request) *Scanner {
	return &Scanner{src: src, req: req}
}

// Pages returns the number of pages consumed, including the final empty one.
func (s *Scanner) Pages() int {
	return s.pages
}

// RowsRead returns the number of rows yielded so far.
func (s *Scanner) RowsRead() int {
	return s.rows
}

// Rows returns the lazy sequence of every row in the collection. A read
// failure is yielded once as the error value and ends the sequence; rows
// already yielded stay yielded. The sequence can be ranged over only once.
func (s *Scanner) Rows(ctx context.Context) iter.Seq2[store.Row, error] {
	return func(yield func(store.Row, error) bool) {
		if s.consumed {
			yield(nil, ErrConsumed)

			return
		}

		s.consumed = true

		err := s.req.validate()
		if err != nil {
			yield(nil, err)

			return
		}

		if s.req.Workers > 1 {
			s.fanOut(ctx, yield)

			return
		}

		s.sequential(ctx, yield)
	}
}

// sequential reads one page at a time until an empty or short page.
func (s *Scanner) sequential(ctx context.Context, yield func(store.Row, error) bool) {
	for page := 0; ; page++ {
		batch, err := s.fetch(ctx, page)
		if err != nil {
			yield(nil, err)

			return
		}

		if !s.emit(batch, yield) {
			return
		}

		if len(batch) < s.req.PageSize {
			return
		}
	}
}

// fetch reads one page and trims anything past the requested window.
func (s *Scanner) fetch(ctx context.Context, page int) ([]store.Row, error) {
	rng := store.PageRange(page, s.req.PageSize)

	err := ctx.Err()
	if err != nil {
		return nil, &PageError{Collection: s.req.Collection, Page: page, Range: rng, Err: err}
	}

	batch, err := s.src.Select(ctx, s.req.Collection, s.req.Columns, rng)
	if err != nil {
		return nil, &PageError{Collection: s.req.Collection, Page: page, Range: rng, Err: err}
	}

	// Rows beyond the window belong to the next page.
	if len(batch) > s.req.PageSize {
		batch = batch[:s.req.PageSize]
	}

	return batch, nil
}

func (s *Scanner) emit(batch []store.Row, yield func(store.Row, error) bool) bool {
	s.pages++

	for _, row := range batch {
		s.rows++

		if !yield(row, nil) {
			return false
		}
	}

	return true
}
