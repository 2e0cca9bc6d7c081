// Package store defines the read primitives the aggregation engine needs from
// a backing data store, plus the project listing used by the HTTP surface.
//
// Backends are expected to behave like a REST data client: a Select may
// silently return fewer rows than requested because the backend caps every
// response at a fixed row count. Callers that need a whole collection must
// page through it (see package scan).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultRowCap is the per-response row limit observed on the hosted backend.
const DefaultRowCap = 1000

// Default collection names.
const (
	DefaultProjectsCollection = "carbon_projects"
	DefaultCreditsCollection  = "carbon_credits"
)

// Sentinel errors shared by all backends.
var (
	// ErrNotConfigured indicates missing endpoint, credentials, or path.
	ErrNotConfigured = errors.New("store is not configured")
	// ErrUnknownCollection indicates the collection does not exist in the backend.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownColumn indicates a projection names a column the collection lacks.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidRange indicates a negative offset or limit.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnsupportedFilter indicates the collection cannot be filtered that way.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Row is one record as returned by the backend, keyed by column name.
type Row map[string]any

// String returns the column value as a string, or "" when absent or null.
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// Range is a half-open window [Offset, Offset+Limit) over a collection.
type Range struct {
	Offset int
	Limit  int
}

// PageRange returns the range of the zero-based page for the given page size.
func PageRange(page, size int) Range {
	return Range{Offset: page * size, Limit: size}
}

// End returns the exclusive upper bound of the range.
func (r Range) End() int {
	return r.Offset + r.Limit
}

// Validate rejects negative offsets and limits.
func (r Range) Validate() error {
	if r.Offset < 0 || r.Limit < 0 {
		return fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidRange, r.Offset, r.Limit)
	}

	return nil
}

// Filter narrows a project listing or count. Zero fields match everything.
type Filter struct {
	// Country matches the country column exactly.
	Country string
	// Category matches the category column exactly.
	Category string
	// Search matches a case-insensitive substring of the project name or id.
	Search string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Country) == "" &&
		strings.TrimSpace(f.Category) == "" &&
		strings.TrimSpace(f.Search) == ""
}

// ListQuery selects one filtered page of a collection with all columns.
type ListQuery struct {
	Filter Filter
	Range  Range
}

// Reader is the pair of primitives the aggregation engine depends on.
type Reader interface {
	// Select returns the rows of collection in rng, projected to columns.
	// It may return fewer rows than rng.Limit, including when more exist.
	Select(ctx context.Context, collection string, columns []string, rng Range) ([]Row, error)

	// Count returns the number of rows in collection matching filter.
	Count(ctx context.Context, collection string, filter Filter) (int, error)
}

// Lister returns filtered pages of a collection for display.
type Lister interface {
	List(ctx context.Context, collection string, query ListQuery) ([]Row, error)
}

// Store is a complete backend: reads, listings, health, and lifecycle.
type Store interface {
	Reader
	Lister

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
