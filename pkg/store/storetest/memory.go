// Package storetest provides an in-memory store.Store for tests. It emulates
// the per-response row cap of the hosted backend and can inject read failures.
package storetest

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// ErrInjected is the failure returned by a Memory configured with FailOffset.
var ErrInjected = errors.New("storetest: injected read failure")

// Memory is a thread-safe in-memory backend.
type Memory struct {
	// RowCap truncates every Select and List response. Zero means unlimited.
	RowCap int

	// FailOffset, when non-negative, makes every Select starting at that
	// offset fail with ErrInjected. Set to -1 (the New default) to disable.
	FailOffset int

	mu          sync.Mutex
	collections map[string][]store.Row
	selects     []store.Range
	counts      int
}

// New returns an empty Memory with failures disabled.
func New() *Memory {
	return &Memory{
		FailOffset:  -1,
		collections: make(map[string][]store.Row),
	}
}

// Put replaces the rows of a collection.
func (m *Memory) Put(collection string, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = slices.Clone(rows)
}

// Append adds rows to a collection.
func (m *Memory) Append(collection string, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = append(m.collections[collection], rows...)
}

// Selects returns the ranges requested so far, in call order.
func (m *Memory) Selects() []store.Range {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.selects)
}

// Counts returns how many Count calls were served.
func (m *Memory) Counts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts
}

// Select implements store.Reader.
func (m *Memory) Select(ctx context.Context, collection string, columns []string, rng store.Range) ([]store.Row, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	err = rng.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.selects = append(m.selects, rng)

	if m.FailOffset >= 0 && rng.Offset == m.FailOffset {
		return nil, ErrInjected
	}

	rows, ok := m.collections[collection]
	if !ok {
		return nil, store.ErrUnknownCollection
	}

	window := m.window(rows, rng)
	out := make([]store.Row, 0, len(window))

	for _, row := range window {
		out = append(out, project(row, columns))
	}

	return out, nil
}

// Count implements store.Reader.
func (m *Memory) Count(ctx context.Context, collection string, filter store.Filter) (int, error) {
	err := ctx.Err()
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts++

	rows, ok := m.collections[collection]
	if !ok {
		return 0, store.ErrUnknownCollection
	}

	return len(matching(rows, filter)), nil
}

// List implements store.Lister. Rows keep insertion order.
func (m *Memory) List(ctx context.Context, collection string, query store.ListQuery) ([]store.Row, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	err = query.Range.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.collections[collection]
	if !ok {
		return nil, store.ErrUnknownCollection
	}

	return slices.Clone(m.window(matching(rows, query.Filter), query.Range)), nil
}

// Ping implements store.Store.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements store.Store.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) window(rows []store.Row, rng store.Range) []store.Row {
	if rng.Offset >= len(rows) || rng.Limit == 0 {
		return nil
	}

	limit := rng.Limit
	if m.RowCap > 0 && limit > m.RowCap {
		limit = m.RowCap
	}

	end := min(rng.Offset+limit, len(rows))

	return rows[rng.Offset:end]
}

func matching(rows []store.Row, filter store.Filter) []store.Row {
	if filter.IsZero() {
		return rows
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]store.Row, 0, len(rows))

	for _, row := range rows {
		if filter.Country != "" && row.String("country") != filter.Country {
			continue
		}

		if filter.Category != "" && row.String("category") != filter.Category {
			continue
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(row.String("name")), search) &&
			!strings.Contains(strings.ToLower(row.String("project_id")), search) {
			continue
		}

		out = append(out, row)
	}

	return out
}

func project(row store.Row, columns []string) store.Row {
	if len(columns) == 0 {
		return maps.Clone(row)
	}

	out := make(store.Row, len(columns))

	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}

	return out
}
