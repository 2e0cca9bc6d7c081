package scan_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Sumatoshi-tech/carbonstats/pkg/scan"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/storetest"
)

const (
	testCollection = "carbon_credits"
	testPageSize   = 5
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func syntheticRows(n int) []store.Row {
	rows := make([]store.Row, n)
	for i := range n {
		rows[i] = store.Row{"project_id": fmt.Sprintf("p%d", i), "quantity": int64(i)}
	}

	return rows
}

func newMemory(n, rowCap int) *storetest.Memory {
	mem := storetest.New()
	mem.RowCap = rowCap
	mem.Put(testCollection, syntheticRows(n)...)

	return mem
}

func collect(t *testing.T, sc *scan.Scanner) ([]store.Row, error) {
	t.Helper()

	var rows []store.Row

	for row, err := range sc.Rows(context.Background()) {
		if err != nil {
			return rows, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func TestScanner_Exhaustive(t *testing.T) {
	t.Parallel()

	k := testPageSize

	for _, workers := range []int{1, 3} {
		for _, n := range []int{0, 1, k - 1, k, k + 1, 3 * k} {
			t.Run(fmt.Sprintf("workers=%d/n=%d", workers, n), func(t *testing.T) {
				t.Parallel()

				mem := newMemory(n, k)
				sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: k, Workers: workers})

				rows, err := collect(t, sc)
				require.NoError(t, err)
				require.Len(t, rows, n)
				assert.Equal(t, n, sc.RowsRead())

				seen := make(map[string]bool, n)
				for _, row := range rows {
					id := row.String("project_id")
					assert.False(t, seen[id], "row %s yielded twice", id)
					seen[id] = true
				}
			})
		}
	}
}

func TestScanner_EmptyPageEndsScan(t *testing.T) {
	t.Parallel()

	// Exactly two full pages: the third request must come back empty and stop the scan.
	mem := newMemory(2*testPageSize, testPageSize)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	assert.Len(t, rows, 2*testPageSize)

	assert.Equal(t, []store.Range{
		{Offset: 0, Limit: testPageSize},
		{Offset: testPageSize, Limit: testPageSize},
		{Offset: 2 * testPageSize, Limit: testPageSize},
	}, mem.Selects())
	assert.Equal(t, 3, sc.Pages())
}

func TestScanner_ShortPageEndsScan(t *testing.T) {
	t.Parallel()

	mem := newMemory(testPageSize+2, testPageSize)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	assert.Len(t, rows, testPageSize+2)
	assert.Len(t, mem.Selects(), 2)
}

func TestScanner_LargeRangeIsTruncatedWithoutPaging(t *testing.T) {
	t.Parallel()

	// A single read asking for everything only sees the row cap.
	mem := newMemory(25, 10)

	rows, err := mem.Select(context.Background(), testCollection, nil, store.Range{Offset: 0, Limit: 25})
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: 10})

	all, err := collect(t, sc)
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestScanner_ProjectsColumns(t *testing.T) {
	t.Parallel()

	mem := newMemory(3, 0)
	sc := scan.New(mem, scan.Request{Collection: testCollection, Columns: []string{"project_id"}, PageSize: 2})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.Contains(t, row, "project_id")
		assert.NotContains(t, row, "quantity")
	}
}

func TestScanner_OversizedPageIsTrimmed(t *testing.T) {
	t.Parallel()

	sc := scan.New(oversizedReader{total: 7}, scan.Request{Collection: testCollection, PageSize: 3})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestScanner_ErrorAbortsAfterPartialRows(t *testing.T) {
	t.Parallel()

	mem := newMemory(3*testPageSize, testPageSize)
	mem.FailOffset = testPageSize

	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize})

	rows, err := collect(t, sc)
	require.ErrorIs(t, err, storetest.ErrInjected)
	assert.Len(t, rows, testPageSize, "first page is yielded before the failure")

	var pageErr *scan.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 1, pageErr.Page)
	assert.Equal(t, testCollection, pageErr.Collection)
	assert.Equal(t, testPageSize, pageErr.Range.Offset)
}

func TestScanner_FanOutErrorAborts(t *testing.T) {
	t.Parallel()

	mem := newMemory(4*testPageSize, testPageSize)
	mem.FailOffset = 2 * testPageSize

	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize, Workers: 4})

	_, err := collect(t, sc)
	require.ErrorIs(t, err, storetest.ErrInjected)
}

func TestScanner_SingleUse(t *testing.T) {
	t.Parallel()

	mem := newMemory(3, 0)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: 2})

	_, err := collect(t, sc)
	require.NoError(t, err)

	_, err = collect(t, sc)
	require.ErrorIs(t, err, scan.ErrConsumed)
}

func TestScanner_InvalidRequest(t *testing.T) {
	t.Parallel()

	mem := newMemory(1, 0)

	_, err := collect(t, scan.New(mem, scan.Request{Collection: testCollection}))
	require.ErrorIs(t, err, scan.ErrInvalidPageSize)

	_, err = collect(t, scan.New(mem, scan.Request{PageSize: 10}))
	require.ErrorIs(t, err, scan.ErrMissingCollection)

	assert.Empty(t, mem.Selects())
}

func TestScanner_BreakStopsReading(t *testing.T) {
	t.Parallel()

	mem := newMemory(3*testPageSize, testPageSize)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize})

	taken := 0

	for _, err := range sc.Rows(context.Background()) {
		require.NoError(t, err)

		taken++
		if taken == 2 {
			break
		}
	}

	assert.Len(t, mem.Selects(), 1)
}

func TestScanner_CanceledContext(t *testing.T) {
	t.Parallel()

	mem := newMemory(10, 0)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error

	for _, err := range sc.Rows(ctx) {
		gotErr = err
	}

	require.ErrorIs(t, gotErr, context.Canceled)
	assert.Empty(t, mem.Selects())
}

func TestScanner_RowCapBelowPageSize(t *testing.T) {
	t.Parallel()

	// Sequential reads cannot tell a capped page from the last page.
	mem := newMemory(12, 3)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// Concurrent windows see the non-empty page after the short one and fail.
	mem = newMemory(12, 3)
	sc = scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize, Workers: 3})

	_, err = collect(t, sc)
	require.ErrorIs(t, err, scan.ErrShortPage)
}

func TestScanner_FanOutKeepsPageOrder(t *testing.T) {
	t.Parallel()

	n := 4*testPageSize + 1
	mem := newMemory(n, testPageSize)
	sc := scan.New(mem, scan.Request{Collection: testCollection, PageSize: testPageSize, Workers: 2})

	rows, err := collect(t, sc)
	require.NoError(t, err)
	require.Len(t, rows, n)

	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("p%d", i), row.String("project_id"))
	}
}

// oversizedReader ignores the requested limit and returns up to twice as many rows.
type oversizedReader struct {
	total int
}

func (o oversizedReader) Select(_ context.Context, _ string, _ []string, rng store.Range) ([]store.Row, error) {
	rows := syntheticRows(o.total)
	if rng.Offset >= len(rows) {
		return nil, nil
	}

	end := min(rng.Offset+2*rng.Limit, len(rows))

	return rows[rng.Offset:end], nil
}

func (o oversizedReader) Count(context.Context, string, store.Filter) (int, error) {
	return o.total, nil
}
