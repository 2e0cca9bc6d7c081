// Package sqlite is a local store backed by an embedded SQLite database.
//
// It reproduces the hosted backend's behavior that matters to the engine:
// every response is capped at MaxRows regardless of the requested range.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver.

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/sqlite/migrations"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("sqlite store is closed")

const (
	columnProjectID = "project_id"
	columnName      = "name"
	columnCountry   = "country"
	columnCategory  = "category"
)

// Options configures Open.
type Options struct {
	// Path is the database file. It is created when missing.
	Path string

	// MaxRows caps every Select and List response. Zero disables the cap.
	MaxRows int
}

// Store implements store.Store over SQLite.
type Store struct {
	db      *sql.DB
	maxRows int

	mu      sync.Mutex
	columns map[string][]string
}

var _ store.Store = (*Store)(nil)

// Open opens the database at opts.Path and applies the embedded migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", store.ErrNotConfigured)
	}

	if opts.MaxRows < 0 {
		return nil, fmt.Errorf("%w: max rows %d", store.ErrNotConfigured, opts.MaxRows)
	}

	dsn := "file:" + filepath.Clean(opts.Path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("ping sqlite db: %w", err), db.Close())
	}

	err = applyMigrations(ctx, db, migrations.FS)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("run migrations: %w", err), db.Close())
	}

	return &Store{db: db, maxRows: opts.MaxRows, columns: make(map[string][]string)}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}

	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	return nil
}

// Select implements store.Reader. Rows come back in insertion order and
// never more than MaxRows of them.
func (s *Store) Select(ctx context.Context, collection string, columns []string, rng store.Range) ([]store.Row, error) {
	err := rng.Validate()
	if err != nil {
		return nil, err
	}

	projection, err := s.projection(ctx, collection, columns)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + projection + ` FROM ` + quote(collection) + ` ORDER BY rowid LIMIT ? OFFSET ?`

	return s.query(ctx, query, s.capped(rng.Limit), rng.Offset)
}

// Count implements store.Reader.
func (s *Store) Count(ctx context.Context, collection string, filter store.Filter) (int, error) {
	where, args, err := s.where(ctx, collection, filter)
	if err != nil {
		return 0, err
	}

	var n int

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quote(collection)+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}

	return n, nil
}

// List implements store.Lister. Rows are ordered by project_id.
func (s *Store) List(ctx context.Context, collection string, q store.ListQuery) ([]store.Row, error) {
	err := q.Range.Validate()
	if err != nil {
		return nil, err
	}

	where, args, err := s.where(ctx, collection, q.Filter)
	if err != nil {
		return nil, err
	}

	order := "rowid"

	known, err := s.tableColumns(ctx, collection)
	if err != nil {
		return nil, err
	}

	if slices.Contains(known, columnProjectID) {
		order = quote(columnProjectID)
	}

	query := `SELECT * FROM ` + quote(collection) + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, s.capped(q.Range.Limit), q.Range.Offset)

	return s.query(ctx, query, args...)
}

func (s *Store) capped(limit int) int {
	if s.maxRows > 0 && limit > s.maxRows {
		return s.maxRows
	}

	return limit
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []store.Row

	values := make([]any, len(names))
	pointers := make([]any, len(names))

	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		err = rows.Scan(pointers...)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(store.Row, len(names))

		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)

				continue
			}

			row[name] = values[i]
		}

		out = append(out, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

// projection validates columns against the table and quotes them.
func (s *Store) projection(ctx context.Context, collection string, columns []string) (string, error) {
	known, err := s.tableColumns(ctx, collection)
	if err != nil {
		return "", err
	}

	if len(columns) == 0 {
		return "*", nil
	}

	quoted := make([]string, 0, len(columns))

	for _, col := range columns {
		if !slices.Contains(known, col) {
			return "", fmt.Errorf("%w: %s.%s", store.ErrUnknownColumn, collection, col)
		}

		quoted = append(quoted, quote(col))
	}

	return strings.Join(quoted, ", "), nil
}

func (s *Store) where(ctx context.Context, collection string, filter store.Filter) (string, []any, error) {
	known, err := s.tableColumns(ctx, collection)
	if err != nil {
		return "", nil, err
	}

	var (
		clauses []string
		args    []any
	)

	need := func(cols ...string) error {
		for _, col := range cols {
			if !slices.Contains(known, col) {
				return fmt.Errorf("%w: %s has no %s column", store.ErrUnsupportedFilter, collection, col)
			}
		}

		return nil
	}

	if country := strings.TrimSpace(filter.Country); country != "" {
		err = need(columnCountry)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, quote(columnCountry)+` = ?`)
		args = append(args, country)
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		err = need(columnCategory)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, quote(columnCategory)+` = ?`)
		args = append(args, category)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		err = need(columnName, columnProjectID)
		if err != nil {
			return "", nil, err
		}

		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses = append(clauses, `(LOWER(`+quote(columnName)+`) LIKE ? ESCAPE '\' OR LOWER(`+quote(columnProjectID)+`) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}

	return ` WHERE ` + strings.Join(clauses, ` AND `), args, nil
}

// tableColumns returns the columns of a table, caching the answer.
// Unknown tables yield store.ErrUnknownCollection.
func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}

	s.mu.Lock()
	cached, ok := s.columns[table]
	s.mu.Unlock()

	if ok {
		return cached, nil
	}

	var kind string

	err := s.db.QueryRowContext(ctx, `SELECT type FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, table)
	}

	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name string

		err = rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}

		columns = append(columns, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}

	s.mu.Lock()
	s.columns[table] = columns
	s.mu.Unlock()

	return columns, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
