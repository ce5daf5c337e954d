package article

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Rebind rewrites '?' placeholders into $1, $2, ... for Postgres. Queries in
// this package never contain a literal '?'.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Repository is the shared SQL plumbing for one table. Concrete record types
// supply the column list and a scan function; the store composes one
// repository per table.
type Repository[T any] struct {
	db      *sql.DB
	dialect Dialect
	table   string
	columns []string
	scan    func(Scanner) (T, error)
}

// NewRepository binds a table and its row scanner.
func NewRepository[T any](db *sql.DB, dialect Dialect, table string, columns []string, scan func(Scanner) (T, error)) *Repository[T] {
	return &Repository[T]{db: db, dialect: dialect, table: table, columns: columns, scan: scan}
}

func (r *Repository[T]) selectFrom() string {
	return "SELECT " + strings.Join(r.columns, ", ") + " FROM " + r.table
}

// One returns the first row matching clause, or sql.ErrNoRows.
func (r *Repository[T]) One(ctx context.Context, clause string, args ...any) (T, error) {
	q := r.dialect.Rebind(r.selectFrom() + " " + clause)
	return r.scan(r.db.QueryRowContext(ctx, q, args...))
}

// List returns every row matching clause in query order.
func (r *Repository[T]) List(ctx context.Context, clause string, args ...any) ([]T, error) {
	q := r.dialect.Rebind(strings.TrimSpace(r.selectFrom() + " " + clause))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", r.table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Insert adds a row with the given column values and returns its new id.
func (r *Repository[T]) Insert(ctx context.Context, columns []string, values ...any) (int, error) {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	q := r.dialect.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		r.table, strings.Join(columns, ", "), marks))
	var id int
	if err := r.db.QueryRowContext(ctx, q, values...).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", r.table, err)
	}
	return id, nil
}

// DeleteByID removes one row and reports whether it existed.
func (r *Repository[T]) DeleteByID(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM "+r.table+" WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("deleting from %s: %w", r.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting from %s: %w", r.table, err)
	}
	return n > 0, nil
}

// Count returns the number of rows in the table.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", r.table, err)
	}
	return n, nil
}
