package downloads

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Warehouse serves download statistics from a local database mirror of
// the registry download log, for deployments that cannot or do not want
// to hit the public statistics API.
type Warehouse struct {
	db  *sql.DB
	now func() time.Time
}

// WarehouseOption configures a Warehouse.
type WarehouseOption func(*Warehouse)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) WarehouseOption {
	return func(w *Warehouse) {
		w.now = now
	}
}

// OpenWarehouse opens the statistics database with the given driver
// name and DSN.
func OpenWarehouse(driver, dsn string, opts ...WarehouseOption) (*Warehouse, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	return NewWarehouse(db, opts...), nil
}

// NewWarehouse wraps an existing database handle.
func NewWarehouse(db *sql.DB, opts ...WarehouseOption) *Warehouse {
	w := &Warehouse{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Close closes the database connection.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Fetch counts a package's downloads over two ranges: the last 30 days
// and the trailing year. A package with no rows in the trailing year is
// reported as not found.
func (w *Warehouse) Fetch(ctx context.Context, pkg string) (Stats, error) {
	now := w.now()
	monthCutoff := now.AddDate(0, 0, -30)
	yearCutoff := now.AddDate(-1, 0, 0)

	query := `
	SELECT
		COALESCE(SUM(CASE WHEN downloaded_at >= ? THEN 1 ELSE 0 END), 0),
		COUNT(*)
	FROM file_downloads
	WHERE project = ? AND downloaded_at >= ?
	`

	var stats Stats
	err := w.db.QueryRowContext(ctx, query, monthCutoff, pkg, yearCutoff).Scan(&stats.LastMonth, &stats.Total)
	if err != nil {
		return Stats{}, fmt.Errorf("query downloads for %s: %w", pkg, err)
	}

	if stats.Total == 0 {
		return Stats{}, fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	return stats, nil
}
