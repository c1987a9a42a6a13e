package folders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAllocator increments a single-row counter atomically. Concurrent
// callers serialize on the row lock, so allocated numbers are pairwise
// distinct and contiguous.
type PostgresAllocator struct {
	pool *pgxpool.Pool
}

// NewPostgresAllocator creates the database-backed folder allocator.
func NewPostgresAllocator(pool *pgxpool.Pool) *PostgresAllocator {
	return &PostgresAllocator{pool: pool}
}

// Next returns the next folder number.
func (a *PostgresAllocator) Next(ctx context.Context) (int, error) {
	const q = `UPDATE processed_folder_counter SET value = value + 1 WHERE id = 1 RETURNING value`
	var n int
	if err := a.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
