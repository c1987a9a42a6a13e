// Package folders allocates the sequential archival folder numbers shared by
// all tracks of one take. The number is the system's one piece of global
// mutable state with a real correctness requirement: it must come from a
// single atomic increment, never from a derived count query.
package folders

import (
	"context"
	"fmt"
)

// Allocator hands out the next archival folder number.
type Allocator interface {
	Next(ctx context.Context) (int, error)
}

// Format renders a folder number as the canonical zero-padded identifier,
// e.g. 7 -> "0007".
func Format(n int) string {
	return fmt.Sprintf("%04d", n)
}
