// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, never on a concrete database.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// The transaction travels in the context passed to fn: repositories called with
// that context take part in it. Nested calls reuse the existing transaction.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, or ctx is cancelled, everything fn wrote is rolled back.
	// If fn succeeds, the transaction is committed.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
