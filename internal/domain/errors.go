package domain

import "errors"

var (
	// Query errors
	ErrUnknownAccount = errors.New("account not present in snapshot")
	ErrFutureDate     = errors.New("date is after the snapshot as-of instant")

	// Snapshot construction errors
	ErrFutureTransaction = errors.New("transaction timestamped after the snapshot as-of instant")
	ErrNegativeBalance   = errors.New("account balance must not be negative")
	ErrDuplicateID       = errors.New("duplicate identifier in snapshot")

	// ErrInconsistentSnapshot is advisory: verification found that
	// replaying the transaction log does not reconcile with the
	// supplied balances. Queries still answer from the balances.
	ErrInconsistentSnapshot = errors.New("transaction log does not reconcile with account balances")
)
