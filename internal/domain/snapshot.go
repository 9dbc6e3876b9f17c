package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable, versioned view of all accounts and
// transactions as of a single instant. A new fetch cycle produces a
// new Snapshot with a greater Version token; existing snapshots are
// never patched in place.
type Snapshot struct {
	Version      string
	AsOf         time.Time
	Accounts     []*Account
	Transactions []*Transaction

	accountsByID map[string]*Account
}

// NewSnapshot validates the inputs and returns an immutable snapshot.
// Transactions are sorted by timestamp, ties broken by ID, so replay
// order is deterministic. Malformed input fails here, before any
// derived structure is built:
//   - negative CurrentBalance
//   - transaction referencing an account not in the set
//   - transaction timestamped after asOf
//   - duplicate account or transaction IDs
func NewSnapshot(version string, asOf time.Time, accounts []*Account, transactions []*Transaction) (*Snapshot, error) {
	byID := make(map[string]*Account, len(accounts))
	for _, a := range accounts {
		if _, exists := byID[a.ID]; exists {
			return nil, fmt.Errorf("%w: account %s", ErrDuplicateID, a.ID)
		}
		if !a.Type.Valid() {
			return nil, fmt.Errorf("unknown account type %q for account %s", a.Type, a.ID)
		}
		if a.CurrentBalance.IsNegative() {
			return nil, fmt.Errorf("%w: account %s has balance %s", ErrNegativeBalance, a.ID, a.CurrentBalance)
		}
		if err := ValidateAccountName(a.Name); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		if err := ValidateCurrency(a.Currency); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		byID[a.ID] = a
	}

	seen := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		if _, exists := seen[tx.ID]; exists {
			return nil, fmt.Errorf("%w: transaction %s", ErrDuplicateID, tx.ID)
		}
		seen[tx.ID] = struct{}{}
		if _, ok := byID[tx.AccountID]; !ok {
			return nil, fmt.Errorf("%w: transaction %s references account %s", ErrUnknownAccount, tx.ID, tx.AccountID)
		}
		if err := ValidateCategory(tx.Category); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if tx.Timestamp.After(asOf) {
			return nil, fmt.Errorf("%w: transaction %s at %s, snapshot as of %s",
				ErrFutureTransaction, tx.ID, tx.Timestamp.Format(time.RFC3339), asOf.Format(time.RFC3339))
		}
	}

	sorted := make([]*Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return &Snapshot{
		Version:      version,
		AsOf:         asOf,
		Accounts:     accounts,
		Transactions: sorted,
		accountsByID: byID,
	}, nil
}

// Account looks up an account by ID.
func (s *Snapshot) Account(id string) (*Account, bool) {
	a, ok := s.accountsByID[id]
	return a, ok
}

// NetWorthNow is the aggregate balance at the as-of instant:
// sum of asset balances minus sum of loan balances.
func (s *Snapshot) NetWorthNow() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Accounts {
		total = total.Add(a.NetWorthContribution())
	}
	return total
}

// TransactionsByAccount groups the ordered transaction list per
// account, preserving chronological order within each group.
func (s *Snapshot) TransactionsByAccount() map[string][]*Transaction {
	grouped := make(map[string][]*Transaction, len(s.Accounts))
	for _, tx := range s.Transactions {
		grouped[tx.AccountID] = append(grouped[tx.AccountID], tx)
	}
	return grouped
}
