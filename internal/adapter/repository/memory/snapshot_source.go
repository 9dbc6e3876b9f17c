package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
)

// SnapshotSource implements usecase.SnapshotSource over an in-memory
// data set. Used as the demo data source and in tests; a Refresh
// rebuilds the snapshot with a fresh version token and as-of instant
// over the same records.
type SnapshotSource struct {
	mu           sync.Mutex
	accounts     []*domain.Account
	transactions []*domain.Transaction
	snap         *domain.Snapshot
}

// NewSnapshotSource creates a source over the given records. The
// records are validated on the first Latest or Refresh call, not here.
func NewSnapshotSource(accounts []*domain.Account, transactions []*domain.Transaction) *SnapshotSource {
	return &SnapshotSource{
		accounts:     accounts,
		transactions: transactions,
	}
}

// Latest returns the current snapshot, building it on first use.
func (s *SnapshotSource) Latest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap, nil
	}
	return s.rebuild()
}

// Refresh starts a new fetch cycle: same records, new version token.
func (s *SnapshotSource) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild()
}

func (s *SnapshotSource) rebuild() (*domain.Snapshot, error) {
	snap, err := domain.NewSnapshot(ulid.Make().String(), time.Now().UTC(), s.accounts, s.transactions)
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return snap, nil
}

// SeedFixture returns a small, plausible data set for the demo mode:
// two asset accounts and a loan, with a few weeks of activity.
func SeedFixture() ([]*domain.Account, []*domain.Transaction) {
	now := time.Now().UTC()

	accounts := []*domain.Account{
		{
			ID:             ulid.Make().String(),
			Name:           "Everyday Checking",
			Type:           domain.AccountTypeAsset,
			Currency:       "USD",
			CurrentBalance: decimal.NewFromInt(8250),
		},
		{
			ID:             ulid.Make().String(),
			Name:           "Rainy Day Savings",
			Type:           domain.AccountTypeAsset,
			Currency:       "USD",
			CurrentBalance: decimal.NewFromInt(21500),
		},
		{
			ID:             ulid.Make().String(),
			Name:           "Car Loan",
			Type:           domain.AccountTypeLoan,
			Currency:       "USD",
			CurrentBalance: decimal.NewFromInt(11200),
		},
	}
	checking, savings, carLoan := accounts[0], accounts[1], accounts[2]

	type seed struct {
		account  *domain.Account
		daysAgo  int
		amount   int64
		category string
	}
	seeds := []seed{
		{checking, 45, 4200, "salary"},
		{checking, 44, -1350, "rent"},
		{checking, 41, -86, "groceries"},
		{checking, 38, -240, "utilities"},
		{savings, 35, 500, "savings"},
		{checking, 35, -500, "savings"},
		{checking, 30, -62, "dining"},
		{carLoan, 28, -400, "loan payment"},
		{checking, 28, -400, "loan payment"},
		{checking, 15, 4200, "salary"},
		{checking, 14, -1350, "rent"},
		{checking, 11, -118, "groceries"},
		{savings, 7, 500, "savings"},
		{checking, 7, -500, "savings"},
		{checking, 3, -74, "dining"},
		{carLoan, 1, -400, "loan payment"},
		{checking, 1, -400, "loan payment"},
	}

	transactions := make([]*domain.Transaction, 0, len(seeds))
	for _, s := range seeds {
		transactions = append(transactions, &domain.Transaction{
			ID:        ulid.Make().String(),
			AccountID: s.account.ID,
			Timestamp: now.AddDate(0, 0, -s.daysAgo),
			Amount:    decimal.NewFromInt(s.amount),
			Category:  s.category,
		})
	}

	return accounts, transactions
}
