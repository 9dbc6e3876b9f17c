package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
	"github.com/iho/ledgercal/internal/infrastructure/metrics"
)

// SnapshotSource implements usecase.SnapshotSource against PostgreSQL.
// Each fetch cycle loads the full account set and ordered transaction
// log, stamps a fresh ULID version token and as-of instant, and
// validates the result through domain.NewSnapshot. Between fetch
// cycles Latest serves the cached snapshot, so derived structures stay
// valid until the next Refresh.
type SnapshotSource struct {
	pool    *pgxpool.Pool
	retrier *Retrier
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	snap *domain.Snapshot
}

// NewSnapshotSource creates a new SnapshotSource. Metrics may be nil.
func NewSnapshotSource(pool *pgxpool.Pool, logger zerolog.Logger, m *metrics.Metrics) *SnapshotSource {
	return &SnapshotSource{
		pool:    pool,
		retrier: NewRetrier(),
		logger:  logger,
		metrics: m,
	}
}

// Latest returns the snapshot from the most recent fetch cycle,
// fetching on first use.
func (s *SnapshotSource) Latest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap, nil
	}
	return s.fetch(ctx)
}

// Refresh starts a new fetch cycle.
func (s *SnapshotSource) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch(ctx)
}

func (s *SnapshotSource) fetch(ctx context.Context) (*domain.Snapshot, error) {
	asOf := time.Now().UTC()

	var (
		accounts     []*domain.Account
		transactions []*domain.Transaction
	)
	err := s.retrier.Retry(ctx, func() error {
		var err error
		accounts, err = s.loadAccounts(ctx)
		if err != nil {
			return err
		}
		transactions, err = s.loadTransactions(ctx, asOf)
		return err
	})
	if err != nil {
		s.countLoad("error")
		return nil, fmt.Errorf("fetching ledger snapshot: %w", err)
	}

	snap, err := domain.NewSnapshot(ulid.Make().String(), asOf, accounts, transactions)
	if err != nil {
		s.countLoad("invalid")
		return nil, fmt.Errorf("building ledger snapshot: %w", err)
	}

	s.countLoad("ok")
	s.logger.Info().
		Str("version", snap.Version).
		Int("accounts", len(accounts)).
		Int("transactions", len(transactions)).
		Msg("fetched ledger snapshot")

	s.snap = snap
	return snap, nil
}

func (s *SnapshotSource) loadAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, currency, current_balance
		FROM accounts
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var (
			account domain.Account
			balance pgtype.Numeric
		)
		if err := rows.Scan(&account.ID, &account.Name, (*string)(&account.Type), &account.Currency, &balance); err != nil {
			return nil, err
		}
		account.CurrentBalance = numericToDecimal(balance)
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}

func (s *SnapshotSource) loadTransactions(ctx context.Context, asOf time.Time) ([]*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, amount, category, occurred_at
		FROM transactions
		WHERE occurred_at <= $1
		ORDER BY occurred_at, id`, timeToPgTimestamptz(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var (
			tx         domain.Transaction
			amount     pgtype.Numeric
			occurredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &amount, &tx.Category, &occurredAt); err != nil {
			return nil, err
		}
		tx.Amount = numericToDecimal(amount)
		tx.Timestamp = occurredAt.Time
		transactions = append(transactions, &tx)
	}
	return transactions, rows.Err()
}

func (s *SnapshotSource) countLoad(status string) {
	if s.metrics != nil {
		s.metrics.SnapshotLoads.WithLabelValues(status).Inc()
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
