package usecase

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
)

// BalanceTable answers balance-as-of queries for one snapshot. Past
// balances are not stored anywhere; they are derived by replaying the
// transaction log backward from the current balances. A single linear
// pass at construction precomputes suffix sums over the
// chronologically sorted log, so each query is a binary search over
// timestamps plus one lookup instead of a full replay.
type BalanceTable struct {
	snap      *domain.Snapshot
	net       suffixSeries
	byAccount map[string]suffixSeries
}

// suffixSeries holds transaction timestamps in ascending order and
// suffix[i] = sum of amounts from position i to the end of the series.
// suffix has one extra trailing zero so suffix[len(times)] is valid.
type suffixSeries struct {
	times  []time.Time
	suffix []decimal.Decimal
}

// sumAfter returns the cumulative amount of all transactions strictly
// after at. A transaction timestamped exactly at the boundary has
// already occurred by that moment and is excluded.
func (s suffixSeries) sumAfter(at time.Time) decimal.Decimal {
	if len(s.times) == 0 {
		return decimal.Zero
	}
	idx := sort.Search(len(s.times), func(i int) bool {
		return s.times[i].After(at)
	})
	return s.suffix[idx]
}

// NewBalanceTable precomputes the suffix-sum tables for a snapshot.
func NewBalanceTable(snap *domain.Snapshot) *BalanceTable {
	n := len(snap.Transactions)

	netTimes := make([]time.Time, n)
	netSuffix := make([]decimal.Decimal, n+1)
	netSuffix[n] = decimal.Zero
	for i := n - 1; i >= 0; i-- {
		tx := snap.Transactions[i]
		netTimes[i] = tx.Timestamp
		// A transaction's effect on net worth carries the sign of its
		// owning account's type; the account is guaranteed present by
		// snapshot construction.
		account, _ := snap.Account(tx.AccountID)
		netSuffix[i] = netSuffix[i+1].Add(tx.Amount.Mul(account.Sign()))
	}

	byAccount := make(map[string]suffixSeries)
	for accountID, txs := range snap.TransactionsByAccount() {
		m := len(txs)
		times := make([]time.Time, m)
		suffix := make([]decimal.Decimal, m+1)
		suffix[m] = decimal.Zero
		for i := m - 1; i >= 0; i-- {
			times[i] = txs[i].Timestamp
			suffix[i] = suffix[i+1].Add(txs[i].Amount)
		}
		byAccount[accountID] = suffixSeries{times: times, suffix: suffix}
	}

	return &BalanceTable{
		snap:      snap,
		net:       suffixSeries{times: netTimes, suffix: netSuffix},
		byAccount: byAccount,
	}
}

// BalanceAsOf reconstructs a single account's balance at the given
// instant: current balance minus every transaction strictly after it.
func (t *BalanceTable) BalanceAsOf(accountID string, at time.Time) (decimal.Decimal, error) {
	if at.After(t.snap.AsOf) {
		return decimal.Zero, domain.ErrFutureDate
	}
	account, ok := t.snap.Account(accountID)
	if !ok {
		return decimal.Zero, domain.ErrUnknownAccount
	}
	series, ok := t.byAccount[accountID]
	if !ok {
		return account.CurrentBalance, nil
	}
	return account.CurrentBalance.Sub(series.sumAfter(at)), nil
}

// NetWorthAsOf reconstructs aggregate net worth at the given instant,
// applying each account's sign convention.
func (t *BalanceTable) NetWorthAsOf(at time.Time) (decimal.Decimal, error) {
	if at.After(t.snap.AsOf) {
		return decimal.Zero, domain.ErrFutureDate
	}
	return t.snap.NetWorthNow().Sub(t.net.sumAfter(at)), nil
}

// Snapshot returns the snapshot this table was built from.
func (t *BalanceTable) Snapshot() *domain.Snapshot {
	return t.snap
}
