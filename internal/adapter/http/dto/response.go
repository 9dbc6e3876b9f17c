package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
	"github.com/iho/ledgercal/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Currency       string          `json:"currency"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           string(a.Type),
		Currency:       a.Currency,
		CurrentBalance: a.CurrentBalance,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(tx *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        tx.ID,
		AccountID: tx.AccountID,
		Timestamp: tx.Timestamp,
		Amount:    tx.Amount,
		Category:  tx.Category,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, tx := range transactions {
		result[i] = TransactionFromDomain(tx)
	}
	return result
}

// BalanceResponse represents a reconstructed balance in API responses.
type BalanceResponse struct {
	AccountID string          `json:"account_id,omitempty"`
	At        time.Time       `json:"at"`
	Balance   decimal.Decimal `json:"balance"`
	Version   string          `json:"snapshot_version"`
}

// DayBucketResponse represents one calendar day in API responses.
type DayBucketResponse struct {
	Date         string                 `json:"date"`
	Transactions []*TransactionResponse `json:"transactions"`
	NetDelta     decimal.Decimal        `json:"net_delta"`
}

// DayBucketFromUseCase converts a day bucket to response.
func DayBucketFromUseCase(bucket *usecase.DayBucket) *DayBucketResponse {
	return &DayBucketResponse{
		Date:         bucket.Date.Format("2006-01-02"),
		Transactions: TransactionsFromDomain(bucket.Transactions),
		NetDelta:     bucket.NetDelta,
	}
}

// MonthSummaryResponse represents a month summary in API responses.
type MonthSummaryResponse struct {
	Month             string          `json:"month"`
	Income            decimal.Decimal `json:"income"`
	Outflow           decimal.Decimal `json:"outflow"`
	TransactionCount  int             `json:"transaction_count"`
	EndOfMonthBalance decimal.Decimal `json:"end_of_month_balance"`
}

// MonthSummaryFromUseCase converts a month summary to response.
func MonthSummaryFromUseCase(summary *usecase.MonthSummary) *MonthSummaryResponse {
	return &MonthSummaryResponse{
		Month:             time.Date(summary.Year, summary.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Income:            summary.Income,
		Outflow:           summary.Outflow,
		TransactionCount:  summary.TransactionCount,
		EndOfMonthBalance: summary.EndOfMonthBalance,
	}
}

// SnapshotResponse describes the served snapshot version.
type SnapshotResponse struct {
	Version      string    `json:"version"`
	AsOf         time.Time `json:"as_of"`
	Accounts     int       `json:"accounts"`
	Transactions int       `json:"transactions"`
}

// SnapshotFromDomain converts a snapshot to response.
func SnapshotFromDomain(snap *domain.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Version:      snap.Version,
		AsOf:         snap.AsOf,
		Accounts:     len(snap.Accounts),
		Transactions: len(snap.Transactions),
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
