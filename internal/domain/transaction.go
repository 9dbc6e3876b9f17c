package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single signed balance delta against one account.
// Positive amounts increase the owning account's balance, negative
// amounts decrease it, regardless of account type.
type Transaction struct {
	ID        string
	AccountID string
	Timestamp time.Time
	Amount    decimal.Decimal
	Category  string
}
