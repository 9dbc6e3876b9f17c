package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType determines the sign convention an account contributes
// to net worth. The stored balance is always a magnitude.
type AccountType string

const (
	AccountTypeAsset AccountType = "asset"
	AccountTypeLoan  AccountType = "loan"
)

// Valid reports whether the account type is one of the known kinds.
func (t AccountType) Valid() bool {
	return t == AccountTypeAsset || t == AccountTypeLoan
}

// Account represents an account and its balance as of the snapshot instant.
type Account struct {
	ID             string
	Name           string
	Type           AccountType
	Currency       string
	CurrentBalance decimal.Decimal
}

// Sign returns the multiplier applied to this account's balance and
// transaction amounts when aggregating into net worth: +1 for assets,
// -1 for loans.
func (a *Account) Sign() decimal.Decimal {
	if a.Type == AccountTypeLoan {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// NetWorthContribution returns the signed value this account adds to
// net worth.
func (a *Account) NetWorthContribution() decimal.Decimal {
	return a.CurrentBalance.Mul(a.Sign())
}
