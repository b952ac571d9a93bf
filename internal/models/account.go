package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCash     AccountType = "cash"
	AccountTypeWallet   AccountType = "wallet"
)

// Account represents a bank or cash account. Balance always equals
// OpeningBalance plus the signed sum of the account's transactions.
type Account struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name           string          `gorm:"not null" json:"name"`
	Type           AccountType     `gorm:"not null" json:"type"`
	BankName       string          `json:"bank_name,omitempty"`
	OpeningBalance decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"opening_balance"`
	Balance        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	Currency       string          `gorm:"not null;default:'BRL'" json:"currency"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
}

// BeforeCreate seeds the running balance from the opening balance.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if err := a.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if a.Balance.IsZero() {
		a.Balance = a.OpeningBalance
	}
	if a.Currency == "" {
		a.Currency = "BRL"
	}
	return nil
}
