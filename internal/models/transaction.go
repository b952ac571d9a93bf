package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// DateLayout is the wire and storage format of transaction dates.
const DateLayout = "2006-01-02"

// Transaction is the canonical ledger entry. Amount is always positive; the
// sign lives in Type. Installment children point at the first installment
// through ParentTransactionID.
type Transaction struct {
	Base
	UserID              string          `gorm:"type:uuid;not null;index;uniqueIndex:uq_transactions_fingerprint" json:"user_id"`
	Type                TransactionType `gorm:"not null" json:"type"`
	Amount              decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description         string          `gorm:"not null" json:"description"`
	Date                time.Time       `gorm:"type:date;not null;index" json:"-"`
	CategoryID          *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	AccountID           *string         `gorm:"type:uuid;index" json:"account_id,omitempty"`
	CardID              *string         `gorm:"type:uuid;index" json:"card_id,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	InstallmentsCount   int             `gorm:"not null;default:1" json:"installments_count"`
	InstallmentNumber   int             `gorm:"not null;default:1" json:"installment_number"`
	ParentTransactionID *string         `gorm:"type:uuid;index" json:"parent_transaction_id"`
	Fingerprint         *string         `gorm:"size:64;uniqueIndex:uq_transactions_fingerprint" json:"-"`

	Tags []Tag `gorm:"-" json:"tags"`
}

// DateString renders the civil date of the transaction.
func (t *Transaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// SignedAmount returns the amount with the sign implied by Type.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// MarshalJSON renders Date as a civil "YYYY-MM-DD" string and Tags as an
// empty list rather than null.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	tags := t.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
		Tags []Tag  `json:"tags"`
	}{alias: alias(t), Date: t.DateString(), Tags: tags})
}
