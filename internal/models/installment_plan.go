package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentPlanStatus tracks the two-phase insert of an installment purchase.
type InstallmentPlanStatus string

const (
	InstallmentPlanPending             InstallmentPlanStatus = "pending"
	InstallmentPlanCompleted           InstallmentPlanStatus = "completed"
	InstallmentPlanCompensated         InstallmentPlanStatus = "compensated"
	InstallmentPlanNeedsReconciliation InstallmentPlanStatus = "needs_reconciliation"
)

// InstallmentPlan records one purchase split into Count installments. The
// idempotency key makes a retried purchase resume the same plan instead of
// drawing the card a second time.
type InstallmentPlan struct {
	Base
	UserID              string                `gorm:"type:uuid;not null;uniqueIndex:uq_installment_plans_key" json:"user_id"`
	IdempotencyKey      string                `gorm:"not null;uniqueIndex:uq_installment_plans_key" json:"idempotency_key"`
	CardID              *string               `gorm:"type:uuid" json:"card_id,omitempty"`
	AccountID           *string               `gorm:"type:uuid" json:"account_id,omitempty"`
	CategoryID          *string               `gorm:"type:uuid" json:"category_id,omitempty"`
	ParentTransactionID *string               `gorm:"type:uuid" json:"parent_transaction_id,omitempty"`
	Type                TransactionType       `gorm:"not null" json:"type"`
	Description         string                `gorm:"not null" json:"description"`
	TotalAmount         decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Count               int                   `gorm:"not null" json:"count"`
	FirstDate           time.Time             `gorm:"type:date;not null" json:"first_date"`
	Status              InstallmentPlanStatus `gorm:"not null" json:"status"`
	LastError           string                `json:"last_error,omitempty"`
}
