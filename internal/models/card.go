package models

import "github.com/shopspring/decimal"

// Card is a credit card. UsedAmount is never negative but may exceed
// CreditLimit; over-limit cards are flagged, not rejected.
type Card struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string          `gorm:"not null" json:"name"`
	Brand       string          `json:"brand,omitempty"`
	CreditLimit decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"credit_limit"`
	UsedAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"used_amount"`
	ClosingDay  int             `gorm:"not null;default:1" json:"closing_day"`
	DueDay      int             `gorm:"not null;default:10" json:"due_day"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
}

// OverLimit reports whether the drawn amount is above the credit limit.
func (c *Card) OverLimit() bool {
	return c.CreditLimit.IsPositive() && c.UsedAmount.GreaterThan(c.CreditLimit)
}

// AvailableLimit is the remaining limit, negative when over limit.
func (c *Card) AvailableLimit() decimal.Decimal {
	return c.CreditLimit.Sub(c.UsedAmount)
}
