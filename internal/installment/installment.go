// Package installment splits a purchase into monthly installments.
package installment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

// MaxCount bounds the number of installments for one purchase.
const MaxCount = 120

var (
	ErrInvalidCount   = errors.New("installment count must be between 1 and 120")
	ErrInvalidAmount  = errors.New("installment total must be positive")
	ErrAmountTooSmall = errors.New("installment total is too small to split into cents")
)

// Purchase describes what to split.
type Purchase struct {
	Description string
	Total       decimal.Decimal
	Count       int
	FirstDate   time.Time
	Type        models.TransactionType
	CategoryID  *string
	CardID      *string
	AccountID   *string
}

// Draft is one installment ready to be persisted. Number is 1-based.
type Draft struct {
	Number      int
	Count       int
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	IsParent    bool
}

// Expand divides Total evenly across Count monthly installments. Each amount
// is Total/Count rounded to cents; the last installment is not adjusted for
// rounding. Installment i falls i months after FirstDate with the day clamped
// to the end of shorter months, so Jan 31 is followed by Feb 28 and Mar 31.
func Expand(p Purchase) ([]Draft, error) {
	if p.Count < 1 || p.Count > MaxCount {
		return nil, ErrInvalidCount
	}
	if !p.Total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	amount := p.Total.DivRound(decimal.NewFromInt(int64(p.Count)), 2)
	if !amount.IsPositive() {
		return nil, ErrAmountTooSmall
	}
	first := civilDate(p.FirstDate)

	drafts := make([]Draft, p.Count)
	for i := range drafts {
		drafts[i] = Draft{
			Number:      i + 1,
			Count:       p.Count,
			Description: Describe(p.Description, i+1, p.Count),
			Amount:      amount,
			Date:        AddMonths(first, i),
			IsParent:    i == 0,
		}
	}
	return drafts, nil
}

// Describe renders the description of installment n of count.
func Describe(description string, n, count int) string {
	if count <= 1 {
		return description
	}
	return fmt.Sprintf("%s (%d/%d)", description, n, count)
}

// AddMonths moves t forward by months, keeping the day of month of t when
// the target month has it and clamping to the month's last day otherwise.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := target.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
