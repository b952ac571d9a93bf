// Package ledger computes period summaries, balance replays and data
// consistency checks over transactions.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/logger"
	"moneta/internal/models"
)

const dateLayout = "2006-01-02"

// Entry is a transaction as read from the store. Amounts may carry a sign
// on legacy rows; ValidateFinancialData reports those.
type Entry struct {
	ID        string
	Type      string
	Amount    decimal.Decimal
	Date      string
	AccountID string
}

// FromTransaction converts a stored transaction.
func FromTransaction(tx models.Transaction) Entry {
	e := Entry{ID: tx.ID, Type: string(tx.Type), Amount: tx.Amount, Date: tx.DateString()}
	if tx.AccountID != nil {
		e.AccountID = *tx.AccountID
	}
	return e
}

// Period is an inclusive range of calendar days.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod parses two "YYYY-MM-DD" bounds.
func NewPeriod(start, end string) (Period, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period start %q", start)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period end %q", end)
	}
	if e.Before(s) {
		return Period{}, fmt.Errorf("period end %s is before start %s", end, start)
	}
	return Period{Start: s, End: e}, nil
}

// MonthPeriod covers the calendar month containing t.
func MonthPeriod(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// YearPeriod covers the calendar year containing t.
func YearPeriod(t time.Time) Period {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)}
}

// Contains compares calendar days only; both bounds are included.
func (p Period) Contains(day time.Time) bool {
	d := civil(day)
	return !d.Before(civil(p.Start)) && !d.After(civil(p.End))
}

// Summary totals are magnitudes. TotalAccountBalance is a snapshot of the
// accounts and does not depend on the period.
type Summary struct {
	TotalIncome         decimal.Decimal `json:"total_income"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	PeriodBalance       decimal.Decimal `json:"period_balance"`
	TotalAccountBalance decimal.Decimal `json:"total_account_balance"`
	TransactionCount    int             `json:"transaction_count"`
}

// Summarize aggregates the entries dated inside period. Entries whose date
// cannot be parsed are skipped with a warning.
func Summarize(entries []Entry, period Period, balances []decimal.Decimal) Summary {
	log := logger.Named("ledger")
	s := Summary{TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero, TotalAccountBalance: decimal.Zero}
	for _, b := range balances {
		s.TotalAccountBalance = s.TotalAccountBalance.Add(b)
	}

	for _, e := range entries {
		day, err := ParseDay(e.Date)
		if err != nil {
			log.Warnw("excluding transaction with unparsable date", "transaction_id", e.ID, "date", e.Date)
			continue
		}
		if !period.Contains(day) {
			continue
		}
		switch models.TransactionType(e.Type) {
		case models.TransactionTypeIncome:
			s.TotalIncome = s.TotalIncome.Add(e.Amount.Abs())
		case models.TransactionTypeExpense:
			s.TotalExpenses = s.TotalExpenses.Add(e.Amount.Abs())
		default:
			continue
		}
		s.TransactionCount++
	}
	s.PeriodBalance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// ParseDay reads the calendar day of "YYYY-MM-DD" or an RFC 3339 timestamp.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse(dateLayout, s[:len(dateLayout)])
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validation lists every violation found; IsValid is true when there are none.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateFinancialData checks all entries regardless of period. Stored
// amounts are positive and direction lives in Type, so a negative amount is
// a leftover of the signed convention and is reported.
func ValidateFinancialData(entries []Entry) Validation {
	v := Validation{Errors: []string{}}
	for i, e := range entries {
		ref := fmt.Sprintf("transaction %s", e.ID)
		if strings.TrimSpace(e.ID) == "" {
			ref = fmt.Sprintf("transaction at index %d", i)
			v.Errors = append(v.Errors, ref+": missing id")
		}
		t := models.TransactionType(e.Type)
		if !t.Valid() {
			v.Errors = append(v.Errors, fmt.Sprintf("%s: invalid type %q, expected income or expense", ref, e.Type))
		}
		if strings.TrimSpace(e.Date) == "" {
			v.Errors = append(v.Errors, ref+": missing date")
		}
		switch {
		case e.Amount.IsZero():
			v.Errors = append(v.Errors, ref+": amount is zero")
		case e.Amount.IsNegative() && t == models.TransactionTypeIncome:
			v.Errors = append(v.Errors, fmt.Sprintf("%s: income with negative amount %s", ref, e.Amount.StringFixed(2)))
		case e.Amount.IsNegative() && t == models.TransactionTypeExpense:
			v.Errors = append(v.Errors, fmt.Sprintf("%s: expense with signed amount %s, expected a positive magnitude", ref, e.Amount.StringFixed(2)))
		}
	}
	v.IsValid = len(v.Errors) == 0
	return v
}

// Delta is the effect of one transaction on an account balance.
func Delta(t models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case models.TransactionTypeIncome:
		return amount.Abs()
	case models.TransactionTypeExpense:
		return amount.Abs().Neg()
	}
	return decimal.Zero
}

// Apply is the incremental balance update used on insert.
func Apply(balance decimal.Decimal, t models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return balance.Add(Delta(t, amount))
}

// Replay recomputes a balance from scratch with the same step as Apply.
func Replay(opening decimal.Decimal, entries []Entry) decimal.Decimal {
	balance := opening
	for _, e := range entries {
		balance = Apply(balance, models.TransactionType(e.Type), e.Amount)
	}
	return balance
}

// Month is one row of a yearly breakdown.
type Month struct {
	Month    int             `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
	Count    int             `json:"count"`
}

// MonthlyBreakdown returns twelve months of totals for year.
func MonthlyBreakdown(entries []Entry, year int) []Month {
	months := make([]Month, 12)
	for i := range months {
		months[i] = Month{Month: i + 1, Income: decimal.Zero, Expenses: decimal.Zero, Balance: decimal.Zero}
	}
	for _, e := range entries {
		day, err := ParseDay(e.Date)
		if err != nil || day.Year() != year {
			continue
		}
		m := &months[day.Month()-1]
		switch models.TransactionType(e.Type) {
		case models.TransactionTypeIncome:
			m.Income = m.Income.Add(e.Amount.Abs())
		case models.TransactionTypeExpense:
			m.Expenses = m.Expenses.Add(e.Amount.Abs())
		default:
			continue
		}
		m.Count++
	}
	for i := range months {
		months[i].Balance = months[i].Income.Sub(months[i].Expenses)
	}
	return months
}
