package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/ledger"
	"moneta/internal/models"
)

// reportService computes ledger reports over the user's transactions.
// Totals are summed in decimal rather than in SQL so that every driver
// yields exact cents.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

func (s *reportService) entries(q *gorm.DB) ([]ledger.Entry, error) {
	var txs []models.Transaction
	if err := q.Order("date").Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	entries := make([]ledger.Entry, len(txs))
	for i, tx := range txs {
		entries[i] = ledger.FromTransaction(tx)
	}
	return entries, nil
}

// Summary totals income and expenses inside period and snapshots the
// balance of every active account.
func (s *reportService) Summary(userID string, period ledger.Period) (*ledger.Summary, error) {
	if period.End.Before(period.Start) {
		return nil, apperrors.ErrInvalidPeriod
	}
	entries, err := s.entries(s.db.Where("user_id = ? AND date >= ? AND date <= ?", userID, period.Start, period.End))
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	balances := make([]decimal.Decimal, len(accounts))
	for i, a := range accounts {
		balances[i] = a.Balance
	}

	summary := ledger.Summarize(entries, period, balances)
	return &summary, nil
}

// Validate checks every stored transaction of the user.
func (s *reportService) Validate(userID string) (*ledger.Validation, error) {
	entries, err := s.entries(s.db.Where("user_id = ?", userID))
	if err != nil {
		return nil, err
	}
	v := ledger.ValidateFinancialData(entries)
	return &v, nil
}

// Monthly breaks one calendar year down by month.
func (s *reportService) Monthly(userID string, year int) ([]ledger.Month, error) {
	if year < 1900 || year > 9999 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "year is out of range")
	}
	period := ledger.YearPeriod(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	entries, err := s.entries(s.db.Where("user_id = ? AND date >= ? AND date <= ?", userID, period.Start, period.End))
	if err != nil {
		return nil, err
	}
	return ledger.MonthlyBreakdown(entries, year), nil
}
