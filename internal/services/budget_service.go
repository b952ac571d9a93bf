package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/ledger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new budget for an expense category.
func (s *budgetService) CreateBudget(userID string, in BudgetInput) (*models.Budget, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}
	if in.Period == "" {
		in.Period = models.BudgetPeriodMonthly
	}
	if in.Period != models.BudgetPeriodMonthly && in.Period != models.BudgetPeriodYearly {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget period must be monthly or yearly")
	}
	if in.StartDate.IsZero() {
		in.StartDate = ledger.MonthPeriod(time.Now().UTC()).Start
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, apperrors.ErrInvalidPeriod
	}

	// Verify category exists and belongs to user
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", in.CategoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets can only track expense categories")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = category.Name
	}
	budget := &models.Budget{
		UserID:     userID,
		CategoryID: category.ID,
		Name:       name,
		Amount:     in.Amount,
		Period:     in.Period,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		IsActive:   true,
		Category:   category,
	}

	if err := s.db.Omit("Category").Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Order("name").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress calculates spending vs budget for the period containing asOf.
func (s *budgetService) GetBudgetProgress(userID, budgetID string, asOf time.Time) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	period := ledger.MonthPeriod(asOf)
	if budget.Period == models.BudgetPeriodYearly {
		period = ledger.YearPeriod(asOf)
	}

	var txs []models.Transaction
	err = s.db.Where("user_id = ? AND category_id = ? AND type = ? AND date >= ? AND date <= ?",
		userID, budget.CategoryID, models.TransactionTypeExpense, period.Start, period.End).
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entries := make([]ledger.Entry, len(txs))
	for i, tx := range txs {
		entries[i] = ledger.FromTransaction(tx)
	}
	spent := ledger.Summarize(entries, period, nil).TotalExpenses

	remaining := budget.Amount.Sub(spent)
	var percentage float64
	if budget.Amount.IsPositive() {
		percentage, _ = spent.Div(budget.Amount).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		PeriodStart: period.Start.Format(models.DateLayout),
		PeriodEnd:   period.End.Format(models.DateLayout),
		Budgeted:    budget.Amount,
		Spent:       spent,
		Remaining:   remaining,
		Percentage:  percentage,
	}, nil
}
