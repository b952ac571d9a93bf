package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/categorize"
	"moneta/internal/importer"
	"moneta/internal/ledger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// AuditServicer records balance-affecting operations.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}

// AccountInput holds the fields of a new account.
type AccountInput struct {
	Name           string
	Type           models.AccountType
	BankName       string
	OpeningBalance decimal.Decimal
	Currency       string
}

// Reconciliation compares the stored balance with a replay of every
// transaction on the account.
type Reconciliation struct {
	AccountID        string          `json:"account_id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	ReplayedBalance  decimal.Decimal `json:"replayed_balance"`
	Difference       decimal.Decimal `json:"difference"`
	InSync           bool            `json:"in_sync"`
	TransactionCount int             `json:"transaction_count"`
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID string, in AccountInput) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	ApplyBalanceDelta(tx *gorm.DB, accountID string, txType models.TransactionType, amount decimal.Decimal) error
	Reconcile(userID, accountID string) (*Reconciliation, error)
}

// CardInput holds the fields of a new card.
type CardInput struct {
	Name        string
	Brand       string
	CreditLimit decimal.Decimal
	ClosingDay  int
	DueDay      int
}

// CardView is a card with its derived limit figures.
type CardView struct {
	models.Card
	OverLimit      bool            `json:"over_limit"`
	AvailableLimit decimal.Decimal `json:"available_limit"`
}

// CardPayment pays down a card, optionally debiting an account.
type CardPayment struct {
	Amount    decimal.Decimal
	AccountID *string
	Date      time.Time
}

// CardServicer defines the contract for credit card business logic.
type CardServicer interface {
	CreateCard(userID string, in CardInput) (*CardView, error)
	GetUserCards(userID string) ([]CardView, error)
	GetCardByID(userID, cardID string) (*CardView, error)
	AddUsedAmount(tx *gorm.DB, cardID string, amount decimal.Decimal) error
	RecordPayment(userID, cardID string, payment CardPayment) (*CardView, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, categoryType *models.CategoryType) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TagServicer defines the contract for tag business logic.
type TagServicer interface {
	CreateTag(userID, name, color string) (*models.Tag, error)
	GetUserTags(userID string) ([]models.Tag, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	AccountID  *string
	CardID     *string
	ParentID   *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	MarkPaid(userID, transactionID string, date time.Time) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// Categorizer is satisfied by *categorize.Engine.
type Categorizer interface {
	Categorize(description string, amount decimal.Decimal, originalType string, date *time.Time) categorize.Result
}

// Parser runs a parse job off the request goroutine; *worker.Pool satisfies it.
type Parser interface {
	Parse(ctx context.Context, format importer.Format, data []byte, onProgress func(importer.Progress)) ([]importer.Row, error)
}

// ImportServicer defines the contract for the import pipeline.
type ImportServicer interface {
	Preview(ctx context.Context, userID string, format importer.Format, data []byte) (*ImportPreview, error)
	Commit(userID string, req ImportCommit) (*ImportResult, error)
	PipelineImport(req PipelineImport) (*ImportResult, error)
}

// PurchaseInput describes a purchase split into installments. The
// idempotency key identifies the purchase across retries.
type PurchaseInput struct {
	IdempotencyKey string
	Description    string
	Type           models.TransactionType
	TotalAmount    decimal.Decimal
	Count          int
	FirstDate      time.Time
	CategoryID     *string
	AccountID      *string
}

// PlanOutcome is a plan together with the installments persisted for it.
type PlanOutcome struct {
	Plan         models.InstallmentPlan `json:"plan"`
	Transactions []models.Transaction   `json:"transactions"`
}

// InstallmentServicer defines the contract for installment purchases.
type InstallmentServicer interface {
	CreateCardPurchase(userID, cardID string, in PurchaseInput) (*PlanOutcome, error)
	CreateAccountPurchase(userID string, in PurchaseInput) (*PlanOutcome, error)
	GetPlan(userID, planID string) (*PlanOutcome, error)
	RetryPlan(userID, planID string) (*PlanOutcome, error)
}

// ReportServicer defines the contract for ledger reports.
type ReportServicer interface {
	Summary(userID string, period ledger.Period) (*ledger.Summary, error)
	Validate(userID string) (*ledger.Validation, error)
	Monthly(userID string, year int) ([]ledger.Month, error)
}

// BudgetInput holds the fields of a new budget.
type BudgetInput struct {
	CategoryID string
	Name       string
	Amount     decimal.Decimal
	Period     models.BudgetPeriod
	StartDate  time.Time
	EndDate    *time.Time
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID    string          `json:"budget_id"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  float64         `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string, asOf time.Time) (*BudgetProgress, error)
}
