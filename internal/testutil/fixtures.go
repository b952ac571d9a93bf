package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/models"
)

// counter keeps fixture names unique within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Day returns midnight UTC of a "YYYY-MM-DD" date.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("bad fixture date %q: %v", s, err)
	}
	return d
}

// Money parses a decimal literal.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: fmt.Sprintf("user%d@test.com", nextID())}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a checking account with the given opening balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string, opening string) *models.Account {
	t.Helper()
	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Conta %d", nextID()),
		Type:           models.AccountTypeChecking,
		OpeningBalance: Money(opening),
		Currency:       "BRL",
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCard creates a card with the given limit and nothing drawn.
func CreateTestCard(t *testing.T, db *gorm.DB, userID string, limit string) *models.Card {
	t.Helper()
	card := &models.Card{
		UserID:      userID,
		Name:        fmt.Sprintf("Cartão %d", nextID()),
		Brand:       "visa",
		CreditLimit: Money(limit),
		UsedAmount:  decimal.Zero,
		ClosingDay:  5,
		DueDay:      12,
		IsActive:    true,
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test card: %v", err)
	}
	return card
}

// CreateTestCategory creates a category with the given name and type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID, name string, categoryType models.CategoryType) *models.Category {
	t.Helper()
	category := &models.Category{
		UserID: userID,
		Name:   name,
		Type:   categoryType,
		Color:  "#22C55E",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTag creates an active tag.
func CreateTestTag(t *testing.T, db *gorm.DB, userID, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{UserID: userID, Name: name, Color: "#3B82F6", IsActive: true}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// CreateTestTransaction inserts a transaction without touching balances.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount, date string) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		UserID:            userID,
		AccountID:         &accountID,
		Type:              txType,
		Amount:            Money(amount),
		Description:       fmt.Sprintf("Lançamento %d", nextID()),
		Date:              Day(t, date),
		InstallmentsCount: 1,
		InstallmentNumber: 1,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active monthly budget starting at the first
// day of the current month.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount string) *models.Budget {
	t.Helper()
	now := time.Now().UTC()
	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Orçamento %d", nextID()),
		Amount:     Money(amount),
		Period:     models.BudgetPeriodMonthly,
		StartDate:  time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
