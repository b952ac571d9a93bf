package services

import (
	"testing"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func setCategory(t *testing.T, db *gorm.DB, tx *models.Transaction, categoryID string) {
	t.Helper()
	if err := db.Model(&models.Transaction{}).Where("id = ?", tx.ID).Update("category_id", categoryID).Error; err != nil {
		t.Fatalf("failed to set category: %v", err)
	}
}

func TestCreateBudget(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Alimentação", models.CategoryTypeExpense)

		budget, err := svc.CreateBudget(user.ID, BudgetInput{
			CategoryID: cat.ID,
			Amount:     testutil.Money("800"),
			StartDate:  testutil.Day(t, "2025-09-01"),
		})
		testutil.AssertNoError(t, err)

		if budget.Name != "Alimentação" {
			t.Errorf("expected name to default to the category, got %s", budget.Name)
		}
		if budget.Period != models.BudgetPeriodMonthly {
			t.Errorf("expected monthly period, got %s", budget.Period)
		}
		if !budget.IsActive {
			t.Error("expected budget to be active")
		}
	})

	t.Run("income_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Salário", models.CategoryTypeIncome)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: cat.ID, Amount: testutil.Money("10")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("end_before_start", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Lazer", models.CategoryTypeExpense)

		end := testutil.Day(t, "2025-01-01")
		_, err := svc.CreateBudget(user.ID, BudgetInput{
			CategoryID: cat.ID,
			Amount:     testutil.Money("10"),
			StartDate:  testutil.Day(t, "2025-02-01"),
			EndDate:    &end,
		})
		testutil.AssertAppError(t, err, "INVALID_PERIOD")
	})

	t.Run("invalid_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: models.NewID(), Amount: testutil.Money("10")})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetUserBudgets(t *testing.T) {
	t.Run("filters_active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Lazer", models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100")
		inactive := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "200")
		db.Model(&models.Budget{}).Where("id = ?", inactive.ID).Update("is_active", false)

		active := true
		result, err := svc.GetUserBudgets(user.ID, pagination.PageRequest{Page: 1, PageSize: 10}, &active)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 active budget, got %d", result.TotalItems)
		}
		if len(result.Data) == 1 && result.Data[0].Category.Name != "Lazer" {
			t.Errorf("expected category to be preloaded, got %q", result.Data[0].Category.Name)
		}
	})
}

func TestDeleteBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, "Lazer", models.CategoryTypeExpense)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100")

	testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))

	_, err := svc.GetBudgetByID(user.ID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestGetBudgetProgress(t *testing.T) {
	t.Run("monthly_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "0")
		cat := testutil.CreateTestCategory(t, db, user.ID, "Alimentação", models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "800")

		inside := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "150.25", "2025-09-01")
		lastDay := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "49.75", "2025-09-30")
		outside := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "999", "2025-10-01")
		income := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, "500", "2025-09-10")
		for _, tx := range []*models.Transaction{inside, lastDay, outside, income} {
			setCategory(t, db, tx, cat.ID)
		}

		progress, err := svc.GetBudgetProgress(user.ID, budget.ID, testutil.Day(t, "2025-09-15"))
		testutil.AssertNoError(t, err)

		if progress.PeriodStart != "2025-09-01" || progress.PeriodEnd != "2025-09-30" {
			t.Errorf("expected September window, got %s..%s", progress.PeriodStart, progress.PeriodEnd)
		}
		testutil.AssertDecimal(t, progress.Spent, "200")
		testutil.AssertDecimal(t, progress.Remaining, "600")
		if progress.Percentage != 25 {
			t.Errorf("expected 25%%, got %v", progress.Percentage)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetBudgetProgress(user.ID, models.NewID(), testutil.Day(t, "2025-09-15"))
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}
