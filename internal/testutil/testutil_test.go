package testutil_test

import (
	"testing"

	"moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"users", "accounts", "cards", "categories", "tags", "transactions", "transaction_tags", "installment_plans", "budgets", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an id")
	}

	account := testutil.CreateTestAccount(t, db, user.ID, "1000.00")
	testutil.AssertDecimal(t, account.Balance, "1000")

	card := testutil.CreateTestCard(t, db, user.ID, "5000")
	if card.OverLimit() {
		t.Error("fresh card should not be over limit")
	}

	cat := testutil.CreateTestCategory(t, db, user.ID, "Mercado", models.CategoryTypeExpense)
	tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "42.10", "2025-09-15")
	if tx.DateString() != "2025-09-15" {
		t.Errorf("date = %s", tx.DateString())
	}

	var reloaded models.Transaction
	if err := db.First(&reloaded, "id = ?", tx.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	testutil.AssertDecimal(t, reloaded.Amount, "42.10")
	if reloaded.DateString() != "2025-09-15" {
		t.Errorf("reloaded date = %s", reloaded.DateString())
	}

	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "300")
	if budget.Period != models.BudgetPeriodMonthly {
		t.Errorf("period = %s", budget.Period)
	}
}

func TestAssertAppError(t *testing.T) {
	testutil.AssertAppError(t, errors.Wrap(errors.ErrCardNotFound, nil), "CARD_NOT_FOUND")
	testutil.AssertNoError(t, nil)
}
