package services

import (
	"testing"

	"moneta/internal/ledger"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestReportSummary(t *testing.T) {
	t.Run("period_bounds_inclusive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReportService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "1000")

		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, "3500", "2025-09-01")
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "42.10", "2025-09-30")
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "10", "2025-10-01")

		period, err := ledger.NewPeriod("2025-09-01", "2025-09-30")
		testutil.AssertNoError(t, err)

		summary, err := svc.Summary(user.ID, period)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, summary.TotalIncome, "3500")
		testutil.AssertDecimal(t, summary.TotalExpenses, "42.10")
		testutil.AssertDecimal(t, summary.PeriodBalance, "3457.90")
		testutil.AssertDecimal(t, summary.TotalAccountBalance, "1000")
		if summary.TransactionCount != 2 {
			t.Errorf("expected 2 transactions in period, got %d", summary.TransactionCount)
		}
	})
}

func TestReportValidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReportService(db)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID, "0")

	testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, "100", "2025-09-01")
	result, err := svc.Validate(user.ID)
	testutil.AssertNoError(t, err)
	if !result.IsValid {
		t.Errorf("expected clean data to be valid, got %v", result.Errors)
	}

	legacy := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "50", "2025-09-02")
	db.Model(&models.Transaction{}).Where("id = ?", legacy.ID).Update("amount", testutil.Money("-50"))

	result, err = svc.Validate(user.ID)
	testutil.AssertNoError(t, err)
	if result.IsValid || len(result.Errors) != 1 {
		t.Errorf("expected one violation for the signed expense, got %v", result.Errors)
	}
}

func TestReportMonthly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReportService(db)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID, "0")

	testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, "100", "2025-01-31")
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "40", "2025-02-01")
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "99", "2024-12-31")

	months, err := svc.Monthly(user.ID, 2025)
	testutil.AssertNoError(t, err)

	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	testutil.AssertDecimal(t, months[0].Income, "100")
	testutil.AssertDecimal(t, months[1].Expenses, "40")
	testutil.AssertDecimal(t, months[11].Expenses, "0")

	_, err = svc.Monthly(user.ID, 0)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
