package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func newInstallmentService(db *gorm.DB) InstallmentServicer {
	accounts := NewAccountService(db)
	return NewInstallmentService(db, accounts, NewCardService(db, accounts))
}

// refuseChildren makes every insert of installment 2..N fail.
func refuseChildren(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:refuse_children", func(tx *gorm.DB) {
		if txn, ok := tx.Statement.Dest.(*models.Transaction); ok && txn.InstallmentNumber > 1 {
			_ = tx.AddError(errors.New("insert refused"))
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
}

// refuseDeletes makes every transaction delete fail.
func refuseDeletes(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Delete().Before("gorm:delete").Register("test:refuse_deletes", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Transaction); ok {
			_ = tx.AddError(errors.New("delete refused"))
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
}

func planByKey(t *testing.T, db *gorm.DB, userID, key string) models.InstallmentPlan {
	t.Helper()
	var plan models.InstallmentPlan
	if err := db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&plan).Error; err != nil {
		t.Fatalf("plan %s not found: %v", key, err)
	}
	return plan
}

func cardUsed(t *testing.T, db *gorm.DB, cardID string) models.Card {
	t.Helper()
	var card models.Card
	if err := db.First(&card, "id = ?", cardID).Error; err != nil {
		t.Fatalf("card not found: %v", err)
	}
	return card
}

func TestCreateCardPurchase(t *testing.T) {
	t.Run("twelve_installments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "5000")

		out, err := svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{
			IdempotencyKey: "notebook",
			Description:    "Notebook",
			TotalAmount:    testutil.Money("1200"),
			Count:          12,
			FirstDate:      testutil.Day(t, "2025-01-31"),
		})
		testutil.AssertNoError(t, err)

		if out.Plan.Status != models.InstallmentPlanCompleted {
			t.Errorf("expected completed plan, got %s", out.Plan.Status)
		}
		if len(out.Transactions) != 12 {
			t.Fatalf("expected 12 installments, got %d", len(out.Transactions))
		}
		parent := out.Transactions[0]
		for i, tx := range out.Transactions {
			testutil.AssertDecimal(t, tx.Amount, "100")
			if tx.InstallmentNumber != i+1 || tx.InstallmentsCount != 12 {
				t.Errorf("installment %d numbered %d/%d", i+1, tx.InstallmentNumber, tx.InstallmentsCount)
			}
			if i > 0 && (tx.ParentTransactionID == nil || *tx.ParentTransactionID != parent.ID) {
				t.Errorf("installment %d does not point at the parent", i+1)
			}
		}
		if parent.ParentTransactionID != nil {
			t.Error("parent must not have a parent")
		}
		if parent.Description != "Notebook (1/12)" {
			t.Errorf("unexpected description %q", parent.Description)
		}
		if got := out.Transactions[1].DateString(); got != "2025-02-28" {
			t.Errorf("expected Feb 28 for the second installment, got %s", got)
		}
		if got := out.Transactions[2].DateString(); got != "2025-03-31" {
			t.Errorf("expected Mar 31 for the third installment, got %s", got)
		}

		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "1200")
	})

	t.Run("same_key_does_not_draw_twice", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "5000")
		in := PurchaseInput{
			IdempotencyKey: "tv",
			Description:    "TV",
			TotalAmount:    testutil.Money("3000"),
			Count:          10,
			FirstDate:      testutil.Day(t, "2025-09-10"),
		}

		first, err := svc.CreateCardPurchase(user.ID, card.ID, in)
		testutil.AssertNoError(t, err)
		second, err := svc.CreateCardPurchase(user.ID, card.ID, in)
		testutil.AssertNoError(t, err)

		if first.Plan.ID != second.Plan.ID {
			t.Error("expected the same plan for the same key")
		}
		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "3000")

		var count int64
		db.Model(&models.Transaction{}).Where("card_id = ?", card.ID).Count(&count)
		if count != 10 {
			t.Errorf("expected 10 installments, got %d", count)
		}
	})

	t.Run("invalid_count", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "5000")

		_, err := svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{Description: "x", TotalAmount: testutil.Money("10"), Count: 0, FirstDate: testutil.Day(t, "2025-09-10")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{Description: "x", TotalAmount: testutil.Money("10"), Count: 121, FirstDate: testutil.Day(t, "2025-09-10")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_card", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCardPurchase(user.ID, models.NewID(), PurchaseInput{Description: "x", TotalAmount: testutil.Money("10"), Count: 2})
		testutil.AssertAppError(t, err, "CARD_NOT_FOUND")
	})
}

func TestInstallmentCompensation(t *testing.T) {
	t.Run("child_failure_reverts_card", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "5000")
		refuseChildren(t, db)

		_, err := svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{
			IdempotencyKey: "sofa",
			Description:    "Sofá",
			TotalAmount:    testutil.Money("900"),
			Count:          3,
			FirstDate:      testutil.Day(t, "2025-09-10"),
		})
		testutil.AssertAppError(t, err, "RECONCILIATION_REQUIRED")

		plan := planByKey(t, db, user.ID, "sofa")
		if plan.Status != models.InstallmentPlanCompensated {
			t.Errorf("expected compensated plan, got %s", plan.Status)
		}
		if plan.ParentTransactionID != nil {
			t.Error("expected parent link to be cleared")
		}
		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "0")

		var count int64
		db.Unscoped().Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected no transactions left, got %d", count)
		}

		// Once inserts work again the same plan completes.
		testutil.AssertNoError(t, db.Callback().Create().Remove("test:refuse_children"))
		out, err := svc.RetryPlan(user.ID, plan.ID)
		testutil.AssertNoError(t, err)
		if out.Plan.Status != models.InstallmentPlanCompleted || len(out.Transactions) != 3 {
			t.Errorf("expected completed plan with 3 installments, got %s with %d", out.Plan.Status, len(out.Transactions))
		}
		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "900")
	})

	t.Run("failed_compensation_needs_reconciliation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "5000")
		refuseChildren(t, db)
		refuseDeletes(t, db)

		_, err := svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{
			IdempotencyKey: "geladeira",
			Description:    "Geladeira",
			TotalAmount:    testutil.Money("2400"),
			Count:          4,
			FirstDate:      testutil.Day(t, "2025-09-10"),
		})
		testutil.AssertAppError(t, err, "RECONCILIATION_REQUIRED")

		plan := planByKey(t, db, user.ID, "geladeira")
		if plan.Status != models.InstallmentPlanNeedsReconciliation {
			t.Fatalf("expected needs_reconciliation, got %s", plan.Status)
		}
		if plan.LastError == "" {
			t.Error("expected last error to be recorded")
		}
		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "2400")

		testutil.AssertNoError(t, db.Callback().Create().Remove("test:refuse_children"))
		testutil.AssertNoError(t, db.Callback().Delete().Remove("test:refuse_deletes"))

		out, err := svc.RetryPlan(user.ID, plan.ID)
		testutil.AssertNoError(t, err)
		if len(out.Transactions) != 4 {
			t.Errorf("expected 4 installments after retry, got %d", len(out.Transactions))
		}
		if out.Plan.ParentTransactionID == nil || out.Transactions[0].ID != *plan.ParentTransactionID {
			t.Error("expected retry to keep the original parent")
		}
		testutil.AssertDecimal(t, cardUsed(t, db, card.ID).UsedAmount, "2400")
	})
}

func TestCreateAccountPurchase(t *testing.T) {
	t.Run("each_installment_moves_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "1000")

		out, err := svc.CreateAccountPurchase(user.ID, PurchaseInput{
			Description: "Curso",
			TotalAmount: testutil.Money("300"),
			Count:       3,
			FirstDate:   testutil.Day(t, "2025-09-05"),
			AccountID:   &account.ID,
		})
		testutil.AssertNoError(t, err)
		if len(out.Transactions) != 3 {
			t.Fatalf("expected 3 installments, got %d", len(out.Transactions))
		}

		got, err := accounts.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, got.Balance, "700")

		rec, err := accounts.Reconcile(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if !rec.InSync {
			t.Errorf("expected account to reconcile, difference %s", rec.Difference)
		}
	})

	t.Run("account_required", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newInstallmentService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccountPurchase(user.ID, PurchaseInput{Description: "x", TotalAmount: testutil.Money("10"), Count: 2})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newInstallmentService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	card := testutil.CreateTestCard(t, db, user.ID, "5000")

	out, err := svc.CreateCardPurchase(user.ID, card.ID, PurchaseInput{Description: "Bike", TotalAmount: testutil.Money("500"), Count: 2, FirstDate: testutil.Day(t, "2025-09-10")})
	testutil.AssertNoError(t, err)

	got, err := svc.GetPlan(user.ID, out.Plan.ID)
	testutil.AssertNoError(t, err)
	if len(got.Transactions) != 2 {
		t.Errorf("expected 2 installments, got %d", len(got.Transactions))
	}

	_, err = svc.GetPlan(other.ID, out.Plan.ID)
	testutil.AssertAppError(t, err, "INSTALLMENT_PLAN_NOT_FOUND")
}
