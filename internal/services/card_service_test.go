package services

import (
	"testing"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestCreateCard(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)

		card, err := svc.CreateCard(user.ID, CardInput{Name: "Visa Platinum", CreditLimit: testutil.Money("5000"), ClosingDay: 3, DueDay: 10})
		testutil.AssertNoError(t, err)

		if card.OverLimit {
			t.Error("new card must not be over limit")
		}
		testutil.AssertDecimal(t, card.AvailableLimit, "5000")
	})

	t.Run("invalid_days", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCard(user.ID, CardInput{Name: "Visa", CreditLimit: testutil.Money("100"), ClosingDay: 32})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAddUsedAmount(t *testing.T) {
	t.Run("over_limit_is_flagged_not_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "1000")

		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.AddUsedAmount(tx, card.ID, testutil.Money("1200"))
		})
		testutil.AssertNoError(t, err)

		view, err := svc.GetCardByID(user.ID, card.ID)
		testutil.AssertNoError(t, err)
		if !view.OverLimit {
			t.Error("expected card to be over limit")
		}
		testutil.AssertDecimal(t, view.AvailableLimit, "-200")
	})

	t.Run("revert_floors_at_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "1000")

		testutil.AssertNoError(t, svc.AddUsedAmount(db, card.ID, testutil.Money("100")))
		testutil.AssertNoError(t, svc.AddUsedAmount(db, card.ID, testutil.Money("-250")))

		view, err := svc.GetCardByID(user.ID, card.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, view.UsedAmount, "0")
	})

	t.Run("unknown_card", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))

		err := svc.AddUsedAmount(db, models.NewID(), testutil.Money("1"))
		testutil.AssertAppError(t, err, "CARD_NOT_FOUND")
	})
}

func TestRecordPayment(t *testing.T) {
	t.Run("floors_at_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "1000")
		testutil.AssertNoError(t, svc.AddUsedAmount(db, card.ID, testutil.Money("300")))

		view, err := svc.RecordPayment(user.ID, card.ID, CardPayment{Amount: testutil.Money("500")})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, view.UsedAmount, "0")
	})

	t.Run("debits_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewCardService(db, accounts)
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "1000")
		account := testutil.CreateTestAccount(t, db, user.ID, "800")
		testutil.AssertNoError(t, svc.AddUsedAmount(db, card.ID, testutil.Money("300")))

		view, err := svc.RecordPayment(user.ID, card.ID, CardPayment{
			Amount:    testutil.Money("200"),
			AccountID: &account.ID,
			Date:      testutil.Day(t, "2025-10-10"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, view.UsedAmount, "100")

		got, err := accounts.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, got.Balance, "600")

		rec, err := accounts.Reconcile(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if !rec.InSync {
			t.Errorf("expected payment to keep the account reconciled, difference %s", rec.Difference)
		}
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCardService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		card := testutil.CreateTestCard(t, db, user.ID, "1000")

		_, err := svc.RecordPayment(user.ID, card.ID, CardPayment{Amount: testutil.Money("0")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
