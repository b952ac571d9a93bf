package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
	cardService    CardServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer, cardService CardServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
		cardService:    cardService,
	}
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first, with their tags in attachment order.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, installment_number, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := loadTags(s.db, transactions); err != nil {
		return nil, err
	}

	result := pagination.NewPageResponse(transactions, page, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.CardID != nil {
		q = q.Where("card_id = ?", *f.CardID)
	}
	if f.ParentID != nil {
		q = q.Where("id = ? OR parent_transaction_id = ?", *f.ParentID, *f.ParentID)
	}
	return q
}

// loadTags fills Tags on each transaction from the join table, keeping the
// position order.
func loadTags(db *gorm.DB, transactions []models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	ids := make([]string, len(transactions))
	for i, tx := range transactions {
		ids[i] = tx.ID
	}

	var links []models.TransactionTag
	if err := db.Where("transaction_id IN ?", ids).Order("position").Find(&links).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(links) == 0 {
		return nil
	}

	tagIDs := make([]string, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.TagID)
	}
	var tags []models.Tag
	if err := db.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}

	byTx := make(map[string][]models.Tag, len(transactions))
	for _, l := range links {
		if t, ok := byID[l.TagID]; ok {
			byTx[l.TransactionID] = append(byTx[l.TransactionID], t)
		}
	}
	for i := range transactions {
		transactions[i].Tags = byTx[transactions[i].ID]
	}
	return nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	txs := []models.Transaction{transaction}
	if err := loadTags(s.db, txs); err != nil {
		return nil, err
	}
	return &txs[0], nil
}

// MarkPaid moves the transaction to the day it was actually paid. Only the
// date changes; amount, type and balances are untouched.
func (s *transactionService) MarkPaid(userID, transactionID string, date time.Time) (*models.Transaction, error) {
	if date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if err := s.db.Model(&models.Transaction{}).Where("id = ?", transaction.ID).Update("date", day).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	transaction.Date = day
	return transaction, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
// The row is hard-deleted so its import fingerprint can be imported again.
// Card draws of installment purchases are settled through card payments and
// are left as they are.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", transaction.ID).Delete(&models.TransactionTag{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(&models.Transaction{}, "id = ?", transaction.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		switch {
		case transaction.AccountID != nil:
			var reverseType models.TransactionType
			switch transaction.Type {
			case models.TransactionTypeIncome:
				reverseType = models.TransactionTypeExpense
			case models.TransactionTypeExpense:
				reverseType = models.TransactionTypeIncome
			default:
				return apperrors.ErrInvalidTransactionType
			}
			return s.accountService.ApplyBalanceDelta(tx, *transaction.AccountID, reverseType, transaction.Amount)
		case transaction.CardID != nil && transaction.InstallmentsCount <= 1:
			// Expenses drew the card and incomes paid it down.
			return s.cardService.AddUsedAmount(tx, *transaction.CardID, transaction.SignedAmount())
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Named("transactions").Infow("transaction deleted", "transaction_id", transaction.ID, "user_id", userID)
	return nil
}
