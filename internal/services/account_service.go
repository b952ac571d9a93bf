package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/ledger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount opens an account. Its running balance starts at the opening
// balance.
func (s *accountService) CreateAccount(userID string, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if in.Type == "" {
		in.Type = models.AccountTypeChecking
	}
	if in.Currency == "" {
		in.Currency = "BRL"
	}

	account := &models.Account{
		UserID:         userID,
		Name:           name,
		Type:           in.Type,
		BankName:       in.BankName,
		OpeningBalance: in.OpeningBalance,
		Balance:        in.OpeningBalance,
		Currency:       in.Currency,
		IsActive:       true,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetUserAccounts retrieves a paginated list of active accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ? AND is_active = ?", userID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("name").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an active account owned by userID.
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ? AND is_active = ?", accountID, userID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// ApplyBalanceDelta moves the account balance by the signed effect of one
// transaction. The update is a single atomic statement so concurrent imports
// on the same account do not lose writes.
func (s *accountService) ApplyBalanceDelta(tx *gorm.DB, accountID string, txType models.TransactionType, amount decimal.Decimal) error {
	if !txType.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	delta := ledger.Delta(txType, amount)
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// Reconcile replays every transaction of the account from its opening
// balance and compares the result with the stored balance.
func (s *accountService) Reconcile(userID, accountID string) (*Reconciliation, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	if err := s.db.Where("user_id = ? AND account_id = ?", userID, accountID).
		Order("date, created_at").
		Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entries := make([]ledger.Entry, len(txs))
	for i, tx := range txs {
		entries[i] = ledger.FromTransaction(tx)
	}
	replayed := ledger.Replay(account.OpeningBalance, entries)
	diff := account.Balance.Sub(replayed)

	return &Reconciliation{
		AccountID:        account.ID,
		OpeningBalance:   account.OpeningBalance,
		StoredBalance:    account.Balance,
		ReplayedBalance:  replayed,
		Difference:       diff,
		InSync:           diff.IsZero(),
		TransactionCount: len(txs),
	}, nil
}
