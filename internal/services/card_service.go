package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// cardService handles credit card business logic.
type cardService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewCardService creates a new CardServicer.
func NewCardService(db *gorm.DB, accountService AccountServicer) CardServicer {
	return &cardService{db: db, accountService: accountService}
}

func newCardView(c models.Card) CardView {
	return CardView{Card: c, OverLimit: c.OverLimit(), AvailableLimit: c.AvailableLimit()}
}

// CreateCard registers a card with nothing drawn against it.
func (s *cardService) CreateCard(userID string, in CardInput) (*CardView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "card name is required")
	}
	if in.CreditLimit.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
	}
	if in.ClosingDay == 0 {
		in.ClosingDay = 1
	}
	if in.DueDay == 0 {
		in.DueDay = 10
	}
	if in.ClosingDay < 1 || in.ClosingDay > 31 || in.DueDay < 1 || in.DueDay > 31 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "closing and due days must be between 1 and 31")
	}

	card := &models.Card{
		UserID:      userID,
		Name:        name,
		Brand:       in.Brand,
		CreditLimit: in.CreditLimit,
		UsedAmount:  decimal.Zero,
		ClosingDay:  in.ClosingDay,
		DueDay:      in.DueDay,
		IsActive:    true,
	}
	if err := s.db.Create(card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	view := newCardView(*card)
	return &view, nil
}

// GetUserCards lists the user's active cards.
func (s *cardService) GetUserCards(userID string) ([]CardView, error) {
	var cards []models.Card
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Order("name").Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	views := make([]CardView, len(cards))
	for i, c := range cards {
		views[i] = newCardView(c)
	}
	return views, nil
}

// GetCardByID retrieves an active card owned by userID.
func (s *cardService) GetCardByID(userID, cardID string) (*CardView, error) {
	card, err := s.findCard(s.db, userID, cardID)
	if err != nil {
		return nil, err
	}
	view := newCardView(*card)
	return &view, nil
}

func (s *cardService) findCard(db *gorm.DB, userID, cardID string) (*models.Card, error) {
	var card models.Card
	if err := db.Where("id = ? AND user_id = ? AND is_active = ?", cardID, userID, true).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &card, nil
}

// AddUsedAmount draws amount against the card in one statement. A negative
// amount reverts a draw and never takes the used amount below zero.
func (s *cardService) AddUsedAmount(tx *gorm.DB, cardID string, amount decimal.Decimal) error {
	expr := gorm.Expr("used_amount + ?", amount)
	if amount.IsNegative() {
		expr = gorm.Expr("CASE WHEN used_amount + ? < 0 THEN 0 ELSE used_amount + ? END", amount, amount)
	}
	res := tx.Model(&models.Card{}).Where("id = ?", cardID).Update("used_amount", expr)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCardNotFound
	}
	return nil
}

// RecordPayment pays down the card, flooring the used amount at zero. When
// an account is given the payment is also booked as an expense on it.
func (s *cardService) RecordPayment(userID, cardID string, payment CardPayment) (*CardView, error) {
	if !payment.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment amount must be greater than zero")
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if payment.AccountID != nil {
		if _, err := s.accountService.GetAccountByID(userID, *payment.AccountID); err != nil {
			return nil, err
		}
	}

	var card *models.Card
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		card, err = s.findCard(tx, userID, cardID)
		if err != nil {
			return err
		}

		if payment.AccountID != nil {
			entry := &models.Transaction{
				UserID:            userID,
				AccountID:         payment.AccountID,
				Type:              models.TransactionTypeExpense,
				Amount:            payment.Amount,
				Description:       "Pagamento fatura " + card.Name,
				Date:              payment.Date,
				InstallmentsCount: 1,
				InstallmentNumber: 1,
			}
			if err := tx.Create(entry).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := s.accountService.ApplyBalanceDelta(tx, *payment.AccountID, entry.Type, entry.Amount); err != nil {
				return err
			}
		}

		if err := s.AddUsedAmount(tx, card.ID, payment.Amount.Neg()); err != nil {
			return err
		}
		return tx.First(card, "id = ?", card.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Named("cards").Infow("card payment recorded", "card_id", card.ID, "amount", payment.Amount.StringFixed(2))
	view := newCardView(*card)
	return &view, nil
}
