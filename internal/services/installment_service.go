package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/installment"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// installmentService persists installment purchases as a two-phase saga.
// Phase 1 books the plan, the first installment and the balance effect;
// phase 2 books installments 2..N. A failed phase 2 is compensated so the
// card is never left drawn for a purchase that does not exist.
type installmentService struct {
	db             *gorm.DB
	accountService AccountServicer
	cardService    CardServicer
}

// NewInstallmentService creates a new InstallmentServicer.
func NewInstallmentService(db *gorm.DB, accountService AccountServicer, cardService CardServicer) InstallmentServicer {
	return &installmentService{db: db, accountService: accountService, cardService: cardService}
}

// CreateCardPurchase splits a purchase across the card's future statements.
// The card is drawn by the full total once, when the first installment is
// booked.
func (s *installmentService) CreateCardPurchase(userID, cardID string, in PurchaseInput) (*PlanOutcome, error) {
	if _, err := s.cardService.GetCardByID(userID, cardID); err != nil {
		return nil, err
	}
	in.AccountID = nil
	return s.purchase(userID, &cardID, in)
}

// CreateAccountPurchase splits a purchase debited from an account, one
// installment per month. Each installment moves the balance when booked.
func (s *installmentService) CreateAccountPurchase(userID string, in PurchaseInput) (*PlanOutcome, error) {
	if in.AccountID == nil || *in.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id is required")
	}
	if _, err := s.accountService.GetAccountByID(userID, *in.AccountID); err != nil {
		return nil, err
	}
	return s.purchase(userID, nil, in)
}

func (s *installmentService) purchase(userID string, cardID *string, in PurchaseInput) (*PlanOutcome, error) {
	if in.Type == "" {
		in.Type = models.TransactionTypeExpense
	}
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if in.CategoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *in.CategoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if string(category.Type) != string(in.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type does not match the purchase type")
		}
	}

	// Validate the split before anything is written.
	if _, err := installment.Expand(purchaseOf(in, cardID)); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	if in.IdempotencyKey == "" {
		in.IdempotencyKey = models.NewID()
	}
	plan, err := s.findPlanByKey(userID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		plan = &models.InstallmentPlan{
			UserID:         userID,
			IdempotencyKey: in.IdempotencyKey,
			CardID:         cardID,
			AccountID:      in.AccountID,
			CategoryID:     in.CategoryID,
			Type:           in.Type,
			Description:    in.Description,
			TotalAmount:    in.TotalAmount,
			Count:          in.Count,
			FirstDate:      in.FirstDate,
			Status:         models.InstallmentPlanPending,
		}
	}
	return s.run(plan)
}

func purchaseOf(in PurchaseInput, cardID *string) installment.Purchase {
	return installment.Purchase{
		Description: in.Description,
		Total:       in.TotalAmount,
		Count:       in.Count,
		FirstDate:   in.FirstDate,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		CardID:      cardID,
		AccountID:   in.AccountID,
	}
}

func planPurchase(plan *models.InstallmentPlan) installment.Purchase {
	return installment.Purchase{
		Description: plan.Description,
		Total:       plan.TotalAmount,
		Count:       plan.Count,
		FirstDate:   plan.FirstDate,
		Type:        plan.Type,
		CategoryID:  plan.CategoryID,
		CardID:      plan.CardID,
		AccountID:   plan.AccountID,
	}
}

// run drives plan to a terminal state from wherever it stopped.
func (s *installmentService) run(plan *models.InstallmentPlan) (*PlanOutcome, error) {
	log := logger.Named("installments")

	drafts, err := installment.Expand(planPurchase(plan))
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	switch plan.Status {
	case models.InstallmentPlanCompleted:
		return s.outcome(plan)
	case models.InstallmentPlanCompensated:
		plan.Status = models.InstallmentPlanPending
		plan.ParentTransactionID = nil
		plan.LastError = ""
	}

	if plan.ParentTransactionID == nil {
		if err := s.phaseOne(plan, drafts[0]); err != nil {
			// A concurrent request with the same key won the insert.
			if existing, findErr := s.findPlanByKey(plan.UserID, plan.IdempotencyKey); findErr == nil && existing != nil && existing.ParentTransactionID != nil {
				return s.run(existing)
			}
			return nil, err
		}
		log.Infow("installment plan opened", "plan_id", plan.ID, "count", plan.Count, "total", plan.TotalAmount.StringFixed(2))
	}

	if err := s.phaseTwo(plan, drafts); err != nil {
		log.Warnw("installment children failed, compensating", "plan_id", plan.ID, "error", err)
		if compErr := s.compensate(plan); compErr != nil {
			log.Errorw("installment compensation failed", "plan_id", plan.ID, "error", compErr)
			s.setStatus(plan, models.InstallmentPlanNeedsReconciliation, fmt.Sprintf("children: %v; compensation: %v", err, compErr))
			return nil, apperrors.Wrap(apperrors.ErrReconciliationRequired, compErr)
		}
		s.setStatus(plan, models.InstallmentPlanCompensated, err.Error())
		return nil, apperrors.Wrap(apperrors.ErrReconciliationRequired, err)
	}

	s.setStatus(plan, models.InstallmentPlanCompleted, "")
	log.Infow("installment plan completed", "plan_id", plan.ID)
	return s.outcome(plan)
}

// phaseOne stores the plan, the first installment and the balance effect in
// one database transaction.
func (s *installmentService) phaseOne(plan *models.InstallmentPlan, first installment.Draft) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if plan.ID == "" {
			if err := tx.Create(plan).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		parent := draftTransaction(plan, first, nil)
		if err := tx.Create(parent).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if plan.CardID != nil {
			if err := s.cardService.AddUsedAmount(tx, *plan.CardID, purchaseDraw(plan)); err != nil {
				return err
			}
		} else if err := s.accountService.ApplyBalanceDelta(tx, *plan.AccountID, parent.Type, parent.Amount); err != nil {
			return err
		}

		plan.ParentTransactionID = &parent.ID
		plan.Status = models.InstallmentPlanPending
		return tx.Model(&models.InstallmentPlan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
			"parent_transaction_id": parent.ID,
			"status":                plan.Status,
			"last_error":            "",
		}).Error
	})
}

// purchaseDraw is the card movement of the whole purchase: expenses draw the
// limit and refunds release it.
func purchaseDraw(plan *models.InstallmentPlan) decimal.Decimal {
	if plan.Type == models.TransactionTypeIncome {
		return plan.TotalAmount.Neg()
	}
	return plan.TotalAmount
}

// phaseTwo books the installments that are still missing, so a retry never
// duplicates one.
func (s *installmentService) phaseTwo(plan *models.InstallmentPlan, drafts []installment.Draft) error {
	var existing []int
	if err := s.db.Model(&models.Transaction{}).
		Where("parent_transaction_id = ?", *plan.ParentTransactionID).
		Pluck("installment_number", &existing).Error; err != nil {
		return err
	}
	have := make(map[int]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, d := range drafts[1:] {
			if have[d.Number] {
				continue
			}
			child := draftTransaction(plan, d, plan.ParentTransactionID)
			if err := tx.Create(child).Error; err != nil {
				return err
			}
			if plan.AccountID != nil {
				if err := s.accountService.ApplyBalanceDelta(tx, *plan.AccountID, child.Type, child.Amount); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// compensate undoes phase 1: the first installment is removed and its
// balance effect reverted.
func (s *installmentService) compensate(plan *models.InstallmentPlan) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var parent models.Transaction
		if err := tx.Where("id = ?", *plan.ParentTransactionID).First(&parent).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("parent_transaction_id = ?", parent.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&parent).Error; err != nil {
			return err
		}

		if plan.CardID != nil {
			if err := s.cardService.AddUsedAmount(tx, *plan.CardID, purchaseDraw(plan).Neg()); err != nil {
				return err
			}
		} else {
			reverse := models.TransactionTypeIncome
			if parent.Type == models.TransactionTypeIncome {
				reverse = models.TransactionTypeExpense
			}
			if err := s.accountService.ApplyBalanceDelta(tx, *plan.AccountID, reverse, parent.Amount); err != nil {
				return err
			}
		}

		plan.ParentTransactionID = nil
		return tx.Model(&models.InstallmentPlan{}).Where("id = ?", plan.ID).
			Update("parent_transaction_id", nil).Error
	})
}

func (s *installmentService) setStatus(plan *models.InstallmentPlan, status models.InstallmentPlanStatus, lastError string) {
	plan.Status = status
	plan.LastError = lastError
	if err := s.db.Model(&models.InstallmentPlan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}).Error; err != nil {
		logger.Named("installments").Errorw("failed to record installment plan status", "plan_id", plan.ID, "status", status, "error", err)
	}
}

func draftTransaction(plan *models.InstallmentPlan, d installment.Draft, parentID *string) *models.Transaction {
	return &models.Transaction{
		UserID:              plan.UserID,
		Type:                plan.Type,
		Amount:              d.Amount,
		Description:         d.Description,
		Date:                d.Date,
		CategoryID:          plan.CategoryID,
		AccountID:           plan.AccountID,
		CardID:              plan.CardID,
		InstallmentsCount:   d.Count,
		InstallmentNumber:   d.Number,
		ParentTransactionID: parentID,
	}
}

func (s *installmentService) findPlanByKey(userID, key string) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	err := s.db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &plan, nil
}

func (s *installmentService) findPlan(userID, planID string) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	if err := s.db.Where("id = ? AND user_id = ?", planID, userID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInstallmentPlanNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &plan, nil
}

// outcome loads the installments persisted for plan in number order.
func (s *installmentService) outcome(plan *models.InstallmentPlan) (*PlanOutcome, error) {
	out := &PlanOutcome{Plan: *plan, Transactions: []models.Transaction{}}
	if plan.ParentTransactionID == nil {
		return out, nil
	}
	if err := s.db.Where("id = ? OR parent_transaction_id = ?", *plan.ParentTransactionID, *plan.ParentTransactionID).
		Order("installment_number").
		Find(&out.Transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return out, nil
}

// GetPlan returns a plan with its installments.
func (s *installmentService) GetPlan(userID, planID string) (*PlanOutcome, error) {
	plan, err := s.findPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	return s.outcome(plan)
}

// RetryPlan resumes a plan that did not complete. Only the missing
// installments are booked; a completed plan is returned as is.
func (s *installmentService) RetryPlan(userID, planID string) (*PlanOutcome, error) {
	plan, err := s.findPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	logger.Named("installments").Infow("retrying installment plan", "plan_id", plan.ID, "status", plan.Status)
	return s.run(plan)
}
