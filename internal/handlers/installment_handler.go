package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/services"
)

// InstallmentHandler handles installment plans booked against accounts and
// the retry of plans left half-written.
type InstallmentHandler struct {
	installmentService services.InstallmentServicer
	auditService       services.AuditServicer
}

// NewInstallmentHandler creates a new InstallmentHandler.
func NewInstallmentHandler(installmentService services.InstallmentServicer, auditService services.AuditServicer) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService, auditService: auditService}
}

// CreateAccountPurchase handles an installment purchase paid from an account.
// @Summary     Create an account installment purchase
// @Description Split a purchase into monthly installments debited from an account. Repeating the same idempotency key returns the original plan.
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key header string          false "Idempotency key"
// @Param       request         body   PurchaseRequest true  "Purchase details; account_id is required"
// @Success     201 {object} services.PlanOutcome "Purchase created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Reconciliation required"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /installments [post]
func (h *InstallmentHandler) CreateAccountPurchase(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.AccountID == nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id is required"))
		return
	}

	outcome, err := h.installmentService.CreateAccountPurchase(userID, req.input(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ACCOUNT_PURCHASE", "installment_plan", outcome.Plan.ID, c.ClientIP(),
		map[string]interface{}{
			"account_id":   *req.AccountID,
			"total_amount": outcome.Plan.TotalAmount.String(),
			"installments": outcome.Plan.Count,
		})

	c.JSON(http.StatusCreated, outcome)
}

// GetPlan handles retrieving a plan with its installments.
// @Summary     Get an installment plan
// @Description Get a plan, its status and the installments persisted for it
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Plan ID"
// @Success     200 {object} services.PlanOutcome "Plan"
// @Failure     400 {object} ErrorResponse "Invalid plan ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Plan not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /installments/{id} [get]
func (h *InstallmentHandler) GetPlan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	planID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	outcome, err := h.installmentService.GetPlan(userID, planID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// RetryPlan handles resuming a plan that did not complete.
// @Summary     Retry an installment plan
// @Description Insert the installments still missing from a plan. Completed plans are returned unchanged.
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Plan ID"
// @Success     200 {object} services.PlanOutcome "Plan"
// @Failure     400 {object} ErrorResponse "Invalid plan ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Plan not found"
// @Failure     409 {object} ErrorResponse "Reconciliation required"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /installments/{id}/retry [post]
func (h *InstallmentHandler) RetryPlan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	planID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	outcome, err := h.installmentService.RetryPlan(userID, planID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RETRY_INSTALLMENT_PLAN", "installment_plan", planID, c.ClientIP(),
		map[string]interface{}{"status": string(outcome.Plan.Status)})

	c.JSON(http.StatusOK, outcome)
}
