package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/services"
)

// IdempotencyKeyHeader names the header that identifies a purchase across
// client retries.
const IdempotencyKeyHeader = "Idempotency-Key"

// CardHandler handles credit card requests.
type CardHandler struct {
	cardService        services.CardServicer
	installmentService services.InstallmentServicer
	auditService       services.AuditServicer
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(
	cardService services.CardServicer,
	installmentService services.InstallmentServicer,
	auditService services.AuditServicer,
) *CardHandler {
	return &CardHandler{
		cardService:        cardService,
		installmentService: installmentService,
		auditService:       auditService,
	}
}

// CreateCardRequest represents the request payload for registering a card.
type CreateCardRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=100"`
	Brand       string          `json:"brand" binding:"max=50"`
	CreditLimit decimal.Decimal `json:"credit_limit" swaggertype:"string" example:"5000.00"`
	ClosingDay  int             `json:"closing_day" binding:"omitempty,min=1,max=31"`
	DueDay      int             `json:"due_day" binding:"omitempty,min=1,max=31"`
}

// PurchaseRequest represents a purchase split into installments. The
// idempotency key may come from the body or the Idempotency-Key header.
type PurchaseRequest struct {
	IdempotencyKey string                 `json:"idempotency_key" binding:"max=100"`
	Description    string                 `json:"description" binding:"required,min=1,max=255"`
	Type           models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	TotalAmount    decimal.Decimal        `json:"total_amount" binding:"decimal_positive" swaggertype:"string" example:"1200.00"`
	Installments   int                    `json:"installments" binding:"required,min=1,max=120"`
	FirstDate      string                 `json:"first_date" binding:"required,iso_date" example:"2024-01-31"`
	CategoryID     *string                `json:"category_id" binding:"omitempty,uuid"`
	AccountID      *string                `json:"account_id" binding:"omitempty,uuid"`
}

func (r PurchaseRequest) input(c *gin.Context) services.PurchaseInput {
	key := r.IdempotencyKey
	if h := c.GetHeader(IdempotencyKeyHeader); h != "" {
		key = h
	}
	firstDate, _ := time.Parse(models.DateLayout, r.FirstDate)
	return services.PurchaseInput{
		IdempotencyKey: key,
		Description:    r.Description,
		Type:           r.Type,
		TotalAmount:    r.TotalAmount,
		Count:          r.Installments,
		FirstDate:      firstDate,
		CategoryID:     r.CategoryID,
		AccountID:      r.AccountID,
	}
}

// CardPaymentRequest represents a payment towards a card's used amount.
type CardPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"decimal_positive" swaggertype:"string" example:"350.00"`
	AccountID *string         `json:"account_id" binding:"omitempty,uuid"`
	Date      string          `json:"date" binding:"omitempty,iso_date" example:"2024-02-10"`
}

// CreateCard handles registering a new credit card.
// @Summary     Create a card
// @Description Register a credit card for the authenticated user
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCardRequest true "Card details"
// @Success     201 {object} services.CardView "Card created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	card, err := h.cardService.CreateCard(userID, services.CardInput{
		Name:        req.Name,
		Brand:       req.Brand,
		CreditLimit: req.CreditLimit,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_CARD", "card", card.ID, c.ClientIP(),
		map[string]interface{}{"name": card.Name, "credit_limit": card.CreditLimit.String()})

	c.JSON(http.StatusCreated, gin.H{"card": card})
}

// GetUserCards handles listing the user's active cards.
// @Summary     List cards
// @Description Get the active cards of the authenticated user with their limit figures
// @Tags        cards
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.CardView "Cards"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cards [get]
func (h *CardHandler) GetUserCards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cards, err := h.cardService.GetUserCards(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// GetCardByID handles retrieving a single card.
// @Summary     Get a card
// @Description Get a card by ID
// @Tags        cards
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Card ID"
// @Success     200 {object} services.CardView "Card"
// @Failure     400 {object} ErrorResponse "Invalid card ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cards/{id} [get]
func (h *CardHandler) GetCardByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	card, err := h.cardService.GetCardByID(userID, cardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"card": card})
}

// CreatePurchase handles an installment purchase charged to a card.
// @Summary     Create a card purchase
// @Description Split a purchase into monthly installments on a card. Repeating the same idempotency key returns the original plan.
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id              path   string          true  "Card ID"
// @Param       Idempotency-Key header string          false "Idempotency key"
// @Param       request         body   PurchaseRequest true  "Purchase details"
// @Success     201 {object} services.PlanOutcome "Purchase created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Failure     409 {object} ErrorResponse "Reconciliation required"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cards/{id}/purchases [post]
func (h *CardHandler) CreatePurchase(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	outcome, err := h.installmentService.CreateCardPurchase(userID, cardID, req.input(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_CARD_PURCHASE", "installment_plan", outcome.Plan.ID, c.ClientIP(),
		map[string]interface{}{
			"card_id":      cardID,
			"total_amount": outcome.Plan.TotalAmount.String(),
			"installments": outcome.Plan.Count,
		})

	c.JSON(http.StatusCreated, outcome)
}

// RecordPayment handles a payment towards a card.
// @Summary     Pay a card
// @Description Decrease the card's used amount, optionally debiting an account
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Card ID"
// @Param       request body CardPaymentRequest true "Payment details"
// @Success     200 {object} services.CardView "Card after payment"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Card or account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cards/{id}/payments [post]
func (h *CardHandler) RecordPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, _ = time.Parse(models.DateLayout, req.Date)
	}

	card, err := h.cardService.RecordPayment(userID, cardID, services.CardPayment{
		Amount:    req.Amount,
		AccountID: req.AccountID,
		Date:      date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{"amount": req.Amount.String()}
	if req.AccountID != nil {
		changes["account_id"] = *req.AccountID
	}
	h.auditService.Log(userID, "CARD_PAYMENT", "card", cardID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"card": card})
}
