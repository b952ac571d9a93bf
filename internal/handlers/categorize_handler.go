package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/importer"
	"moneta/internal/models"
	"moneta/internal/services"
)

// CategorizeHandler exposes the keyword engine on its own.
type CategorizeHandler struct {
	categorizer services.Categorizer
}

// NewCategorizeHandler creates a new CategorizeHandler.
func NewCategorizeHandler(categorizer services.Categorizer) *CategorizeHandler {
	return &CategorizeHandler{categorizer: categorizer}
}

// CategorizeRequest is one transaction to categorize. Amount accepts the
// same notations as imported files.
type CategorizeRequest struct {
	Description string              `json:"description" binding:"required,max=500"`
	Amount      importer.FlexAmount `json:"amount" swaggertype:"string" example:"-42,90"`
	Type        string              `json:"type" binding:"omitempty,max=20"`
	Date        string              `json:"date" binding:"omitempty,iso_date" example:"2024-03-05"`
}

// Categorize handles categorizing a single transaction.
// @Summary     Categorize a transaction
// @Description Suggest a category, confidence and type correction for one transaction. Nothing is persisted.
// @Tags        categorize
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategorizeRequest true "Transaction"
// @Success     200 {object} categorize.Result "Categorization"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categorize [post]
func (h *CategorizeHandler) Categorize(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, ok := importer.ParseAmount(string(req.Amount))
	if !ok {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount is required and must be a number"))
		return
	}

	var date *time.Time
	if req.Date != "" {
		d, _ := time.Parse(models.DateLayout, req.Date)
		date = &d
	}

	c.JSON(http.StatusOK, h.categorizer.Categorize(req.Description, amount, req.Type, date))
}
