package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/ledger"
	"moneta/internal/services"
)

// ReportHandler serves ledger summaries and integrity checks.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Summary handles totals over a period.
// @Summary     Period summary
// @Description Income, expenses and balance over a period plus the current total of active accounts. Without start and end the current month is used.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       start query string false "Period start (YYYY-MM-DD)"
// @Param       end   query string false "Period end (YYYY-MM-DD)"
// @Success     200 {object} ledger.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, err := parseQueryDate(c, "start")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseQueryDate(c, "end")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var period ledger.Period
	switch {
	case start == nil && end == nil:
		period = ledger.MonthPeriod(time.Now().UTC())
	case start == nil || end == nil:
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "start and end must be given together"))
		return
	default:
		period = ledger.Period{Start: *start, End: *end}
	}

	summary, err := h.reportService.Summary(userID, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Validation handles the integrity check over every transaction.
// @Summary     Validate financial data
// @Description List every stored transaction that breaks the ledger rules
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ledger.Validation "Validation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/validation [get]
func (h *ReportHandler) Validation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	validation, err := h.reportService.Validate(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"validation": validation})
}

// Monthly handles the twelve-month breakdown of a year.
// @Summary     Monthly breakdown
// @Description Income, expenses and balance for each month of a year (default current year)
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year query int false "Year"
// @Success     200 {array}  ledger.Month "Months"
// @Failure     400 {object} ErrorResponse "Invalid year"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year := time.Now().UTC().Year()
	if v := c.Query("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid year"))
			return
		}
	}

	months, err := h.reportService.Monthly(userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "months": months})
}
