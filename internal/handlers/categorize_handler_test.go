package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moneta/internal/categorize"
)

type categorizerFunc func(description string, amount decimal.Decimal, originalType string, date *time.Time) categorize.Result

func (f categorizerFunc) Categorize(description string, amount decimal.Decimal, originalType string, date *time.Time) categorize.Result {
	return f(description, amount, originalType, date)
}

func setupCategorizeRouter(handler *CategorizeHandler) *gin.Engine {
	r := gin.New()
	r.POST("/categorize", injectUserID(testUserID), handler.Categorize)
	return r
}

func TestCategorizeHandler_Categorize(t *testing.T) {
	t.Run("runs the default keyword table", func(t *testing.T) {
		r := setupCategorizeRouter(NewCategorizeHandler(categorize.NewEngine(nil)))

		rec := doRequest(r, "POST", "/categorize", `{"description":"PADARIA PÃO QUENTE","amount":"-12,50","type":"expense"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["category"] != "Alimentação" {
			t.Errorf("expected Alimentação, got %v", result["category"])
		}
		if _, ok := result["validation_warnings"].([]interface{}); !ok {
			t.Errorf("expected a warnings list, got %v", result["validation_warnings"])
		}
	})

	t.Run("normalizes amount and date before categorizing", func(t *testing.T) {
		var gotAmount decimal.Decimal
		var gotDate *time.Time
		var gotType string
		fake := categorizerFunc(func(_ string, amount decimal.Decimal, originalType string, date *time.Time) categorize.Result {
			gotAmount, gotType, gotDate = amount, originalType, date
			return categorize.Result{Category: "Outros", Method: categorize.MethodFallback, ValidationWarnings: []string{}}
		})
		r := setupCategorizeRouter(NewCategorizeHandler(fake))

		rec := doRequest(r, "POST", "/categorize", `{"description":"x","amount":1234.5,"type":"income","date":"2024-03-05"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotAmount.Equal(decimal.RequireFromString("1234.5")) {
			t.Errorf("expected 1234.5, got %s", gotAmount)
		}
		if gotType != "income" {
			t.Errorf("expected income, got %q", gotType)
		}
		if gotDate == nil || gotDate.Format("2006-01-02") != "2024-03-05" {
			t.Errorf("expected date 2024-03-05, got %v", gotDate)
		}
	})

	t.Run("returns 400 without an amount", func(t *testing.T) {
		r := setupCategorizeRouter(NewCategorizeHandler(categorize.NewEngine(nil)))

		rec := doRequest(r, "POST", "/categorize", `{"description":"uber"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 without a description", func(t *testing.T) {
		r := setupCategorizeRouter(NewCategorizeHandler(categorize.NewEngine(nil)))

		rec := doRequest(r, "POST", "/categorize", `{"amount":"10"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
