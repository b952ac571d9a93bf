package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn     func(userID string, in services.AccountInput) (*models.Account, error)
	getUserAccountsFn   func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	getAccountByIDFn    func(userID, accountID string) (*models.Account, error)
	applyBalanceDeltaFn func(tx *gorm.DB, accountID string, txType models.TransactionType, amount decimal.Decimal) error
	reconcileFn         func(userID, accountID string) (*services.Reconciliation, error)
}

func (m *mockAccountService) CreateAccount(userID string, in services.AccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(userID, in)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	if m.getUserAccountsFn != nil {
		return m.getUserAccountsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Account{}, pagination.PageRequest{Page: 1, PageSize: 50}, 0)
	return &resp, nil
}

func (m *mockAccountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(userID, accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) ApplyBalanceDelta(tx *gorm.DB, accountID string, txType models.TransactionType, amount decimal.Decimal) error {
	if m.applyBalanceDeltaFn != nil {
		return m.applyBalanceDeltaFn(tx, accountID, txType, amount)
	}
	return nil
}

func (m *mockAccountService) Reconcile(userID, accountID string) (*services.Reconciliation, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(userID, accountID)
	}
	return &services.Reconciliation{}, nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/accounts", handler.CreateAccount)
	auth.GET("/accounts", handler.GetUserAccounts)
	auth.GET("/accounts/:id", handler.GetAccountByID)
	auth.GET("/accounts/:id/reconcile", handler.Reconcile)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var captured services.AccountInput
		acctSvc := &mockAccountService{
			createAccountFn: func(userID string, in services.AccountInput) (*models.Account, error) {
				captured = in
				return &models.Account{
					Base:           models.Base{ID: testAccountID},
					UserID:         userID,
					Name:           in.Name,
					Type:           models.AccountTypeChecking,
					OpeningBalance: in.OpeningBalance,
					Balance:        in.OpeningBalance,
					Currency:       "BRL",
					IsActive:       true,
				}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewAccountHandler(acctSvc, audit)
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts",
			`{"name":"Nubank","type":"checking","currency":"BRL","opening_balance":"1500.50"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.OpeningBalance.Equal(decimal.RequireFromString("1500.50")) {
			t.Errorf("expected opening balance 1500.50, got %s", captured.OpeningBalance)
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Nubank" {
			t.Errorf("expected Nubank, got %v", acct["name"])
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "CREATE_ACCOUNT" {
			t.Errorf("expected CREATE_ACCOUNT audit entry, got %v", got)
		}
	})

	t.Run("accepts a numeric opening balance", func(t *testing.T) {
		var captured services.AccountInput
		acctSvc := &mockAccountService{
			createAccountFn: func(_ string, in services.AccountInput) (*models.Account, error) {
				captured = in
				return &models.Account{Base: models.Base{ID: testAccountID}}, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Carteira","type":"wallet","opening_balance":-20.5}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.OpeningBalance.Equal(decimal.RequireFromString("-20.5")) {
			t.Errorf("expected -20.5, got %s", captured.OpeningBalance)
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"currency":"BRL"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid currency", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","currency":"INVALID"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown account type", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"brokerage"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/accounts", handler.CreateAccount)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_GetUserAccounts(t *testing.T) {
	t.Run("returns 200 with paginated accounts", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getUserAccountsFn: func(_ string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
				resp := pagination.NewPageResponse([]models.Account{
					{Base: models.Base{ID: testAccountID}, Name: "Itaú"},
					{Base: models.Base{ID: testOtherID}, Name: "Carteira"},
				}, pagination.PageRequest{Page: 1, PageSize: 20}, 2)
				return &resp, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(data))
		}
		if result["total_items"].(float64) != 2 {
			t.Errorf("expected total_items=2, got %v", result["total_items"])
		}
	})

	t.Run("passes pagination params to service", func(t *testing.T) {
		var capturedPage pagination.PageRequest
		acctSvc := &mockAccountService{
			getUserAccountsFn: func(_ string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
				capturedPage = page
				resp := pagination.NewPageResponse([]models.Account{}, page, 0)
				return &resp, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		doRequest(r, "GET", "/accounts?page=2&page_size=5", "")

		if capturedPage.Page != 2 {
			t.Errorf("expected page=2, got %d", capturedPage.Page)
		}
		if capturedPage.PageSize != 5 {
			t.Errorf("expected page_size=5, got %d", capturedPage.PageSize)
		}
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts?page_size=1000", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_GetAccountByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_, accountID string) (*models.Account, error) {
				return &models.Account{
					Base: models.Base{ID: accountID},
					Name: "Poupança",
					Type: models.AccountTypeSavings,
				}, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		acct := parseJSON(t, rec)["account"].(map[string]interface{})
		if acct["name"] != "Poupança" {
			t.Errorf("expected Poupança, got %v", acct["name"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_, _ string) (*models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testOtherID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_Reconcile(t *testing.T) {
	t.Run("returns the replay comparison", func(t *testing.T) {
		acctSvc := &mockAccountService{
			reconcileFn: func(_, accountID string) (*services.Reconciliation, error) {
				return &services.Reconciliation{
					AccountID:        accountID,
					StoredBalance:    decimal.RequireFromString("100"),
					ReplayedBalance:  decimal.RequireFromString("90"),
					Difference:       decimal.RequireFromString("10"),
					InSync:           false,
					TransactionCount: 3,
				}, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/reconcile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := parseJSON(t, rec)["reconciliation"].(map[string]interface{})
		if body["in_sync"] != false {
			t.Errorf("expected in_sync=false, got %v", body["in_sync"])
		}
		if body["difference"] != "10" {
			t.Errorf("expected difference \"10\", got %v", body["difference"])
		}
	})

	t.Run("returns 404 for another user's account", func(t *testing.T) {
		acctSvc := &mockAccountService{
			reconcileFn: func(_, _ string) (*services.Reconciliation, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupAccountRouter(NewAccountHandler(acctSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/"+testOtherID+"/reconcile", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
