package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/services"
)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn    func(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	getUserCategoriesFn func(userID string, categoryType *models.CategoryType) ([]models.Category, error)
	getCategoryByIDFn   func(userID, categoryID string) (*models.Category, error)
	deleteCategoryFn    func(userID, categoryID string) error
}

func (m *mockCategoryService) CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(userID, name, categoryType, description, icon, color)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetUserCategories(userID string, categoryType *models.CategoryType) ([]models.Category, error) {
	if m.getUserCategoriesFn != nil {
		return m.getUserCategoriesFn(userID, categoryType)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(userID, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(userID, categoryID string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(userID, categoryID)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories", handler.GetUserCategories)
	auth.GET("/categories/:id", handler.GetCategoryByID)
	auth.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(userID, name string, ct models.CategoryType, _, _, color string) (*models.Category, error) {
				return &models.Category{
					Base:   models.Base{ID: testOtherID},
					UserID: userID,
					Name:   name,
					Type:   ct,
					Color:  color,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, audit))

		rec := doRequest(r, "POST", "/categories", `{"name":"Alimentação","type":"expense","color":"#FF5733"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if cat["name"] != "Alimentação" {
			t.Errorf("expected Alimentação, got %v", cat["name"])
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "CREATE_CATEGORY" {
			t.Errorf("expected CREATE_CATEGORY audit entry, got %v", got)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Test","type":"transfer"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid color", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"Test","type":"income","color":"red"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(_, _ string, _ models.CategoryType, _, _, _ string) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategory
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/categories", `{"name":"alimentacao","type":"expense"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_CATEGORY")
	})
}

func TestCategoryHandler_GetUserCategories(t *testing.T) {
	t.Run("filters by type", func(t *testing.T) {
		var captured *models.CategoryType
		catSvc := &mockCategoryService{
			getUserCategoriesFn: func(_ string, ct *models.CategoryType) ([]models.Category, error) {
				captured = ct
				return []models.Category{{Name: "Salário", Type: models.CategoryTypeIncome}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories?type=income", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured == nil || *captured != models.CategoryTypeIncome {
			t.Errorf("expected income filter, got %v", captured)
		}
		if cats := parseJSON(t, rec)["categories"].([]interface{}); len(cats) != 1 {
			t.Errorf("expected 1 category, got %d", len(cats))
		}
	})

	t.Run("lists all types without a filter", func(t *testing.T) {
		var captured *models.CategoryType
		called := false
		catSvc := &mockCategoryService{
			getUserCategoriesFn: func(_ string, ct *models.CategoryType) ([]models.Category, error) {
				called = true
				captured = ct
				return nil, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories", "")

		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected 200 and a service call, got %d", rec.Code)
		}
		if captured != nil {
			t.Errorf("expected no type filter, got %v", *captured)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories?type=savings", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	catSvc := &mockCategoryService{
		getCategoryByIDFn: func(_, _ string) (*models.Category, error) {
			return nil, apperrors.ErrCategoryNotFound
		},
	}
	r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/categories/"+testOtherID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, audit))

		rec := doRequest(r, "DELETE", "/categories/"+testOtherID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "DELETE_CATEGORY" {
			t.Errorf("expected DELETE_CATEGORY audit entry, got %v", got)
		}
	})

	t.Run("returns 409 when a budget uses it", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(_, _ string) error {
				return apperrors.ErrCategoryInUse
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/categories/"+testOtherID, "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
	})
}
