package main

import (
	"fmt"
	"net/http"
	"os"

	"moneta/internal/categorize"
	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/handlers"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/services"
	"moneta/internal/validator"
	"moneta/internal/worker"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "moneta/internal/docs" // Import swagger docs
)

// @title           Moneta API
// @version         1.0
// @description     Moneta imports bank statements and chat messages, categorizes every transaction and keeps account and card balances reconciled.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func newEngine(path string) (*categorize.Engine, error) {
	if path == "" {
		return categorize.NewEngine(nil), nil
	}
	table, err := categorize.LoadTableFile(path)
	if err != nil {
		return nil, err
	}
	return categorize.NewEngine(table), nil
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	engine, err := newEngine(appConfig.CategorizationRules)
	if err != nil {
		return fmt.Errorf("failed to load categorization rules: %w", err)
	}

	pool := worker.NewPool(appConfig.ImportWorkers, nil)
	defer pool.Close()

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	accountService := services.NewAccountService(db)
	cardService := services.NewCardService(db, accountService)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	transactionService := services.NewTransactionService(db, accountService, cardService)
	installmentService := services.NewInstallmentService(db, accountService, cardService)
	importService := services.NewImportService(db, pool, engine, accountService, cardService, appConfig.ImportAutoCreate)
	budgetService := services.NewBudgetService(db)
	reportService := services.NewReportService(db)

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	cardHandler := handlers.NewCardHandler(cardService, installmentService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	tagHandler := handlers.NewTagHandler(tagService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	installmentHandler := handlers.NewInstallmentHandler(installmentService, auditService)
	importHandler := handlers.NewImportHandler(importService, auditService, appConfig.ImportMaxUploadBytes)
	categorizeHandler := handlers.NewCategorizeHandler(engine)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Machine-to-machine import from the chat function
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.POST("/import", importHandler.PipelineImport)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(appConfig.JWTSecret))

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.GET("/:id/reconcile", accountHandler.Reconcile)

	cards := protected.Group("/cards")
	cards.POST("", cardHandler.CreateCard)
	cards.GET("", cardHandler.GetUserCards)
	cards.GET("/:id", cardHandler.GetCardByID)
	cards.POST("/:id/purchases", cardHandler.CreatePurchase)
	cards.POST("/:id/payments", cardHandler.RecordPayment)

	installments := protected.Group("/installments")
	installments.POST("", installmentHandler.CreateAccountPurchase)
	installments.GET("/:id", installmentHandler.GetPlan)
	installments.POST("/:id/retry", installmentHandler.RetryPlan)

	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PATCH("/:id/date", transactionHandler.MarkPaid)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	tags := protected.Group("/tags")
	tags.POST("", tagHandler.CreateTag)
	tags.GET("", tagHandler.GetUserTags)

	imports := protected.Group("/imports")
	imports.POST("/preview", importHandler.Preview)
	imports.POST("/commit", importHandler.Commit)

	protected.POST("/categorize", categorizeHandler.Categorize)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	reports := protected.Group("/reports")
	reports.GET("/summary", reportHandler.Summary)
	reports.GET("/validation", reportHandler.Validation)
	reports.GET("/monthly", reportHandler.Monthly)

	log.Infof("Starting Moneta backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
