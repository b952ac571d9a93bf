// Package testutil provides in-memory databases, fixtures and assertions for
// service and handler tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"moneta/internal/logger"
	"moneta/internal/models"
)

// allModels is every table the services touch.
var allModels = []interface{}{
	&models.User{},
	&models.Account{},
	&models.Card{},
	&models.Category{},
	&models.Tag{},
	&models.Transaction{},
	&models.TransactionTag{},
	&models.InstallmentPlan{},
	&models.Budget{},
	&models.AuditLog{},
}

// SetupTestDB opens a private in-memory SQLite database named after the test
// and migrates every model into it.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init("test")

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}
