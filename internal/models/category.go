package models

// CategoryType represents the type partition of a category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category. Names are unique per user
// within a type partition, so "Viagem" may exist as income and as expense.
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Color       string       `json:"color"`
}
