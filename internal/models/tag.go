package models

// Tag is a free-form, type-agnostic label attached to transactions.
type Tag struct {
	Base
	UserID   string `gorm:"type:uuid;not null;index" json:"-"`
	Name     string `gorm:"not null" json:"name"`
	Color    string `json:"color"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// TransactionTag links a tag to a transaction. Position preserves the order
// in which tags were attached.
type TransactionTag struct {
	TransactionID string `gorm:"type:uuid;primaryKey"`
	TagID         string `gorm:"type:uuid;primaryKey"`
	Position      int    `gorm:"not null;default:0"`
}
