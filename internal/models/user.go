package models

// User mirrors the identity owned by the external auth provider. Only the id
// and email are kept locally so that rows can be scoped by owner.
type User struct {
	Base
	Email      string     `gorm:"uniqueIndex;not null" json:"email"`
	Accounts   []Account  `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
	Cards      []Card     `gorm:"foreignKey:UserID" json:"cards,omitempty"`
	Categories []Category `gorm:"foreignKey:UserID" json:"categories,omitempty"`
}
