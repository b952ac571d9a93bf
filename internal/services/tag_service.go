package services

import (
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/mapping"
	"moneta/internal/models"
	"moneta/internal/textnorm"
)

type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// CreateTag creates a tag. Tag names are unique per user regardless of case.
func (s *tagService) CreateTag(userID, name, color string) (*models.Tag, error) {
	name = textnorm.Collapse(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tag name is required")
	}

	tags, err := s.GetUserTags(userID)
	if err != nil {
		return nil, err
	}
	key := mapping.TagKey(name)
	for _, t := range tags {
		if mapping.TagKey(t.Name) == key {
			return nil, apperrors.ErrDuplicateTag
		}
	}

	if color == "" {
		color = mapping.RandomColor()
	}
	tag := &models.Tag{UserID: userID, Name: name, Color: color, IsActive: true}
	if err := s.db.Create(tag).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tag, nil
}

// GetUserTags lists the user's active tags by name.
func (s *tagService) GetUserTags(userID string) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Order("name").Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tags, nil
}
