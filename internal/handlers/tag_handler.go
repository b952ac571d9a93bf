package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/services"
)

// TagHandler handles tag requests.
type TagHandler struct {
	tagService   services.TagServicer
	auditService services.AuditServicer
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tagService services.TagServicer, auditService services.AuditServicer) *TagHandler {
	return &TagHandler{tagService: tagService, auditService: auditService}
}

// CreateTagRequest represents the request payload for creating a tag.
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=50"`
	Color string `json:"color" binding:"omitempty,hex_color"`
}

// CreateTag handles the creation of a new tag.
// @Summary     Create a tag
// @Description Create a tag; names are unique per user ignoring case and accents
// @Tags        tags
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTagRequest true "Tag details"
// @Success     201 {object} models.Tag "Tag created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate tag"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tag, err := h.tagService.CreateTag(userID, req.Name, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TAG", "tag", tag.ID, c.ClientIP(),
		map[string]interface{}{"name": tag.Name})

	c.JSON(http.StatusCreated, gin.H{"tag": tag})
}

// GetUserTags handles listing the user's tags.
// @Summary     List tags
// @Description Get the user's active tags ordered by name
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Tag "Tags"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tags [get]
func (h *TagHandler) GetUserTags(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tags, err := h.tagService.GetUserTags(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
