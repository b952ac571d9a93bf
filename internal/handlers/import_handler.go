package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/importer"
	"moneta/internal/services"
)

// ImportHandler handles file previews, reviewed commits and the chat
// import function.
type ImportHandler struct {
	importService  services.ImportServicer
	auditService   services.AuditServicer
	maxUploadBytes int64
}

// NewImportHandler creates a new ImportHandler. Uploads larger than
// maxUploadBytes are rejected before parsing.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService, maxUploadBytes: maxUploadBytes}
}

// multipartSlack covers form boundaries and headers around the file part.
const multipartSlack = 64 << 10

func (h *ImportHandler) respondTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("The file exceeds the %d byte upload limit", h.maxUploadBytes),
	}})
}

// Preview handles parsing and categorizing an uploaded statement.
// @Summary     Preview an import
// @Description Parse an OFX, XLSX or chat JSON file, normalize and categorize its rows and resolve category and tag names. Nothing is persisted.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file   formData file   true  "Statement file"
// @Param       format formData string false "ofx, xlsx or json; inferred from the file extension when empty"
// @Success     200 {object} services.ImportPreview "Preview"
// @Failure     400 {object} ErrorResponse "Invalid input or unsupported format"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     408 {object} ErrorResponse "Import cancelled"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     422 {object} ErrorResponse "Malformed file or missing columns"
// @Failure     503 {object} ErrorResponse "Workers busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/preview [post]
func (h *ImportHandler) Preview(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartSlack)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(c)
			return
		}
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		h.respondTooLarge(c)
		return
	}

	name := c.PostForm("format")
	if name == "" {
		name = filepath.Ext(fh.Filename)
	}
	format, err := importer.ParseFormat(name)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrUnsupportedFormat, err.Error()))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	preview, err := h.importService.Preview(c.Request.Context(), userID, format, data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Commit handles booking reviewed rows.
// @Summary     Commit an import
// @Description Persist reviewed rows into one account or card, skipping duplicates. Rows that fail validation are reported by index.
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body services.ImportCommit true "Reviewed rows and mapping decisions"
// @Success     200 {object} services.ImportResult "Import result"
// @Failure     400 {object} ErrorResponse "Invalid input or mapping decision"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or card not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/commit [post]
func (h *ImportHandler) Commit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req services.ImportCommit
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.importService.Commit(userID, req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resourceType, resourceID := "account", req.AccountID
	if req.CardID != "" {
		resourceType, resourceID = "card", req.CardID
	}
	if result.Summary.Imported > 0 {
		h.auditService.Log(userID, "IMPORT_TRANSACTIONS", resourceType, resourceID, c.ClientIP(),
			map[string]interface{}{
				"total":      result.Summary.Total,
				"imported":   result.Summary.Imported,
				"duplicates": result.Summary.Duplicates,
				"errors":     result.Summary.Errors,
			})
	}

	c.JSON(http.StatusOK, result)
}

// PipelineImport handles rows pushed by the chat import function.
// @Summary     Pipeline import
// @Description Book rows extracted from a chat message into an account. The owner is derived from the account.
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    PipelineKey
// @Param       request body services.PipelineImport true "Rows to import"
// @Success     200 {object} services.ImportResult "Import result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/import [post]
func (h *ImportHandler) PipelineImport(c *gin.Context) {
	var req services.PipelineImport
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.importService.PipelineImport(req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
