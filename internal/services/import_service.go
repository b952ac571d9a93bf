package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/categorize"
	apperrors "moneta/internal/errors"
	"moneta/internal/importer"
	"moneta/internal/logger"
	"moneta/internal/mapping"
	"moneta/internal/models"
	"moneta/internal/textnorm"
	"moneta/internal/worker"
)

// PreviewRow is a normalized row with the engine's categorization.
type PreviewRow struct {
	importer.Normalized
	Categorization categorize.Result `json:"categorization"`
}

// ImportPreview is what a client reviews before committing an import.
// Nothing in it has been persisted.
type ImportPreview struct {
	Format       importer.Format     `json:"format"`
	Transactions []PreviewRow        `json:"transactions"`
	Mappings     mapping.Result      `json:"mappings"`
	Skipped      []importer.RowError `json:"skipped"`
}

// ImportRow is one transaction submitted for commit.
type ImportRow struct {
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Amount      importer.FlexAmount `json:"amount" swaggertype:"string"`
	Type        string              `json:"type"`
	Category    string              `json:"category,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	ExternalID  string              `json:"external_id,omitempty"`
}

// ImportCommit persists reviewed rows into exactly one account or card.
// The mappings are the preview's, possibly edited by the user.
type ImportCommit struct {
	AccountID        string                    `json:"account_id"`
	CardID           string                    `json:"card_id"`
	Transactions     []ImportRow               `json:"transactions"`
	CategoryMappings []mapping.CategoryMapping `json:"category_mappings"`
	TagMappings      []mapping.TagMapping      `json:"tag_mappings"`
}

// PipelineImport is pushed by the chat import function. The owner is
// derived from the account.
type PipelineImport struct {
	AccountID    string      `json:"account_id" binding:"required"`
	Transactions []ImportRow `json:"transactions"`
}

// ImportRowError reports a rejected row by its index in the request.
type ImportRowError struct {
	Index       int       `json:"index"`
	Transaction ImportRow `json:"transaction"`
	Error       string    `json:"error"`
}

// ImportSummary counts the outcome of every submitted row.
type ImportSummary struct {
	Total      int `json:"total"`
	Imported   int `json:"imported"`
	Errors     int `json:"errors"`
	Duplicates int `json:"duplicates"`
}

// ImportDetails carries the per-row outcome.
type ImportDetails struct {
	ImportedIDs    []string         `json:"imported_ids"`
	Errors         []ImportRowError `json:"errors"`
	AccountUpdated bool             `json:"account_updated"`
}

// ImportResult is the response of a commit. Success is true when no row
// was rejected; duplicates are not errors.
type ImportResult struct {
	Success bool          `json:"success"`
	Summary ImportSummary `json:"summary"`
	Details ImportDetails `json:"details"`
}

// importTarget is the account or card the rows are booked against.
type importTarget struct {
	accountID *string
	cardID    *string
}

func (t importTarget) key() string {
	if t.accountID != nil {
		return "account:" + *t.accountID
	}
	return "card:" + *t.cardID
}

// validRow is an ImportRow that passed validation.
type validRow struct {
	index       int
	date        time.Time
	txType      models.TransactionType
	amount      decimal.Decimal
	description string
	category    string
	tags        []string
	notes       string
	externalID  string
}

type importService struct {
	db             *gorm.DB
	parser         Parser
	categorizer    Categorizer
	accountService AccountServicer
	cardService    CardServicer
	autoCreate     bool
}

// NewImportService creates a new ImportServicer. autoCreate selects create
// over ignore for category and tag names the user does not have yet.
func NewImportService(
	db *gorm.DB,
	parser Parser,
	categorizer Categorizer,
	accountService AccountServicer,
	cardService CardServicer,
	autoCreate bool,
) ImportServicer {
	return &importService{
		db:             db,
		parser:         parser,
		categorizer:    categorizer,
		accountService: accountService,
		cardService:    cardService,
		autoCreate:     autoCreate,
	}
}

// Preview parses data on the worker pool, normalizes and categorizes every
// row, and resolves the category and tag names against the user's own.
func (s *importService) Preview(ctx context.Context, userID string, format importer.Format, data []byte) (*ImportPreview, error) {
	log := logger.Named("import")
	if len(data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrMalformedFile, "the file is empty")
	}

	rows, err := s.parser.Parse(ctx, format, data, func(p importer.Progress) {
		log.Debugw("parse progress", "user_id", userID, "format", format, "progress", p.Percent, "processed", p.Processed, "total", p.Total)
	})
	if err != nil {
		return nil, parseError(err)
	}

	normalized, skipped := importer.Normalize(rows)
	preview := &ImportPreview{
		Format:       format,
		Transactions: make([]PreviewRow, 0, len(normalized)),
		Skipped:      skipped,
	}
	if preview.Skipped == nil {
		preview.Skipped = []importer.RowError{}
	}

	mapRows := make([]mapping.Row, 0, len(normalized))
	for _, n := range normalized {
		var datePtr *time.Time
		if d, err := importer.ParseISODate(n.Date); err == nil {
			datePtr = &d
		}
		result := s.categorizer.Categorize(n.Description, n.Amount, string(n.Type), datePtr)
		if n.CategoryHint == "" {
			n.CategoryHint = result.Category
		}
		preview.Transactions = append(preview.Transactions, PreviewRow{Normalized: n, Categorization: result})
		mapRows = append(mapRows, mapping.Row{Type: n.Type, Category: n.CategoryHint, Tags: n.Tags})
	}

	categories, tags, err := s.existing(userID)
	if err != nil {
		return nil, err
	}
	preview.Mappings = mapping.Resolver{AutoCreate: s.autoCreate}.Resolve(mapRows, categories, tags)

	log.Infow("import previewed",
		"user_id", userID,
		"format", format,
		"rows", len(preview.Transactions),
		"skipped", len(skipped),
	)
	return preview, nil
}

// parseError maps parser and worker failures onto AppErrors.
func parseError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.ErrImportCancelled, err)
	case errors.Is(err, worker.ErrBusy):
		return apperrors.Wrap(apperrors.ErrWorkerBusy, err)
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return apperrors.WithMessage(apperrors.ErrUnsupportedFormat, err.Error())
	case errors.Is(err, importer.ErrMissingColumns):
		return apperrors.WithMessage(apperrors.ErrMissingColumns, err.Error())
	case errors.Is(err, importer.ErrMalformedFile):
		return apperrors.WithMessage(apperrors.ErrMalformedFile, err.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// existing loads the user's categories and active tags in resolver form.
func (s *importService) existing(userID string) ([]mapping.Existing, []mapping.Existing, error) {
	var categories []models.Category
	if err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&categories).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var tags []models.Tag
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Order("created_at").Find(&tags).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	cats := make([]mapping.Existing, len(categories))
	for i, c := range categories {
		cats[i] = mapping.Existing{ID: c.ID, Name: c.Name, Type: models.TransactionType(c.Type)}
	}
	tgs := make([]mapping.Existing, len(tags))
	for i, t := range tags {
		tgs[i] = mapping.Existing{ID: t.ID, Name: t.Name}
	}
	return cats, tgs, nil
}

// Commit books the reviewed rows against one account or card.
func (s *importService) Commit(userID string, req ImportCommit) (*ImportResult, error) {
	accountID := strings.TrimSpace(req.AccountID)
	cardID := strings.TrimSpace(req.CardID)
	if (accountID == "") == (cardID == "") {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exactly one of account_id or card_id is required")
	}

	var target importTarget
	if accountID != "" {
		if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
			return nil, err
		}
		target.accountID = &accountID
	} else {
		if _, err := s.cardService.GetCardByID(userID, cardID); err != nil {
			return nil, err
		}
		target.cardID = &cardID
	}

	valid, rowErrs := validateRows(req.Transactions)

	categories, tags, err := s.existing(userID)
	if err != nil {
		return nil, err
	}
	resolved := mapping.Resolver{AutoCreate: s.autoCreate}.Resolve(mappingRows(valid), categories, tags)

	decisions := make([]mapping.Decision, 0, len(req.CategoryMappings)+len(req.TagMappings))
	for _, m := range req.CategoryMappings {
		decisions = append(decisions, mapping.Decision{Kind: "category", Name: m.Name, Type: m.Type, Action: m.Action, ID: m.ResolvedID})
	}
	for _, m := range req.TagMappings {
		decisions = append(decisions, mapping.Decision{Kind: "tag", Name: m.Name, Action: m.Action, ID: m.ResolvedID})
	}
	resolved, err = mapping.ApplyDecisions(resolved, decisions)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidMappingDecision, err.Error())
	}
	if err := checkMapTargets(resolved, categories, tags); err != nil {
		return nil, err
	}

	resolved, err = s.createMapped(userID, resolved)
	if err != nil {
		return nil, err
	}

	return s.book(userID, target, req.Transactions, valid, rowErrs, resolved), nil
}

// PipelineImport books rows pushed by the chat import function. Categories
// resolve against the account owner's own entities only: unknown categories
// stay unset and unknown tags are dropped.
func (s *importService) PipelineImport(req PipelineImport) (*ImportResult, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND is_active = ?", req.AccountID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	valid, rowErrs := validateRows(req.Transactions)
	categories, tags, err := s.existing(account.UserID)
	if err != nil {
		return nil, err
	}
	resolved := mapping.Resolver{AutoCreate: false}.Resolve(mappingRows(valid), categories, tags)

	accountID := account.ID
	target := importTarget{accountID: &accountID}
	return s.book(account.UserID, target, req.Transactions, valid, rowErrs, resolved), nil
}

// validateRows applies the commit rules: an exact "YYYY-MM-DD" calendar
// date, a type of exactly income or expense, and a positive amount.
func validateRows(rows []ImportRow) ([]validRow, []ImportRowError) {
	valid := make([]validRow, 0, len(rows))
	var rowErrs []ImportRowError
	for i, row := range rows {
		reject := func(msg string) {
			rowErrs = append(rowErrs, ImportRowError{Index: i, Transaction: row, Error: msg})
		}

		date, err := importer.ParseISODate(strings.TrimSpace(row.Date))
		if err != nil {
			reject(err.Error())
			continue
		}
		txType := models.TransactionType(row.Type)
		if !txType.Valid() {
			reject(fmt.Sprintf("invalid type %q, expected income or expense", row.Type))
			continue
		}
		amount, ok := importer.ParseAmount(string(row.Amount))
		if !ok || !amount.IsPositive() {
			reject(fmt.Sprintf("invalid amount %q, expected a positive number", string(row.Amount)))
			continue
		}
		description := textnorm.Collapse(row.Description)
		if description == "" {
			reject("description is required")
			continue
		}

		valid = append(valid, validRow{
			index:       i,
			date:        date,
			txType:      txType,
			amount:      amount.Round(2),
			description: description,
			category:    textnorm.Collapse(row.Category),
			tags:        row.Tags,
			notes:       row.Notes,
			externalID:  strings.TrimSpace(row.ExternalID),
		})
	}
	return valid, rowErrs
}

func mappingRows(valid []validRow) []mapping.Row {
	out := make([]mapping.Row, len(valid))
	for i, v := range valid {
		out[i] = mapping.Row{Type: v.txType, Category: v.category, Tags: v.tags}
	}
	return out
}

// checkMapTargets rejects map decisions pointing at entities the user does
// not own, or at a category of the other type.
func checkMapTargets(res mapping.Result, categories, tags []mapping.Existing) error {
	catType := make(map[string]models.TransactionType, len(categories))
	for _, c := range categories {
		catType[c.ID] = c.Type
	}
	tagIDs := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagIDs[t.ID] = struct{}{}
	}

	for _, m := range res.Categories {
		if m.Action != mapping.ActionMap {
			continue
		}
		t, ok := catType[m.ResolvedID]
		if !ok {
			return apperrors.WithMessage(apperrors.ErrInvalidMappingDecision, fmt.Sprintf("category %q maps to an unknown category", m.Name))
		}
		if t != m.Type {
			return apperrors.WithMessage(apperrors.ErrInvalidMappingDecision, fmt.Sprintf("category %q is %s but maps to a %s category", m.Name, m.Type, t))
		}
	}
	for _, m := range res.Tags {
		if m.Action != mapping.ActionMap {
			continue
		}
		if _, ok := tagIDs[m.ResolvedID]; !ok {
			return apperrors.WithMessage(apperrors.ErrInvalidMappingDecision, fmt.Sprintf("tag %q maps to an unknown tag", m.Name))
		}
	}
	return nil
}

// createMapped creates every entity marked create and turns those mappings
// into map mappings pointing at the new ids.
func (s *importService) createMapped(userID string, res mapping.Result) (mapping.Result, error) {
	log := logger.Named("import")
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i, m := range res.Categories {
			if m.Action != mapping.ActionCreate {
				continue
			}
			category := &models.Category{
				UserID: userID,
				Name:   m.Name,
				Type:   models.CategoryType(m.Type),
				Color:  mapping.RandomColor(),
			}
			if err := tx.Create(category).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			res.Categories[i].Action = mapping.ActionMap
			res.Categories[i].ResolvedID = category.ID
			log.Infow("category created from import", "user_id", userID, "category_id", category.ID, "name", m.Name, "type", m.Type)
		}
		for i, m := range res.Tags {
			if m.Action != mapping.ActionCreate {
				continue
			}
			tag := &models.Tag{UserID: userID, Name: m.Name, Color: mapping.RandomColor(), IsActive: true}
			if err := tx.Create(tag).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			res.Tags[i].Action = mapping.ActionMap
			res.Tags[i].ResolvedID = tag.ID
			log.Infow("tag created from import", "user_id", userID, "tag_id", tag.ID, "name", m.Name)
		}
		return nil
	})
	return res, err
}

// Fingerprint is the import identity of a transaction. Re-importing the same
// statement yields the same fingerprints, so rows are inserted at most once.
// externalID is the bank's own transaction id (OFX FITID). When present it
// separates rows that agree on every other field.
func Fingerprint(userID, target string, date time.Time, txType models.TransactionType, amount decimal.Decimal, description, externalID string) string {
	parts := []string{
		userID,
		target,
		date.Format(models.DateLayout),
		string(txType),
		amount.StringFixed(2),
		strings.ToLower(textnorm.Collapse(description)),
	}
	if externalID != "" {
		parts = append(parts, "fitid:"+externalID)
	}
	key := strings.Join(parts, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// book inserts each valid row in its own database transaction together with
// its balance effect. A failing row never aborts the batch.
func (s *importService) book(userID string, target importTarget, rows []ImportRow, valid []validRow, rowErrs []ImportRowError, res mapping.Result) *ImportResult {
	log := logger.Named("import")
	result := &ImportResult{
		Summary: ImportSummary{Total: len(rows)},
		Details: ImportDetails{ImportedIDs: []string{}, Errors: []ImportRowError{}},
	}
	seen := make(map[string]struct{}, len(valid))

	for _, v := range valid {
		fp := Fingerprint(userID, target.key(), v.date, v.txType, v.amount, v.description, v.externalID)
		if _, dup := seen[fp]; dup {
			result.Summary.Duplicates++
			continue
		}
		seen[fp] = struct{}{}

		exists, err := s.fingerprintExists(userID, fp)
		if err != nil {
			rowErrs = append(rowErrs, ImportRowError{Index: v.index, Transaction: rows[v.index], Error: "failed to check for duplicates"})
			continue
		}
		if exists {
			result.Summary.Duplicates++
			continue
		}

		txn := &models.Transaction{
			UserID:            userID,
			Type:              v.txType,
			Amount:            v.amount,
			Description:       v.description,
			Date:              v.date,
			AccountID:         target.accountID,
			CardID:            target.cardID,
			Notes:             v.notes,
			InstallmentsCount: 1,
			InstallmentNumber: 1,
			Fingerprint:       &fp,
		}
		if m, ok := res.Category(v.category, v.txType); ok && m.Action == mapping.ActionMap {
			id := m.ResolvedID
			txn.CategoryID = &id
		}
		tagIDs := resolvedTags(res, v.tags)

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(txn).Error; err != nil {
				return err
			}
			for pos, tagID := range tagIDs {
				link := &models.TransactionTag{TransactionID: txn.ID, TagID: tagID, Position: pos}
				if err := tx.Create(link).Error; err != nil {
					return err
				}
			}
			if target.accountID != nil {
				return s.accountService.ApplyBalanceDelta(tx, *target.accountID, v.txType, v.amount)
			}
			// Card expenses draw the limit; card incomes are refunds.
			return s.cardService.AddUsedAmount(tx, *target.cardID, txn.SignedAmount().Neg())
		})
		if err != nil {
			// A concurrent import of the same row wins the unique index.
			if again, checkErr := s.fingerprintExists(userID, fp); checkErr == nil && again {
				result.Summary.Duplicates++
				continue
			}
			log.Errorw("failed to import row", "user_id", userID, "index", v.index, "error", err)
			rowErrs = append(rowErrs, ImportRowError{Index: v.index, Transaction: rows[v.index], Error: "failed to save transaction"})
			continue
		}
		result.Details.ImportedIDs = append(result.Details.ImportedIDs, txn.ID)
	}

	if len(rowErrs) > 0 {
		result.Details.Errors = rowErrs
	}
	result.Summary.Imported = len(result.Details.ImportedIDs)
	result.Summary.Errors = len(rowErrs)
	result.Details.AccountUpdated = result.Summary.Imported > 0
	result.Success = result.Summary.Errors == 0

	log.Infow("import committed",
		"user_id", userID,
		"target", target.key(),
		"total", result.Summary.Total,
		"imported", result.Summary.Imported,
		"duplicates", result.Summary.Duplicates,
		"errors", result.Summary.Errors,
	)
	return result
}

func (s *importService) fingerprintExists(userID, fp string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Transaction{}).Where("user_id = ? AND fingerprint = ?", userID, fp).Count(&count).Error
	return count > 0, err
}

// resolvedTags returns the ids of the mapped tags in row order, once each.
func resolvedTags(res mapping.Result, names []string) []string {
	var ids []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		m, ok := res.Tag(textnorm.Collapse(name))
		if !ok || m.Action != mapping.ActionMap {
			continue
		}
		if _, dup := seen[m.ResolvedID]; dup {
			continue
		}
		seen[m.ResolvedID] = struct{}{}
		ids = append(ids, m.ResolvedID)
	}
	return ids
}
