// Package importer decodes bank exports (OFX, XLSX and chat JSON) into rows
// and normalizes their amounts, dates and type hints.
package importer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/textnorm"
)

// Format identifies a supported import source.
type Format string

const (
	FormatOFX  Format = "ofx"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrMalformedFile     = errors.New("malformed import file")
	ErrMissingColumns    = errors.New("required columns not found")
)

// Row is one raw transaction as found in the source, before normalization.
type Row struct {
	Line         int      `json:"line"`
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	TypeHint     string   `json:"type_hint,omitempty"`
	CategoryHint string   `json:"category_hint,omitempty"`
	TagsHint     []string `json:"tags_hint,omitempty"`
	ExternalID   string   `json:"external_id,omitempty"`
}

// Progress is reported while a parser walks its rows.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Percent   int `json:"progress"`
}

// Options tunes a parse run.
type Options struct {
	// OnProgress is called at every 10% boundary. It must not block.
	OnProgress func(Progress)
}

// progressTracker emits one event per crossed decile and a final one.
type progressTracker struct {
	total      int
	lastDecile int
	fn         func(Progress)
}

func newProgressTracker(total int, fn func(Progress)) *progressTracker {
	return &progressTracker{total: total, lastDecile: -1, fn: fn}
}

func (p *progressTracker) step(processed int) {
	if p.fn == nil || p.total == 0 {
		return
	}
	percent := processed * 100 / p.total
	decile := percent / 10
	if decile <= p.lastDecile {
		return
	}
	p.lastDecile = decile
	p.fn(Progress{Processed: processed, Total: p.total, Percent: percent})
}

// acceptRow applies the row-level skip rule shared by all parsers: date,
// description and amount must be present and the amount must be a non-zero
// number. Rejected rows are logged and dropped.
func acceptRow(format Format, row Row) bool {
	reason := ""
	switch {
	case strings.TrimSpace(row.Date) == "":
		reason = "missing date"
	case strings.TrimSpace(row.Description) == "":
		reason = "missing description"
	case strings.TrimSpace(row.Amount) == "":
		reason = "missing amount"
	default:
		amount, ok := ParseAmount(row.Amount)
		if !ok {
			reason = "amount is not a number"
		} else if amount.IsZero() {
			reason = "amount is zero"
		}
	}
	if reason == "" {
		return true
	}
	logger.Named("importer").Warnw("skipping row",
		"format", format,
		"line", row.Line,
		"reason", reason,
	)
	return false
}

// ParseTypeHint maps free-text type labels (pt-BR and English) onto a
// transaction type.
func ParseTypeHint(hint string) (models.TransactionType, bool) {
	switch textnorm.Fold(hint) {
	case "income", "receita", "entrada", "credito", "credit", "c", "recebimento":
		return models.TransactionTypeIncome, true
	case "expense", "despesa", "saida", "debito", "debit", "d", "pagamento", "gasto":
		return models.TransactionTypeExpense, true
	}
	return "", false
}

// Normalized is a row with a canonical date, a positive amount and a type.
type Normalized struct {
	Line         int                    `json:"line"`
	Date         string                 `json:"date"`
	Description  string                 `json:"description"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         models.TransactionType `json:"type"`
	CategoryHint string                 `json:"category,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	ExternalID   string                 `json:"external_id,omitempty"`
}

// RowError describes a row that could not be normalized.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Row    Row    `json:"row"`
}

// Normalize converts parsed rows into canonical form. Rows that fail are
// returned as RowErrors and never abort the batch. Signed amounts are folded
// into the type here: a negative amount without a type hint is an expense,
// and the stored amount is always the absolute value.
func Normalize(rows []Row) ([]Normalized, []RowError) {
	out := make([]Normalized, 0, len(rows))
	var rowErrs []RowError
	for _, row := range rows {
		date, ok := NormalizeDate(row.Date)
		if !ok {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Reason: "invalid date " + quote(row.Date), Row: row})
			continue
		}
		amount, ok := ParseAmount(row.Amount)
		if !ok || amount.IsZero() {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Reason: "invalid amount " + quote(row.Amount), Row: row})
			continue
		}
		description := strings.Join(strings.Fields(row.Description), " ")
		if description == "" {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Reason: "missing description", Row: row})
			continue
		}

		txType, ok := ParseTypeHint(row.TypeHint)
		if !ok {
			txType = models.TransactionTypeIncome
			if amount.IsNegative() {
				txType = models.TransactionTypeExpense
			}
		}

		out = append(out, Normalized{
			Line:         row.Line,
			Date:         date,
			Description:  description,
			Amount:       amount.Abs(),
			Type:         txType,
			CategoryHint: strings.TrimSpace(row.CategoryHint),
			Tags:         cleanTags(row.TagsHint),
			ExternalID:   row.ExternalID,
		})
	}
	return out, rowErrs
}

func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := textnorm.NameKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// splitTags splits a spreadsheet tags cell on commas and semicolons.
func splitTags(cell string) []string {
	return strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
}

func quote(s string) string {
	return "\"" + s + "\""
}
