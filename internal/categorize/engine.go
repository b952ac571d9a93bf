// Package categorize assigns categories to transaction descriptions from a
// keyword table and flags descriptions whose wording contradicts the
// declared transaction type.
package categorize

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"moneta/internal/models"
	"moneta/internal/textnorm"
)

const (
	MethodKeyword  = "keyword"
	MethodFallback = "fallback"
)

// Result is the outcome of categorizing one transaction. CorrectedType is
// advisory: callers show it and let the user decide.
type Result struct {
	Category             string                 `json:"category"`
	Confidence           int                    `json:"confidence"`
	Method               string                 `json:"method"`
	MatchedKeyword       string                 `json:"matched_keyword,omitempty"`
	ImpliedType          models.TransactionType `json:"implied_type,omitempty"`
	CorrectedType        models.TransactionType `json:"corrected_type,omitempty"`
	TypeCorrectionReason string                 `json:"type_correction_reason,omitempty"`
	ValidationWarnings   []string               `json:"validation_warnings"`
}

type compiledRule struct {
	Rule
	folded string
}

type compiledSignal struct {
	Signal
	folded string
}

// Engine matches descriptions against a Table. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	fallback string
	rules    []compiledRule
	signals  []compiledSignal
	now      func() time.Time
}

// NewEngine compiles table. A nil table means DefaultTable.
func NewEngine(table *Table) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	e := &Engine{fallback: table.Fallback, now: time.Now}
	if e.fallback == "" {
		e.fallback = "Outros"
	}
	for _, r := range table.Rules {
		e.rules = append(e.rules, compiledRule{Rule: r, folded: textnorm.Fold(r.Keyword)})
	}
	for _, s := range table.Signals {
		e.signals = append(e.signals, compiledSignal{Signal: s, folded: textnorm.Fold(s.Phrase)})
	}
	return e
}

// Categorize runs the keyword pass, the type-correction pass and the soft
// validations over one transaction. originalType may be empty; date may be nil.
func (e *Engine) Categorize(description string, amount decimal.Decimal, originalType string, date *time.Time) Result {
	text := textnorm.Fold(description)
	res := Result{Category: e.fallback, Method: MethodFallback, ValidationWarnings: []string{}}

	rule := e.matchRule(text)
	if rule != nil {
		res.Category = rule.Category
		res.Confidence = rule.Confidence
		res.Method = MethodKeyword
		res.MatchedKeyword = rule.Keyword
		res.ImpliedType = rule.Type
	}

	declared := models.TransactionType(strings.ToLower(strings.TrimSpace(originalType)))
	if sig := e.matchSignal(text); sig != nil {
		res.ImpliedType = sig.Type
		if declared.Valid() && declared != sig.Type {
			res.CorrectedType = sig.Type
			res.TypeCorrectionReason = correctionReason(sig, declared)
		}
	}

	final := declared
	if res.CorrectedType != "" {
		final = res.CorrectedType
	}
	res.ValidationWarnings = e.warnings(text, amount, date, rule, final)
	return res
}

// matchRule returns the longest matching keyword; equal lengths keep the
// rule defined first.
func (e *Engine) matchRule(text string) *compiledRule {
	var best *compiledRule
	for i := range e.rules {
		r := &e.rules[i]
		if !strings.Contains(text, r.folded) {
			continue
		}
		if best == nil || len(r.folded) > len(best.folded) {
			best = r
		}
	}
	return best
}

func (e *Engine) matchSignal(text string) *compiledSignal {
	var best *compiledSignal
	for i := range e.signals {
		s := &e.signals[i]
		if !strings.Contains(text, s.folded) {
			continue
		}
		if best == nil || len(s.folded) > len(best.folded) {
			best = s
		}
	}
	return best
}

func correctionReason(sig *compiledSignal, declared models.TransactionType) string {
	reason := fmt.Sprintf("description contains %q, which indicates %s, but the transaction was marked as %s",
		sig.Phrase, sig.Type, declared)
	if sig.Reason != "" {
		reason += ": " + sig.Reason
	}
	return reason
}

func (e *Engine) warnings(text string, amount decimal.Decimal, date *time.Time, rule *compiledRule, final models.TransactionType) []string {
	out := []string{}
	if amount.IsZero() {
		out = append(out, "amount is zero")
	}

	letters, digits := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	switch {
	case letters == 0 && digits > 0:
		out = append(out, "description is only numbers")
	case letters < 3:
		out = append(out, "description is too short to categorize reliably")
	}

	if date != nil {
		today := e.now().UTC().Truncate(24 * time.Hour)
		if date.UTC().After(today.Add(24*time.Hour - time.Nanosecond)) {
			out = append(out, fmt.Sprintf("date %s is in the future", date.Format("2006-01-02")))
		}
	}

	if rule != nil && final.Valid() && rule.Type != final {
		out = append(out, fmt.Sprintf("category %s is usually %s but the transaction is %s", rule.Category, rule.Type, final))
	}
	return out
}
