package importer

import (
	"regexp"
	"strings"

	"moneta/internal/models"
	"moneta/internal/textnorm"
)

// OFX is SGML-ish and banks rarely close leaf tags, so blocks and fields are
// pulled out with patterns instead of a real parser.
var (
	stmtTrnBlock = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxDate      = regexp.MustCompile(`(?i)<DTPOST(?:ED)?>\s*([^<\r\n]*)`)
	ofxAmount    = regexp.MustCompile(`(?i)<TRNAMT>\s*([^<\r\n]*)`)
	ofxMemo      = regexp.MustCompile(`(?i)<MEMO>\s*([^<\r\n]*)`)
	ofxName      = regexp.MustCompile(`(?i)<NAME>\s*([^<\r\n]*)`)
	ofxFitID     = regexp.MustCompile(`(?i)<FITID>\s*([^<\r\n]*)`)
)

// ofxFallbackCategories is a coarse memo→category table applied before the
// categorization engine sees the row.
var ofxFallbackCategories = []struct {
	category string
	keywords []string
}{
	{"Receitas", []string{"pix recebido", "salario", "ted recebida"}},
	{"Alimentação", []string{"mercado", "restaurante", "ifood", "padaria", "lanchonete"}},
	{"Transporte", []string{"posto", "uber", "99app", "combustivel", "estacionamento"}},
	{"Saúde", []string{"farmacia", "drogaria", "hospital", "clinica"}},
	{"Lazer", []string{"netflix", "spotify", "cinema"}},
	{"Moradia", []string{"aluguel", "condominio", "energia", "internet"}},
}

func ofxFallbackCategory(memo string) string {
	folded := textnorm.Fold(memo)
	for _, entry := range ofxFallbackCategories {
		for _, kw := range entry.keywords {
			if strings.Contains(folded, kw) {
				return entry.category
			}
		}
	}
	return ""
}

// ParseOFX extracts every <STMTTRN> block. The type comes from the sign of
// TRNAMT and the row amount is stored as an absolute value.
func ParseOFX(text string, opts Options) ([]Row, error) {
	blocks := stmtTrnBlock.FindAllStringSubmatch(text, -1)
	progress := newProgressTracker(len(blocks), opts.OnProgress)

	out := make([]Row, 0, len(blocks))
	for i, block := range blocks {
		body := block[1]
		memo := field(ofxMemo, body)
		if memo == "" {
			memo = field(ofxName, body)
		}

		row := Row{
			Line:        i + 1,
			Description: memo,
			Amount:      field(ofxAmount, body),
			ExternalID:  field(ofxFitID, body),
		}
		row.Date = field(ofxDate, body)
		if iso, ok := NormalizeDate(row.Date); ok {
			row.Date = iso
		}

		if acceptRow(FormatOFX, row) {
			amount, _ := ParseAmount(row.Amount)
			row.TypeHint = string(models.TransactionTypeIncome)
			if amount.IsNegative() {
				row.TypeHint = string(models.TransactionTypeExpense)
			}
			row.Amount = FormatAmount(amount.Abs())
			row.CategoryHint = ofxFallbackCategory(memo)
			out = append(out, row)
		}
		progress.step(i + 1)
	}
	return out, nil
}

func field(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
