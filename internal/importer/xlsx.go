package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"moneta/internal/textnorm"
)

type columnRole string

const (
	roleDate        columnRole = "date"
	roleDescription columnRole = "description"
	roleAmount      columnRole = "amount"
	roleType        columnRole = "type"
	roleCategory    columnRole = "category"
	roleTags        columnRole = "tags"
)

// headerSynonyms is matched in order against folded header names. The first
// header containing any synonym claims the role.
var headerSynonyms = []struct {
	role     columnRole
	synonyms []string
}{
	{roleDate, []string{"data", "date"}},
	{roleDescription, []string{"desc", "memo", "historico"}},
	{roleAmount, []string{"valor", "amount"}},
	{roleType, []string{"tipo", "type"}},
	{roleCategory, []string{"categoria", "category"}},
	{roleTags, []string{"tag", "etiqueta"}},
}

var requiredRoles = []columnRole{roleDate, roleDescription, roleAmount}

// detectColumns maps each role to the index of the first matching header.
// A header claimed by an earlier role is not reused.
func detectColumns(header []string) map[columnRole]int {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = textnorm.Fold(h)
	}

	cols := make(map[columnRole]int)
	claimed := make(map[int]bool)
	for _, entry := range headerSynonyms {
	headers:
		for i, h := range folded {
			if h == "" || claimed[i] {
				continue
			}
			for _, syn := range entry.synonyms {
				if strings.Contains(h, syn) {
					cols[entry.role] = i
					claimed[i] = true
					break headers
				}
			}
		}
	}
	return cols
}

// ParseXLSX reads the first non-empty sheet of a workbook. The first
// non-blank row is the header; column roles are detected from it.
func ParseXLSX(r io.Reader, opts Options) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	var records [][]string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		if len(rows) > 0 {
			records = rows
			break
		}
	}

	headerAt := -1
	for i, rec := range records {
		if strings.TrimSpace(strings.Join(rec, "")) != "" {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%w: workbook has no rows", ErrMalformedFile)
	}

	cols := detectColumns(records[headerAt])
	var missing []string
	for _, role := range requiredRoles {
		if _, ok := cols[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	data := records[headerAt+1:]
	progress := newProgressTracker(len(data), opts.OnProgress)
	out := make([]Row, 0, len(data))
	for i, rec := range data {
		row := Row{
			// Spreadsheet line numbers are 1-based and include the header.
			Line:         headerAt + i + 2,
			Date:         cell(rec, cols, roleDate),
			Description:  cell(rec, cols, roleDescription),
			Amount:       cell(rec, cols, roleAmount),
			TypeHint:     cell(rec, cols, roleType),
			CategoryHint: cell(rec, cols, roleCategory),
			TagsHint:     splitTags(cell(rec, cols, roleTags)),
		}
		if acceptRow(FormatXLSX, row) {
			out = append(out, row)
		}
		progress.step(i + 1)
	}
	return out, nil
}

func cell(rec []string, cols map[columnRole]int, role columnRole) string {
	idx, ok := cols[role]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
