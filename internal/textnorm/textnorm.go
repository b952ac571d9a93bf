// Package textnorm folds free text so that bank descriptions, spreadsheet
// headers and user-entered names compare reliably.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses runs of whitespace.
// "  PIX  Recebido - João " becomes "pix recebido - joao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// NameKey is the case-insensitive identity of a user-visible name. Accents
// are kept: "Saúde" and "saude" are different names.
func NameKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Collapse trims s and collapses inner whitespace, keeping case and accents.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
