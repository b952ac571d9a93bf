package importer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyTokens = []string{"R$", "US$", "BRL", "USD", "EUR", "$", "€", "£"}
	plainDecimal   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseAmount converts a locale-formatted amount into a decimal. It accepts
// "1.234,56", "1,234.56", "150,00", "R$ -42,10" and "(42.10)". The second
// return value is false when raw is not a number; it never panics.
// Canonical input such as "150.00" comes back unchanged.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	upper := strings.ToUpper(s)
	for _, tok := range currencyTokens {
		upper = strings.ReplaceAll(upper, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, upper)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = !negative
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	s = normalizeSeparators(s)
	if !plainDecimal.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeSeparators rewrites s so that "." is the only decimal separator
// and thousands separators are gone. When both separators appear the last one
// is the decimal mark; a single comma is a decimal comma; repeated marks of
// one kind are thousands separators.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// FormatAmount renders d with two decimal places, the canonical wire form.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
