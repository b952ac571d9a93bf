package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODateLayout is the canonical date format produced by NormalizeDate.
const ISODateLayout = "2006-01-02"

var (
	isoPrefix    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:$|[T ])`)
	separated    = regexp.MustCompile(`^(\d{1,4})[/.-](\d{1,2})[/.-](\d{2,4})$`)
	compactDate  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})`)
	excelSerial  = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
	excelEpoch   = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	isoDateExact = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeDate converts the date encodings found in bank exports into
// "YYYY-MM-DD". Slash dates are resolved by position: a four-digit first
// segment means YYYY/MM/DD, anything else DD/MM/YYYY. OFX stamps
// ("20250915120000[-3:BRT]") and Excel serial day numbers are accepted.
// Already-ISO input is returned unchanged. The second return value is false
// for input that is not a real calendar date.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		return civil(m[1], m[2], m[3])
	}
	if m := separated.FindStringSubmatch(s); m != nil {
		if len(m[1]) == 4 {
			return civil(m[1], m[2], m[3])
		}
		if len(m[3]) == 4 || len(m[3]) == 2 {
			year := m[3]
			if len(year) == 2 {
				year = "20" + year
			}
			return civil(year, m[2], m[1])
		}
		return "", false
	}
	if excelSerial.MatchString(s) {
		days, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", false
		}
		return excelEpoch.AddDate(0, 0, int(days)).Format(ISODateLayout), true
	}
	if m := compactDate.FindStringSubmatch(s); m != nil {
		return civil(m[1], m[2], m[3])
	}
	return "", false
}

func civil(year, month, day string) (string, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return "", false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(ISODateLayout), true
}

// IsISODate reports whether s is exactly "YYYY-MM-DD" and a real date.
func IsISODate(s string) bool {
	if !isoDateExact.MatchString(s) {
		return false
	}
	_, err := time.Parse(ISODateLayout, s)
	return err == nil
}

// ParseISODate parses "YYYY-MM-DD" into midnight UTC.
func ParseISODate(s string) (time.Time, error) {
	if !IsISODate(s) {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return time.Parse(ISODateLayout, s)
}
