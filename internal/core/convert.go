package core

// convert.go normalizes locale-formatted sheet values.
//
// Prices are written the Chilean way ("$7.942", "$1.234,56", "100,50"),
// stock cells carry stray text ("15 un."), and measurements mix meters,
// centimeters and millimeters. Unparseable input never fails a row: numbers
// fall back to 0 and measurements keep their text.
//
// Two measurement formatters exist on purpose. NormalizeDimension and
// FormatRawMeasure run once at ingestion and produce the unit-tagged strings
// that are persisted. FormatDimension is for display and leaves unit-tagged
// strings alone, so applying it to persisted values never converts twice.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// maxThousandsDigits is the longest digit run in which periods are read as
// thousands separators when no comma is present.
const maxThousandsDigits = 6

var currencySymbols = []string{"US$", "USD", "CLP", "$", "€", "£"}

// unitSuffix matches a measurement that already names its unit.
var unitSuffix = regexp.MustCompile(`(?i)\d\s*(mm|cm|m)$`)

// ParseCurrency parses a price cell.
//
// With both '.' and ',' present, periods are thousands separators and the
// comma is the decimal mark. With only periods, they are thousands
// separators when the digits number at most six (or there are several
// periods), else the period is a decimal point. A single comma is a decimal
// mark; several commas are thousands separators. Returns 0 on failure.
func ParseCurrency(s string) float64 {
	s = strings.ToUpper(CleanCell(s))
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, ".-")
	if s == "" {
		return 0
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dots > 1 || (dots == 1 && countDigits(s) <= maxThousandsDigits):
		s = strings.ReplaceAll(s, ".", "")
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ParseStock keeps only the digits of a stock cell. Returns 0 when there
// are none or the number overflows.
func ParseStock(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// ParseDimensionValue parses a bare measurement number, accepting either
// '.' or ',' as the decimal mark.
func ParseDimensionValue(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// HasUnit reports whether a measurement string already names its unit.
func HasUnit(s string) bool {
	return unitSuffix.MatchString(strings.TrimSpace(s))
}

// FormatMeters renders a length given in meters: below 0.01 as whole
// millimeters, below 1 as whole centimeters, otherwise as meters with a
// decimal comma ("2,9m", "3m").
func FormatMeters(v float64) string {
	switch {
	case v < 0.01:
		return fmt.Sprintf("%dmm", int64(math.Round(v*1000)))
	case v < 1:
		return fmt.Sprintf("%dcm", int64(math.Round(v*100)))
	default:
		return decimalComma(v) + "m"
	}
}

// FormatRawMeasure renders a measurement already expressed in unit; values
// below 0.1 are taken to be meters and rendered in millimeters.
func FormatRawMeasure(v float64, unit string) string {
	if v < 0.1 {
		return fmt.Sprintf("%dmm", int64(math.Round(v*1000)))
	}
	return decimalComma(v) + unit
}

// NormalizeDimension is the ingestion formatter for width and length cells,
// which the sheet records in meters. Unit-tagged values are kept (compacted),
// text that is not a number is kept verbatim, and negative values are
// treated as absent. Zero renders as "0mm"; eligibility does not count it
// as a dimension.
func NormalizeDimension(s string) string {
	return normalizeMeasure(s, FormatMeters)
}

// NormalizeThickness is the ingestion formatter for thickness cells, which
// the sheet records in millimeters.
func NormalizeThickness(s string) string {
	return normalizeMeasure(s, func(v float64) string { return FormatRawMeasure(v, "mm") })
}

func normalizeMeasure(s string, format func(float64) string) string {
	s = strings.TrimSpace(CleanCell(s))
	if s == "" {
		return ""
	}
	if HasUnit(s) {
		return strings.ToLower(strings.Join(strings.Fields(s), ""))
	}
	v, ok := ParseDimensionValue(s)
	if !ok {
		return s
	}
	if v < 0 {
		return ""
	}
	return format(v)
}

// FormatDimension is the display formatter. Persisted values already carry
// a unit and are returned unchanged; bare numbers are read as meters.
func FormatDimension(stored string) string {
	stored = strings.TrimSpace(stored)
	if stored == "" || HasUnit(stored) {
		return stored
	}
	v, ok := ParseDimensionValue(stored)
	if !ok || v <= 0 {
		return stored
	}
	return FormatMeters(v)
}

// decimalComma formats v with at most three decimals and a decimal comma.
func decimalComma(v float64) string {
	v = math.Round(v*1000) / 1000
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// CleanCell removes common spreadsheet export artifacts from a cell:
// surrounding whitespace and an Excel formula wrapper (="...").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(s)
}
