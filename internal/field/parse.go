package field

// parse.go converts the strings posted for table cells into typed values.
//
// These functions accept the messy reality of hand-typed numbers and dates:
//   - Multiple date formats (US, EU, ISO, compact)
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives "(12.50)"
//   - Various boolean representations (yes/no, true/false, 1/0)
//
// Parse returns (nil, nil) for "no value": the caller decides whether that
// deletes a record, leaves a field untouched or falls back to a default.

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// Parse converts raw into a value of spec's type.
//
// An empty (whitespace only) string is "no value" unless the field allows
// empty strings, in which case it parses to the type's empty value.
// Failures are returned as ValidationError.
func Parse(raw string, spec Spec) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if !spec.AllowEmpty {
			return nil, nil
		}
		return emptyValue(spec.Type), nil
	}

	if spec.Normalizer != nil {
		s = spec.Normalizer(s)
	}

	var (
		v   any
		msg string
	)
	switch spec.Type {
	case Integer:
		if i, ok := ParseInteger(s); ok {
			v = i
		} else {
			msg = "invalid number format, whole number expected"
		}
	case Decimal:
		if d, ok := ParseDecimal(s); ok {
			v = d
		} else {
			msg = "invalid number format"
		}
	case Date:
		if d, ok := ParseDate(s); ok {
			v = d
		} else {
			msg = "invalid date format (use YYYY-MM-DD or similar)"
		}
	case Bool:
		if b, ok := ParseBool(s); ok {
			v = b
		} else {
			msg = "must be yes/no, true/false, or 1/0"
		}
	case Enum:
		if e, ok := matchEnum(s, spec.EnumValues); ok {
			v = e
		} else {
			msg = "invalid enum value, must be one of: " + strings.Join(spec.EnumValues, ", ")
		}
	default:
		v = s
	}

	if msg != "" {
		return nil, ValidationError{Field: spec.DisplayLabel(), Value: raw, Message: msg}
	}
	return v, nil
}

func emptyValue(t Type) any {
	switch t {
	case Integer:
		return int64(0)
	case Decimal:
		return decimal.Zero
	case Bool:
		return false
	case Date:
		return time.Time{}
	default:
		return ""
	}
}

// ParseInteger parses a whole number, tolerating thousands separators and a
// trailing ".0" fraction. Numbers outside the int64 range are rejected.
func ParseInteger(s string) (int64, bool) {
	d, ok := ParseDecimal(s)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, false
	}
	return d.IntPart(), true
}

// ParseDecimal parses a decimal number.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseDate parses a calendar date into a UTC midnight time.
// Supports multiple date formats and handles 2-digit years with pivot.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseBool accepts true/false, yes/no, t/f, y/n, 1/0 in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

func matchEnum(s string, values []string) (string, bool) {
	if len(values) == 0 {
		return s, true
	}
	for _, ev := range values {
		if strings.EqualFold(ev, s) {
			return ev, true
		}
	}
	return "", false
}
