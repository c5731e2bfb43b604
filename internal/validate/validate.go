// Package validate checks and normalizes raw request input.
//
// Every validator returns the normalized value and ok == false when the input
// is rejected. Callers turn a false result into a field-specific message.
package validate

import (
	"encoding/json"
	"html"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxEmailLength = 255
	minNameLength  = 2
	maxNameLength  = 100
	minPhoneLength = 7
	maxPhoneLength = 20
)

// DateLayout is the only accepted date shape.
const DateLayout = "2006-01-02"

var (
	namePattern    = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	phoneStripper  = regexp.MustCompile(`[^0-9+\-()\s]`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
)

// Name accepts 2-100 letters, spaces, hyphens and apostrophes.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < minNameLength || n > maxNameLength {
		return "", false
	}
	if !namePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Email lower-cases the address and checks it is a bare addr-spec with a
// dotted domain.
func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > maxEmailLength {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return s, true
}

// Phone strips everything except digits, +, -, parentheses and spaces.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(phoneStripper.ReplaceAllString(s, ""))
	if len(s) < minPhoneLength || len(s) > maxPhoneLength {
		return "", false
	}
	return s, true
}

// Date parses a YYYY-MM-DD calendar date that is not before today.
// Today is taken from now in its own location.
func Date(s string, now time.Time) (time.Time, bool) {
	d, ok := CalendarDate(s)
	if !ok {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return time.Time{}, false
	}
	return d, true
}

// CalendarDate parses a YYYY-MM-DD date without the past-date check.
// The result is midnight UTC.
func CalendarDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Time accepts HH:MM on a 24-hour clock.
func Time(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !timePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Text trims s, bounds its length in characters and HTML-escapes the result.
func Text(s string, max, min int) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < min || n > max {
		return "", false
	}
	return html.EscapeString(s), true
}

// OptionalText is Text with a zero minimum; empty input yields "".
func OptionalText(s string, max int) (string, bool) {
	return Text(s, max, 0)
}

// Price coerces v to a decimal in [min, max] rounded to two places.
// v may be a JSON number, a numeric string, or a Go numeric value.
func Price(v any, min, max decimal.Decimal) (decimal.Decimal, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero, false
	}
	if d.LessThan(min) || d.GreaterThan(max) {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// Integer coerces v to an integer in [min, max]. Fractional values are rejected.
func Integer(v any, min, max int64) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		n = int64(x)
	case json.Number:
		return Integer(string(x), min, max)
	case string:
		s := strings.TrimSpace(x)
		if !integerPattern.MatchString(s) {
			return 0, false
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if n < min || n > max {
		return 0, false
	}
	return n, true
}

// OneOf reports whether s is one of allowed.
func OneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		return toDecimal(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}
