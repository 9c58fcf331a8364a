package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	currencyCodes   = regexp.MustCompile(`(?i)(FCFA|CFA|KSH|EUR|USD|GBP|XOF|XAF|MAD|DZD|TND)`)
	currencySymbols = strings.NewReplacer("€", "", "$", "", "£", "", "¥", "", "₣", "", "₦", "", "₵", "")
)

// ErrInvalidAmount is returned when a value cannot be read as a number.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount reads a monetary value written in European or Anglo-Saxon style.
// Currency markers, spaces and apostrophes are ignored, "(x)" and a trailing
// minus mean negative. When both "," and "." appear the last one is the decimal
// mark; a lone comma followed by at most two digits is a decimal mark too.
// The result is rounded to two decimals. An empty value is zero.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, nil
	}

	s = currencyCodes.ReplaceAllString(s, "")
	s = currencySymbols.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)

	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = s[1 : len(s)-1]
	case len(s) > 1 && strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	}
	s = strings.TrimPrefix(s, "+")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = parts[0] + "." + parts[1]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}
