package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidDate is returned when a value matches none of the accepted date layouts.
var ErrInvalidDate = errors.New("invalid date")

const isoDate = "2006-01-02"

var dateLayouts = []string{
	"20060102",
	isoDate,
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2006/1/2",
	"2-Jan-2006",
	"2-Jan-06",
}

// Spreadsheet serial day numbers, roughly years 1954 to 2119.
var serialDatePattern = regexp.MustCompile(`^\d{5}(\.\d+)?$`)

// ParseDate normalizes a date to ISO YYYY-MM-DD. Any time component after a
// space or "T" is ignored. Day-first layouts are assumed for slash, dash and dot dates.
func ParseDate(value string) (string, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if i := strings.IndexAny(s, " \tT"); i > 0 {
		s = s[:i]
	}

	if serialDatePattern.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.Format(isoDate), nil
			}
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// parseOptionalDate is ParseDate for informational columns, where bad values are dropped.
func parseOptionalDate(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	d, err := ParseDate(value)
	if err != nil {
		return ""
	}
	return d
}
