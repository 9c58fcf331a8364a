// Package parser turns accounting exports (FEC, SYSCOHADA, SCF, IFRS-style CSV,
// QuickBooks, Sage, Xero or any delimited ledger with recognizable headers)
// into normalized accounting lines with per-line errors and aggregate statistics.
package parser

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"ledgerimport/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency    = "EUR"
	defaultJournalCode = "OD"
	separatorSample    = 3
)

// balanceTolerance is the absolute debit/credit difference above which a file is reported unbalanced.
var balanceTolerance = decimal.New(1, -2)

// ParseOptions tunes a parse. Zero values select the defaults.
type ParseOptions struct {
	DefaultCurrency  string
	ExpectedStandard models.AccountingStandard
}

func (o ParseOptions) currency() string {
	if c := strings.TrimSpace(o.DefaultCurrency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

type record struct {
	line   int
	raw    string
	fields []string
	err    error
}

// Parse parses delimited text. Line numbers in the result are physical
// 1-based line numbers of content, the header being line 1 when the file has no leading blank lines.
func Parse(content string, opts ParseOptions) *models.ParseResult {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var records []record
	for i, text := range strings.Split(content, "\n") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, record{line: i + 1, raw: text})
	}
	if len(records) < 2 {
		return emptyFileResult(len(records))
	}

	sample := make([]string, 0, separatorSample)
	for i := 0; i < len(records) && i < separatorSample; i++ {
		sample = append(sample, records[i].raw)
	}
	sep := DetectSeparator(strings.Join(sample, "\n"))

	for i := range records {
		records[i].fields, records[i].err = splitFields(records[i].raw, sep)
	}

	return parseRecords(records, opts, []string{fmt.Sprintf("detected separator: %s", separatorName(sep))})
}

// ParseTable parses rows already split into cells, as read from a spreadsheet.
// Row i is reported as line i+1.
func ParseTable(rows [][]string, opts ParseOptions) *models.ParseResult {
	var records []record
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		records = append(records, record{line: i + 1, raw: strings.Join(row, ";"), fields: row})
	}
	if len(records) < 2 {
		return emptyFileResult(len(records))
	}
	return parseRecords(records, opts, nil)
}

func emptyFileResult(nonEmpty int) *models.ParseResult {
	return &models.ParseResult{
		Success: false,
		Format:  models.FormatGeneric,
		Lines:   []models.AccountingLine{},
		Errors: []models.ParseError{{
			Line:    0,
			Message: "file is empty or has no data rows",
		}},
		Warnings: []string{},
		Stats: models.ParseStats{
			TotalLines: max(nonEmpty-1, 0),
			Currencies: []string{},
			Journals:   []string{},
		},
	}
}

func parseRecords(records []record, opts ParseOptions, warnings []string) *models.ParseResult {
	headers := make([]string, len(records[0].fields))
	for i, h := range records[0].fields {
		headers[i] = cleanValue(strings.TrimPrefix(h, "\ufeff"))
	}

	format := DetectFormat(headers)
	warnings = append(warnings, fmt.Sprintf("detected format: %s", format))

	result := &models.ParseResult{
		Format:   format,
		Lines:    []models.AccountingLine{},
		Errors:   []models.ParseError{},
		Warnings: warnings,
		Stats: models.ParseStats{
			TotalLines:  len(records) - 1,
			TotalDebit:  decimal.Zero,
			TotalCredit: decimal.Zero,
			Balance:     decimal.Zero,
			Currencies:  []string{},
			Journals:    []string{},
		},
	}

	cols := mapColumns(headers)
	if missing := cols.missingRequired(); len(missing) > 0 {
		for _, c := range missing {
			result.Errors = append(result.Errors, models.ParseError{
				Line:    records[0].line,
				Field:   c.String(),
				Message: fmt.Sprintf("required column %s not found in header", c),
			})
		}
		return result
	}

	lp := lineParser{
		cols:      cols,
		minFields: cols.minFields(),
		currency:  opts.currency(),
	}
	acc := newStatsAccumulator()
	for i, rec := range records[1:] {
		line, perr := lp.parse(rec, i+1)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			result.Stats.ErrorLines++
			continue
		}
		result.Lines = append(result.Lines, line)
		acc.add(line)
	}
	acc.fill(&result.Stats)

	result.Standard = opts.ExpectedStandard
	if result.Standard == "" {
		accounts := make([]string, 0, min(len(result.Lines), standardSampleSize))
		for i := 0; i < len(result.Lines) && i < standardSampleSize; i++ {
			accounts = append(accounts, result.Lines[i].AccountNumber)
		}
		result.Standard = DetectStandard(accounts)
		if result.Standard != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("detected standard: %s", result.Standard))
		} else if len(accounts) > 0 {
			result.Warnings = append(result.Warnings, "accounting standard could not be detected")
		}
	}

	if result.Stats.Balance.Abs().GreaterThan(balanceTolerance) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"file is not balanced: debit %s, credit %s, difference %s",
			result.Stats.TotalDebit.StringFixed(2),
			result.Stats.TotalCredit.StringFixed(2),
			result.Stats.Balance.StringFixed(2),
		))
	}

	result.Success = len(result.Lines) > 0
	return result
}

type lineParser struct {
	cols      columnMap
	minFields int
	currency  string
}

func (p lineParser) value(fields []string, c column) string {
	idx := p.cols[c]
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return cleanValue(fields[idx])
}

func (p lineParser) parse(rec record, ordinal int) (models.AccountingLine, *models.ParseError) {
	fail := func(field, value, format string, args ...any) (models.AccountingLine, *models.ParseError) {
		return models.AccountingLine{}, &models.ParseError{
			Line:    rec.line,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Value:   value,
		}
	}

	if rec.err != nil {
		return fail("", rec.raw, "malformed line: %v", rec.err)
	}
	if len(rec.fields) < p.minFields {
		return fail("", rec.raw, "line has %d columns, expected at least %d", len(rec.fields), p.minFields)
	}

	rawDate := p.value(rec.fields, colEntryDate)
	entryDate, err := ParseDate(rawDate)
	if err != nil {
		return fail(colEntryDate.String(), rawDate, "invalid entry date %q", rawDate)
	}

	account := p.value(rec.fields, colAccountNumber)
	if account == "" {
		return fail(colAccountNumber.String(), "", "missing account number")
	}

	debit, credit := decimal.Zero, decimal.Zero
	if p.cols.signedAmount() {
		raw := p.value(rec.fields, colAmount)
		amount, err := ParseAmount(raw)
		if err != nil {
			return fail(colAmount.String(), raw, "invalid amount %q", raw)
		}
		if amount.IsNegative() {
			credit = amount.Abs()
		} else {
			debit = amount
		}
	} else {
		for _, c := range []column{colDebit, colCredit} {
			raw := p.value(rec.fields, c)
			amount, err := ParseAmount(raw)
			if err != nil {
				return fail(c.String(), raw, "invalid %s amount %q", c, raw)
			}
			if amount.IsNegative() {
				return fail(c.String(), raw, "negative %s amount %q", c, raw)
			}
			if c == colDebit {
				debit = amount
			} else {
				credit = amount
			}
		}
	}

	journalCode := p.value(rec.fields, colJournalCode)
	if journalCode == "" {
		journalCode = defaultJournalCode
	}
	journalName := p.value(rec.fields, colJournalName)
	if journalName == "" {
		journalName = journalCode
	}
	entryNumber := p.value(rec.fields, colEntryNumber)
	if entryNumber == "" {
		entryNumber = strconv.Itoa(ordinal)
	}
	currency := strings.ToUpper(p.value(rec.fields, colCurrency))
	if currency == "" {
		currency = p.currency
	}

	line := models.AccountingLine{
		JournalCode:      journalCode,
		JournalName:      journalName,
		EntryNumber:      entryNumber,
		EntryDate:        entryDate,
		DocumentDate:     parseOptionalDate(p.value(rec.fields, colDocumentDate)),
		ValidationDate:   parseOptionalDate(p.value(rec.fields, colValidationDate)),
		AccountNumber:    account,
		AccountName:      p.value(rec.fields, colAccountName),
		AuxiliaryAccount: p.value(rec.fields, colAuxiliaryAccount),
		AuxiliaryName:    p.value(rec.fields, colAuxiliaryName),
		DocumentRef:      p.value(rec.fields, colDocumentRef),
		Description:      p.value(rec.fields, colDescription),
		Debit:            debit,
		Credit:           credit,
		Currency:         currency,
		LetteringCode:    p.value(rec.fields, colLetteringCode),
		LetteringDate:    parseOptionalDate(p.value(rec.fields, colLetteringDate)),
		LineNumber:       rec.line,
		RawLine:          rec.raw,
	}
	if raw := p.value(rec.fields, colForeignAmount); raw != "" {
		if fa, err := ParseAmount(raw); err == nil && !fa.IsZero() {
			line.ForeignAmount = &fa
		}
	}
	return line, nil
}

type statsAccumulator struct {
	debit, credit decimal.Decimal
	valid         int
	currencies    orderedSet
	journals      orderedSet
	minDate       string
	maxDate       string
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{debit: decimal.Zero, credit: decimal.Zero}
}

func (a *statsAccumulator) add(l models.AccountingLine) {
	a.valid++
	a.debit = a.debit.Add(l.Debit)
	a.credit = a.credit.Add(l.Credit)
	a.currencies.add(l.Currency)
	a.journals.add(l.JournalCode)
	if a.minDate == "" || l.EntryDate < a.minDate {
		a.minDate = l.EntryDate
	}
	if a.maxDate == "" || l.EntryDate > a.maxDate {
		a.maxDate = l.EntryDate
	}
}

func (a *statsAccumulator) fill(s *models.ParseStats) {
	s.ValidLines = a.valid
	s.TotalDebit = a.debit.Round(2)
	s.TotalCredit = a.credit.Round(2)
	s.Balance = a.debit.Sub(a.credit).Round(2)
	s.Currencies = a.currencies.values()
	s.Journals = a.journals.values()
	if a.valid > 0 {
		s.DateRange = &models.DateRange{Start: a.minDate, End: a.maxDate}
	}
}

// orderedSet keeps distinct values in first-seen order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}

func splitFields(line string, sep rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = sep != '\t'
	return r.Read()
}

// cleanValue trims spaces and one pair of surrounding quotes.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func separatorName(sep rune) string {
	if sep == '\t' {
		return "tab"
	}
	return string(sep)
}
