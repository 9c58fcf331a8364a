package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FileFormat identifies the export layout an accounting file was produced with.
type FileFormat string

const (
	FormatFEC        FileFormat = "FEC"
	FormatSYSCOHADA  FileFormat = "SYSCOHADA"
	FormatIFRSCSV    FileFormat = "IFRS_CSV"
	FormatSCF        FileFormat = "SCF"
	FormatQuickBooks FileFormat = "QUICKBOOKS"
	FormatSage       FileFormat = "SAGE"
	FormatXero       FileFormat = "XERO"
	FormatGeneric    FileFormat = "GENERIC"
)

// AccountingStandard is the chart-of-accounts convention the account numbers follow.
// The zero value means the standard could not be determined.
type AccountingStandard string

const (
	StandardPCG       AccountingStandard = "PCG"
	StandardSYSCOHADA AccountingStandard = "SYSCOHADA"
	StandardIFRS      AccountingStandard = "IFRS"
	StandardSCF       AccountingStandard = "SCF"
	StandardUSGAAP    AccountingStandard = "US_GAAP"
)

// ParseStandard maps user input to a known standard. Unknown values yield "".
func ParseStandard(s string) AccountingStandard {
	switch AccountingStandard(s) {
	case StandardPCG, StandardSYSCOHADA, StandardIFRS, StandardSCF, StandardUSGAAP:
		return AccountingStandard(s)
	}
	return ""
}

// Label is used in generated descriptions.
func (s AccountingStandard) Label() string {
	if s == "" {
		return "auto-detected"
	}
	return string(s)
}

// AccountingLine is one normalized debit/credit posting read from a file.
type AccountingLine struct {
	JournalCode      string           `json:"journal_code"`
	JournalName      string           `json:"journal_name"`
	EntryNumber      string           `json:"entry_number"`
	EntryDate        string           `json:"entry_date"`
	DocumentDate     string           `json:"document_date,omitempty"`
	ValidationDate   string           `json:"validation_date,omitempty"`
	AccountNumber    string           `json:"account_number"`
	AccountName      string           `json:"account_name"`
	AuxiliaryAccount string           `json:"auxiliary_account,omitempty"`
	AuxiliaryName    string           `json:"auxiliary_name,omitempty"`
	DocumentRef      string           `json:"document_ref,omitempty"`
	Description      string           `json:"description"`
	Debit            decimal.Decimal  `json:"debit"`
	Credit           decimal.Decimal  `json:"credit"`
	Currency         string           `json:"currency"`
	ForeignAmount    *decimal.Decimal `json:"foreign_amount,omitempty"`
	LetteringCode    string           `json:"lettering_code,omitempty"`
	LetteringDate    string           `json:"lettering_date,omitempty"`
	LineNumber       int              `json:"line_number"`
	RawLine          string           `json:"raw_line,omitempty"`
}

// ParseError is a problem attached to a source line. Line 0 refers to the whole file.
type ParseError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e ParseError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// DateRange holds the earliest and latest entry dates in ISO form.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseStats aggregates the valid lines of a parse.
type ParseStats struct {
	TotalLines  int             `json:"total_lines"`
	ValidLines  int             `json:"valid_lines"`
	ErrorLines  int             `json:"error_lines"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
	Currencies  []string        `json:"currencies"`
	Journals    []string        `json:"journals"`
	DateRange   *DateRange      `json:"date_range,omitempty"`
}

// ParseResult is the outcome of parsing one file. Success holds when at least one line is valid.
type ParseResult struct {
	Success  bool               `json:"success"`
	Format   FileFormat         `json:"format"`
	Standard AccountingStandard `json:"standard,omitempty"`
	Lines    []AccountingLine   `json:"lines"`
	Errors   []ParseError       `json:"errors"`
	Warnings []string           `json:"warnings"`
	Stats    ParseStats         `json:"stats"`
}
