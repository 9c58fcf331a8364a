package parser

import (
	"regexp"
	"strings"

	"ledgerimport/internal/models"
)

var separatorCandidates = []rune{'|', ';', '\t', ','}

// DetectSeparator returns the most frequent candidate separator in sample.
// Ties keep the earlier candidate in the order | ; TAB , and the default is a comma.
func DetectSeparator(sample string) rune {
	best, bestCount := ',', 0
	for _, sep := range separatorCandidates {
		if n := strings.Count(sample, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

type formatSignature struct {
	format     models.FileFormat
	signatures [][]string
}

// Checked in order; the first matching signature decides the format.
var formatSignatures = []formatSignature{
	{models.FormatFEC, [][]string{
		{"JournalCode", "EcritureNum", "EcritureDate", "CompteNum", "Debit", "Credit"},
	}},
	{models.FormatSYSCOHADA, [][]string{
		{"NumCompte", "CodeJournal", "DatePiece", "Debit", "Credit"},
		{"Compte", "Journal", "Date", "Debit", "Credit"},
	}},
	{models.FormatSCF, [][]string{
		{"CodeJournal", "NumeroCompte", "DateEcriture", "Debit", "Credit"},
	}},
	{models.FormatIFRSCSV, [][]string{
		{"AccountCode", "TransactionDate", "Debit", "Credit"},
		{"Account", "Date", "Dr", "Cr"},
	}},
	{models.FormatQuickBooks, [][]string{
		{"TRNS", "TRNSTYPE", "DATE", "ACCNT", "AMOUNT"},
		{"!TRNS", "TRNSID", "TRNSTYPE", "DATE", "ACCNT"},
	}},
	{models.FormatSage, [][]string{
		{"TransactionDate", "AccountCode", "Debit", "Credit"},
		{"NominalCode", "Date", "Debit", "Credit"},
	}},
	{models.FormatXero, [][]string{
		{"*ContactName", "*InvoiceNumber", "*InvoiceDate", "AccountCode"},
		{"Date", "SourceAccount", "Description", "Amount"},
	}},
}

// DetectFormat matches the header row against known export signatures.
// A signature matches when at least min(3, len) of its names overlap a header.
func DetectFormat(headers []string) models.FileFormat {
	normalized := normalizeHeaders(headers)

	for _, fs := range formatSignatures {
		for _, sig := range fs.signatures {
			need := min(3, len(sig))
			if countSignatureMatches(normalized, sig) >= need {
				return fs.format
			}
		}
	}
	return models.FormatGeneric
}

func countSignatureMatches(normalizedHeaders, signature []string) int {
	matches := 0
	for _, s := range signature {
		name := normalizeName(s)
		for _, h := range normalizedHeaders {
			if h == "" {
				continue
			}
			if strings.Contains(h, name) || strings.Contains(name, h) {
				matches++
				break
			}
		}
	}
	return matches
}

var (
	pcgAccountPattern   = regexp.MustCompile(`^[1-7]\d{5}$`)
	ohadaAccountPattern = regexp.MustCompile(`^[1-9]\d{3,7}$`)
	ifrsAccountPattern  = regexp.MustCompile(`(?i)^[A-Z0-9]{2,10}$`)
)

const standardSampleSize = 50

// DetectStandard guesses the chart-of-accounts convention from the shape of the
// first account numbers. It returns "" when no convention covers more than 60% of them.
func DetectStandard(accountNumbers []string) models.AccountingStandard {
	if len(accountNumbers) == 0 {
		return ""
	}
	samples := accountNumbers
	if len(samples) > standardSampleSize {
		samples = samples[:standardSampleSize]
	}

	var pcg, ohada, ifrs int
	for _, a := range samples {
		if pcgAccountPattern.MatchString(a) {
			pcg++
		}
		if ohadaAccountPattern.MatchString(a) {
			ohada++
		}
		if ifrsAccountPattern.MatchString(a) {
			ifrs++
		}
	}

	threshold := float64(len(samples)) * 0.6
	switch {
	case float64(pcg) > threshold:
		return models.StandardPCG
	case float64(ohada) > threshold:
		return models.StandardSYSCOHADA
	case float64(ifrs) > threshold:
		return models.StandardIFRS
	}
	return ""
}
