package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type column int

const (
	colJournalCode column = iota
	colJournalName
	colEntryNumber
	colEntryDate
	colDocumentDate
	colValidationDate
	colAccountNumber
	colAccountName
	colAuxiliaryAccount
	colAuxiliaryName
	colDocumentRef
	colDescription
	colDebit
	colCredit
	colAmount
	colCurrency
	colForeignAmount
	colLetteringCode
	colLetteringDate
	numColumns
)

var columnNames = [numColumns]string{
	"journal_code", "journal_name", "entry_number", "entry_date", "document_date",
	"validation_date", "account_number", "account_name", "auxiliary_account",
	"auxiliary_name", "document_ref", "description", "debit", "credit", "amount",
	"currency", "foreign_amount", "lettering_code", "lettering_date",
}

func (c column) String() string { return columnNames[c] }

// Header aliases in priority order. The first alias found in any header wins.
var columnAliases = [numColumns][]string{
	colJournalCode:      {"JournalCode", "CodeJournal", "CODE_JOURNAL", "Journal", "JrnlCode", "JL"},
	colJournalName:      {"JournalLib", "LibJournal", "LIB_JOURNAL", "JournalName", "LibelleJournal", "JrnlName"},
	colEntryNumber:      {"EcritureNum", "NumEcriture", "NUM_ECRITURE", "EntryNumber", "TransactionID", "TRNSID", "DocNum", "Numero"},
	colEntryDate:        {"EcritureDate", "DateEcriture", "DATE_ECRITURE", "TransactionDate", "Date", "DatePiece", "EntryDate"},
	colDocumentDate:     {"PieceDate", "DatePiece", "DATE_PIECE", "DocumentDate", "InvoiceDate", "DocDate"},
	colValidationDate:   {"ValidDate", "DateValidation", "DATE_VALIDATION", "PostedDate", "ApprovedDate"},
	colAccountNumber:    {"CompteNum", "NumCompte", "NUM_COMPTE", "AccountCode", "Account", "ACCNT", "NominalCode", "GLCode", "Compte", "NumeroCompte"},
	colAccountName:      {"CompteLib", "LibCompte", "LIB_COMPTE", "AccountName", "AccountDescription", "IntituleCompte", "NomCompte"},
	colAuxiliaryAccount: {"CompAuxNum", "NumCompteAux", "SubAccount", "AuxiliaryCode", "Auxiliaire"},
	colAuxiliaryName:    {"CompAuxLib", "LibCompteAux", "SubAccountName", "AuxiliaryName"},
	colDocumentRef:      {"PieceRef", "RefPiece", "REF_PIECE", "Reference", "DocNum", "InvoiceNumber", "Piece", "NumPiece"},
	colDescription:      {"EcritureLib", "LibEcriture", "LIB_ECRITURE", "Description", "Memo", "Libelle", "Narrative"},
	colDebit:            {"Debit", "Dr", "MontantDebit", "MONTANT_DEBIT", "DebitAmount"},
	colCredit:           {"Credit", "Cr", "MontantCredit", "MONTANT_CREDIT", "CreditAmount"},
	// "Montant" is left out on purpose: it would also match FEC's Montantdevise.
	colAmount:           {"Amount", "Value"},
	colCurrency:         {"Idevise", "Currency", "Devise", "CurrencyCode"},
	colForeignAmount:    {"Montantdevise", "ForeignAmount", "OriginalAmount"},
	colLetteringCode:    {"EcritureLet", "Lettrage", "MatchingCode", "ReconciliationCode"},
	colLetteringDate:    {"DateLet", "DateLettrage", "DATE_LETTRAGE", "MatchingDate", "ReconciliationDate"},
}

// normalizeName lowercases s, folds accents and keeps only ASCII letters and digits,
// so "Débit", "DEBIT" and "debit_" all compare equal.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = normalizeName(h)
	}
	return out
}

// columnMap holds the header index of each known column, -1 when absent.
type columnMap [numColumns]int

func mapColumns(headers []string) columnMap {
	normalized := normalizeHeaders(headers)

	var m columnMap
	for c := column(0); c < numColumns; c++ {
		m[c] = findColumn(normalized, columnAliases[c])
	}
	return m
}

// findColumn returns the first header matching an alias, trying aliases in order.
// An exact match beats a partial one; aliases of three letters or fewer
// ("Dr", "Cr", "JL") only match exactly.
func findColumn(normalizedHeaders []string, aliases []string) int {
	for _, alias := range aliases {
		name := normalizeName(alias)
		partial := -1
		for i, h := range normalizedHeaders {
			if h == "" {
				continue
			}
			if h == name {
				return i
			}
			if partial < 0 && len(name) > 3 && strings.Contains(h, name) {
				partial = i
			}
		}
		if partial >= 0 {
			return partial
		}
	}
	return -1
}

func (m columnMap) has(c column) bool { return m[c] >= 0 }

// signedAmount reports whether the file carries a single signed amount column
// instead of separate debit and credit columns.
func (m columnMap) signedAmount() bool {
	return !m.has(colDebit) && !m.has(colCredit) && m.has(colAmount)
}

// missingRequired lists the required columns the header does not provide.
func (m columnMap) missingRequired() []column {
	var missing []column
	if !m.has(colAccountNumber) {
		missing = append(missing, colAccountNumber)
	}
	if !m.has(colEntryDate) {
		missing = append(missing, colEntryDate)
	}
	if !m.has(colDebit) && !m.has(colCredit) && !m.has(colAmount) {
		missing = append(missing, colDebit, colCredit)
	}
	return missing
}

// minFields is the number of fields a data row needs to reach every required column.
func (m columnMap) minFields() int {
	required := []column{colAccountNumber, colEntryDate}
	if m.signedAmount() {
		required = append(required, colAmount)
	} else {
		required = append(required, colDebit, colCredit)
	}

	highest := -1
	for _, c := range required {
		if m[c] > highest {
			highest = m[c]
		}
	}
	return highest + 1
}
