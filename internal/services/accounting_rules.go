package services

import (
	"strings"

	"ledgerimport/internal/models"
)

var bankJournalPrefixes = []string{"BNQ", "BQ", "BA", "BK"}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// InferJournalType classifies a journal from its code, e.g. BQ1 is a bank
// journal, CAI a cash journal, VTE a sales journal and ACH a purchases journal.
func InferJournalType(code string) models.JournalType {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case hasAnyPrefix(c, bankJournalPrefixes...):
		return models.JournalTypeBank
	case c == "CA" || hasAnyPrefix(c, "CAI", "CS"):
		return models.JournalTypeCash
	case c == "VE" || hasAnyPrefix(c, "VT", "VEN"):
		return models.JournalTypeSale
	case c == "AC" || c == "HA" || c == "AH" || hasAnyPrefix(c, "ACH", "FOU", "PU"):
		return models.JournalTypePurchase
	}
	return models.JournalTypeMiscellaneous
}

// JournalName derives a display name for a journal created from an import.
func JournalName(code string, journalType models.JournalType) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch journalType {
	case models.JournalTypeBank:
		suffix := c
		for _, p := range bankJournalPrefixes {
			if strings.HasPrefix(c, p) {
				suffix = strings.TrimPrefix(c, p)
				break
			}
		}
		return strings.TrimSpace("Bank journal " + suffix)
	case models.JournalTypeCash:
		return "Cash journal"
	case models.JournalTypeSale:
		return "Sales journal"
	case models.JournalTypePurchase:
		return "Purchases journal"
	}

	switch {
	case c == "RAN" || strings.HasPrefix(c, "AN"):
		return "Opening balances journal"
	case strings.HasPrefix(c, "EX"):
		return "Reversals journal"
	case c == "OD":
		return "Miscellaneous operations"
	case strings.HasPrefix(c, "SA"):
		return "Payroll journal"
	}
	return "Journal " + code
}

// InferAccountType maps an account number to its category. French and OHADA
// charts (and undetermined standards) are read by class digit; IFRS and US GAAP
// charts use the numbering common to those exports.
func InferAccountType(accountNumber string, standard models.AccountingStandard) models.AccountType {
	n := strings.TrimSpace(accountNumber)
	if n == "" {
		return models.AccountTypeAsset
	}

	if standard == models.StandardIFRS || standard == models.StandardUSGAAP {
		switch n[0] {
		case '1', '2':
			return models.AccountTypeAsset
		case '3', '4':
			return models.AccountTypeLiability
		case '5':
			return models.AccountTypeEquity
		case '6':
			return models.AccountTypeRevenue
		case '7', '8':
			return models.AccountTypeExpense
		}
		return models.AccountTypeAsset
	}

	switch n[0] {
	case '1':
		return models.AccountTypeEquity
	case '2', '3', '5':
		return models.AccountTypeAsset
	case '4':
		// 41 customers and 46-49 sundry debtors and adjustments carry debit balances.
		if len(n) > 1 && strings.ContainsRune("16789", rune(n[1])) {
			return models.AccountTypeAsset
		}
		return models.AccountTypeLiability
	case '6', '8', '9':
		return models.AccountTypeExpense
	case '7':
		return models.AccountTypeRevenue
	}
	return models.AccountTypeAsset
}

// AccountClass is the leading digit of the account number, 1 when it is not 1-9.
func AccountClass(accountNumber string) int {
	n := strings.TrimSpace(accountNumber)
	if n != "" && n[0] >= '1' && n[0] <= '9' {
		return int(n[0] - '0')
	}
	return 1
}
