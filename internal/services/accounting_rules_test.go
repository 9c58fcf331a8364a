package services

import (
	"testing"

	"ledgerimport/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestInferJournalType(t *testing.T) {
	tests := map[string]models.JournalType{
		"BQ1":  models.JournalTypeBank,
		"bnq2": models.JournalTypeBank,
		"BK":   models.JournalTypeBank,
		"CA":   models.JournalTypeCash,
		"CAI":  models.JournalTypeCash,
		"CS01": models.JournalTypeCash,
		"VT":   models.JournalTypeSale,
		"VTE":  models.JournalTypeSale,
		"VE":   models.JournalTypeSale,
		"VEN":  models.JournalTypeSale,
		"AC":   models.JournalTypePurchase,
		"HA":   models.JournalTypePurchase,
		"ACH":  models.JournalTypePurchase,
		"FOU1": models.JournalTypePurchase,
		"OD":   models.JournalTypeMiscellaneous,
		"AN":   models.JournalTypeMiscellaneous,
		"XYZ":  models.JournalTypeMiscellaneous,
		"":     models.JournalTypeMiscellaneous,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, InferJournalType(code))
		})
	}
}

func TestJournalName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"BQ1", "Bank journal 1"},
		{"BNQ", "Bank journal"},
		{"CAI", "Cash journal"},
		{"VTE", "Sales journal"},
		{"ACH", "Purchases journal"},
		{"AN", "Opening balances journal"},
		{"RAN", "Opening balances journal"},
		{"EXT", "Reversals journal"},
		{"OD", "Miscellaneous operations"},
		{"SAL", "Payroll journal"},
		{"ZZ", "Journal ZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, JournalName(tt.code, InferJournalType(tt.code)))
		})
	}
}

func TestInferAccountType_ClassDigitCharts(t *testing.T) {
	tests := map[string]models.AccountType{
		"101000": models.AccountTypeEquity,
		"213500": models.AccountTypeAsset,
		"370000": models.AccountTypeAsset,
		"401000": models.AccountTypeLiability,
		"411000": models.AccountTypeAsset,
		"421000": models.AccountTypeLiability,
		"445710": models.AccountTypeLiability,
		"467000": models.AccountTypeAsset,
		"486000": models.AccountTypeAsset,
		"512000": models.AccountTypeAsset,
		"607000": models.AccountTypeExpense,
		"706000": models.AccountTypeRevenue,
		"801000": models.AccountTypeExpense,
		"4":      models.AccountTypeLiability,
		"ABC":    models.AccountTypeAsset,
		"":       models.AccountTypeAsset,
	}

	for _, standard := range []models.AccountingStandard{models.StandardPCG, models.StandardSYSCOHADA, models.StandardSCF, ""} {
		for number, want := range tests {
			assert.Equal(t, want, InferAccountType(number, standard), "account %q standard %q", number, standard)
		}
	}
}

func TestInferAccountType_IFRS(t *testing.T) {
	tests := map[string]models.AccountType{
		"1000": models.AccountTypeAsset,
		"2100": models.AccountTypeAsset,
		"3000": models.AccountTypeLiability,
		"4000": models.AccountTypeLiability,
		"5000": models.AccountTypeEquity,
		"6000": models.AccountTypeRevenue,
		"7000": models.AccountTypeExpense,
		"8000": models.AccountTypeExpense,
		"9000": models.AccountTypeAsset,
		"CASH": models.AccountTypeAsset,
	}

	for number, want := range tests {
		assert.Equal(t, want, InferAccountType(number, models.StandardIFRS), number)
		assert.Equal(t, want, InferAccountType(number, models.StandardUSGAAP), number)
	}
}

func TestAccountClass(t *testing.T) {
	assert.Equal(t, 5, AccountClass("512000"))
	assert.Equal(t, 9, AccountClass("9"))
	assert.Equal(t, 1, AccountClass("0123"))
	assert.Equal(t, 1, AccountClass("CASH"))
	assert.Equal(t, 1, AccountClass(""))
}
