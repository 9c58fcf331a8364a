package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestArchiveObjectKey(t *testing.T) {
	tenantID := uuid.MustParse("3f1c2a9e-0d4b-4c57-9a43-5b0f1e2d3c4a")
	importID := uuid.MustParse("a0b1c2d3-e4f5-4678-9abc-def012345678")
	at := time.Date(2024, time.March, 7, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"plain", "FEC2024.txt", "FEC2024.txt"},
		{"spaces", "grand livre.csv", "grand_livre.csv"},
		{"unix path", "/tmp/exports/ledger.xlsx", "ledger.xlsx"},
		{"windows path", `C:\Users\compta\fec.txt`, "fec.txt"},
		{"empty", "", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArchiveObjectKey(tenantID, importID, tt.fileName, at)
			assert.Equal(t, "imports/"+tenantID.String()+"/2024/03/07/"+importID.String()+"-"+tt.want, got)
		})
	}
}
