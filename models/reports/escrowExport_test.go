package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/xuri/excelize/v2"
)

func TestBuildEscrowWorkbook(t *testing.T) {
	acceptance := "2025-03-01"
	summaries := []models.EscrowSummary{
		{
			DisplayId: "ESC-2025-0001", EscrowNumber: "ESC-2025-0001", PropertyAddress: "1 Harbor Blvd",
			EscrowStatus: models.EscrowStatusActive, PropertyType: "Condo", PurchasePrice: 675000,
			GrossCommission: 16875, MyCommission: 8437.5, AcceptanceDate: &acceptance, LeadSource: "Website",
			ChecklistProgress: 40,
		},
		{DisplayId: "ESC-2025-0002", PropertyAddress: "2 Harbor Blvd", EscrowStatus: models.EscrowStatusPending},
	}

	f, err := buildEscrowWorkbook(summaries)
	if err != nil {
		t.Fatalf("buildEscrowWorkbook: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows(escrowSheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Escrow ID" || rows[0][len(rows[0])-1] != "Checklist %" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "ESC-2025-0001" || rows[1][2] != "1 Harbor Blvd" || rows[1][8] != "2025-03-01" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][3] != "Pending" {
		t.Fatalf("unexpected status cell %q", rows[2][3])
	}

	raw, err := book.GetCellValue(escrowSheetName, "F2", excelize.Options{RawCellValue: true})
	if err != nil || raw != "675000" {
		t.Fatalf("purchase price cell = %q (%v)", raw, err)
	}
}

func TestEscrowExportFilename(t *testing.T) {
	got := EscrowExportFilename(time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC))
	if got != "escrows-20250310-150405.xlsx" {
		t.Fatalf("filename = %q", got)
	}
}
