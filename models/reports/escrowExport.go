package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/xuri/excelize/v2"
)

const (
	escrowSheetName   = "Escrows"
	XlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	moneyNumberFormat = 4 // #,##0.00
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

var escrowExportHeadings = []string{
	"Escrow ID", "Escrow Number", "Property Address", "Status", "Property Type",
	"Purchase Price", "Gross Commission", "My Commission",
	"Acceptance Date", "Scheduled COE", "Lead Source", "Checklist %",
}

type escrowExportRow models.EscrowSummary

func (r escrowExportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.DisplayId,
		r.EscrowNumber,
		r.PropertyAddress,
		string(r.EscrowStatus),
		r.PropertyType,
		r.PurchasePrice,
		r.GrossCommission,
		r.MyCommission,
		utils.DereferencePtr(r.AcceptanceDate, ""),
		utils.DereferencePtr(r.ScheduledCoeDate, ""),
		r.LeadSource,
		r.ChecklistProgress,
	}
}

// EscrowExportFilename is the attachment name for an export taken at now.
func EscrowExportFilename(now time.Time) string {
	return fmt.Sprintf("escrows-%s.xlsx", now.UTC().Format("20060102-150405"))
}

// WriteEscrowExport writes the escrows matching params as an .xlsx workbook.
func WriteEscrowExport(ctx context.Context, w io.Writer, params models.EscrowListParams) error {
	started := time.Now()
	summaries, err := models.ListEscrowsForExport(ctx, params)
	if err != nil {
		return err
	}
	f, err := buildEscrowWorkbook(summaries)
	if err != nil {
		return err
	}
	defer f.Close()

	logSlowReport(ctx, "escrow_export", started, map[string]any{"rows": len(summaries)})
	return f.Write(w)
}

func buildEscrowWorkbook(summaries []models.EscrowSummary) (*excelize.File, error) {
	rows := make([]ExcelExporter, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, escrowExportRow(s))
	}
	f, err := exportExcel(escrowSheetName, rows, escrowExportHeadings...)
	if err != nil {
		return nil, err
	}

	// money columns F..H
	style, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumberFormat})
	if err == nil && len(rows) > 0 {
		last := fmt.Sprintf("H%d", len(rows)+1)
		if err := f.SetCellStyle(escrowSheetName, "F2", last, style); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func exportExcel(sheetName string, data []ExcelExporter, headings ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	// Add headers
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	// Add data
	for rowIdx, d := range data {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := d.GetCellValues()
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
