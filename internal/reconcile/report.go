package reconcile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"finsync/internal"
)

// PrintSummary writes the end-of-run counts and a capped slice of error
// detail. Full detail always lands in the errors sink; the cap only keeps
// terminal output readable.
func PrintSummary(w io.Writer, report internal.RunReport, errorCap int) {
	fmt.Fprintf(w, "processed=%d created=%d already-existing=%d skipped=%d errors=%d\n",
		report.Processed, report.Created, report.AlreadyExists, report.Skipped, report.Failed)

	if len(report.Errors) == 0 {
		return
	}
	shown := len(report.Errors)
	if errorCap > 0 && shown > errorCap {
		shown = errorCap
	}
	for _, e := range report.Errors[:shown] {
		fmt.Fprintf(w, "  %s: %s\n", e.RowKey, e.Message)
	}
	if remaining := len(report.Errors) - shown; remaining > 0 {
		fmt.Fprintf(w, "  ... and %d more (see errors sheet)\n", remaining)
	}
}

// ExportRecordsToXLSX dumps a run's sync records for offline review.
func ExportRecordsToXLSX(records []internal.SyncRecord, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"source_row_key", "outcome", "existing_tx_ref", "tx_number", "error_message"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, rec.SourceRowKey)
		set(2, string(rec.Outcome))
		set(3, derefString(rec.ExistingTxRef))
		set(4, derefString(rec.TxNumber))
		set(5, derefString(rec.ErrorMessage))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// PrintAudit renders the comparison table plus the sheet lines no pairing
// consumed.
func PrintAudit(w io.Writer, result AuditResult) {
	for _, d := range result.Discrepancies {
		marker := "  "
		if Discrepant(d) {
			marker = "!!"
		}
		fmt.Fprintf(w, "%s %-40s current=%s expected=%s delta=%s matched=%t\n",
			marker, d.LineLabel, d.CurrentValue.StringFixed(2), d.ExpectedValue.StringFixed(2), d.Delta.StringFixed(2), d.Matched)
	}
	for _, line := range result.UnmatchedSheet {
		fmt.Fprintf(w, "?? sheet line %q (discount %q) matched nothing in the ERP\n", line.Name, line.Discount)
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
