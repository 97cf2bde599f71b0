package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finsync/internal"
	"finsync/internal/util"
)

// Tabular is the spreadsheet boundary. ReadRows returns the header as the
// first row; row indexes elsewhere are 1-based sheet positions.
type Tabular interface {
	ReadRows(ctx context.Context, table string) ([][]string, error)
	WriteRows(ctx context.Context, table string, rows [][]string) error
	UpdateRange(ctx context.Context, table, topLeft string, rows [][]string) error
	DeleteRows(ctx context.Context, table string, rowIndex, count int) error
}

// headerCandidates maps a logical column to the header spellings seen across
// deployments. Matching is case-insensitive.
var headerCandidates = map[string][]string{
	"key":      {"Request ID", "RequestId", "Row Key", "Reference"},
	"vendor":   {"Vendor", "Supplier", "Payee"},
	"budget":   {"Budget Code", "Budget", "Department"},
	"subcode":  {"Subcode", "Account", "GL Account"},
	"item":     {"Item", "Item Name", "Description"},
	"qty":      {"Quantity", "Qty", "QTY"},
	"price":    {"Unit Price", "Price", "Rate"},
	"discount": {"Discount", "Disc", "Discount Amount"},
	"currency": {"Currency", "CCY"},
	"location": {"Location", "Campus", "Site"},
	"date":     {"Date", "Transaction Date"},
	"memo":     {"Memo", "Notes"},
	"txnumber": {"Transaction No", "Transaction Number", "Tran ID", "PO Number"},
	"itemref":  {"Item Ref", "Item Code", "SKU"},
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "01/02/2006", "Jan 2, 2006"}

type columnMap map[string]int

func mapColumns(header []string) columnMap {
	cols := columnMap{}
	for i, cell := range header {
		folded := util.Fold(cell)
		for logical, candidates := range headerCandidates {
			if _, taken := cols[logical]; taken {
				continue
			}
			for _, candidate := range candidates {
				if folded == util.Fold(candidate) {
					cols[logical] = i
					break
				}
			}
		}
	}
	return cols
}

func (c columnMap) get(row []string, logical string) string {
	i, ok := c[logical]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseSourceRows groups raw sheet rows into per-transaction source rows.
// Consecutive rows with a blank key column continue the previous group, so a
// multi-line request occupies a block of sheet rows.
func ParseSourceRows(rows [][]string) ([]internal.SourceRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table: no header row")
	}

	cols := mapColumns(rows[0])
	for _, required := range []string{"key", "vendor", "item"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("no recognizable %q column in header %v", required, rows[0])
		}
	}

	var out []internal.SourceRow
	var current *internal.SourceRow

	for i, row := range rows[1:] {
		sheetRow := i + 2
		if isBlank(row) {
			continue
		}

		key := cols.get(row, "key")
		if key != "" && (current == nil || key != current.Key) {
			if current != nil {
				out = append(out, *current)
			}
			current = &internal.SourceRow{
				Key:               key,
				Vendor:            cols.get(row, "vendor"),
				BudgetCode:        cols.get(row, "budget"),
				Subcode:           cols.get(row, "subcode"),
				CurrencyCode:      cols.get(row, "currency"),
				Memo:              cols.get(row, "memo"),
				TransactionNumber: cols.get(row, "txnumber"),
				Date:              parseDate(cols.get(row, "date")),
			}
		}
		if current == nil {
			continue
		}

		line := internal.SourceLineItem{
			Name:       cols.get(row, "item"),
			Quantity:   util.CleanDecimal(cols.get(row, "qty")),
			UnitPrice:  util.CleanDecimal(cols.get(row, "price")),
			Discount:   cols.get(row, "discount"),
			BudgetCode: cols.get(row, "budget"),
			Location:   cols.get(row, "location"),
		}
		if ref := cols.get(row, "itemref"); ref != "" {
			line.ItemReference = util.StringPtr(ref)
		}
		current.Lines = append(current.Lines, line)
		current.RowIndexes = append(current.RowIndexes, sheetRow)
		current.RawRows = append(current.RawRows, row)
	}

	if current != nil {
		out = append(out, *current)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
