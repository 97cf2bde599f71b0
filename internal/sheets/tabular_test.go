package sheets

import (
	"testing"
	"time"
)

func TestParseSourceRowsGroupsByKey(t *testing.T) {
	rows := [][]string{
		{"RequestId", "Supplier", "Budget", "Account", "Description", "Qty", "Rate", "Disc", "Date", "SKU"},
		{"REQ-1", "Acme", "JB-C030-26", "88000 Teaching", "Books", "10", "5.00", "10%", "2026-03-15", ""},
		{"", "", "", "", "Pencils", "1,200", "0.50", "", "", "ITM-7"},
		{"", "", "", "", "", "", "", "", "", ""},
		{"REQ-2", "Globex", "JB-C031", "72000 Supplies", "Glue", "3", "2.25", "", "02/04/2026", ""},
	}

	out, err := ParseSourceRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}

	first := out[0]
	if first.Key != "REQ-1" || first.Vendor != "Acme" {
		t.Fatalf("first group: %+v", first)
	}
	if len(first.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(first.Lines))
	}
	if got := first.Lines[1].Quantity.String(); got != "1200" {
		t.Fatalf("quantity: %s", got)
	}
	if first.Lines[1].ItemReference == nil || *first.Lines[1].ItemReference != "ITM-7" {
		t.Fatalf("item reference: %+v", first.Lines[1].ItemReference)
	}
	if want := []int{2, 3}; len(first.RowIndexes) != 2 || first.RowIndexes[0] != want[0] || first.RowIndexes[1] != want[1] {
		t.Fatalf("row indexes: %v", first.RowIndexes)
	}
	if len(first.RawRows) != 2 || first.RawRows[0][0] != "REQ-1" {
		t.Fatalf("raw rows: %v", first.RawRows)
	}
	if !first.Date.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: %s", first.Date)
	}

	second := out[1]
	if second.Key != "REQ-2" || len(second.Lines) != 1 {
		t.Fatalf("second group: %+v", second)
	}
	if second.RowIndexes[0] != 5 {
		t.Fatalf("blank rows still advance sheet positions, got %v", second.RowIndexes)
	}
	if second.Date.Equal(time.Time{}) {
		t.Fatalf("dd/mm date layout not parsed")
	}
}

func TestParseSourceRowsHeaderSpellings(t *testing.T) {
	rows := [][]string{
		{"Reference", "Payee", "GL Account", "Item Name", "QTY", "Price"},
		{"REQ-1", "Acme", "88000", "Books", "2", "3.00"},
	}
	out, err := ParseSourceRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Vendor != "Acme" || out[0].Subcode != "88000" {
		t.Fatalf("got %+v", out)
	}
}

func TestParseSourceRowsRequiresCoreColumns(t *testing.T) {
	rows := [][]string{
		{"Request ID", "Item"},
		{"REQ-1", "Books"},
	}
	if _, err := ParseSourceRows(rows); err == nil {
		t.Fatal("expected error for missing vendor column")
	}
	if _, err := ParseSourceRows(nil); err == nil {
		t.Fatal("expected error for empty table")
	}
}
