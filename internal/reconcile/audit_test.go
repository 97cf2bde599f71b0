package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal"
)

func TestAuditFlagsDriftedAndUnmatchedLines(t *testing.T) {
	transport := newFakeTransport()
	transport.byNumber["PO-9"] = &internal.ExistingTransaction{
		Number: "PO-9",
		Lines: []internal.ExistingLine{
			{LineID: "1", Kind: internal.LineExpense, Description: "10 unit - Books", Amount: d("50")},
			{LineID: "2", Kind: internal.LineExpense, Description: "2 unit - Pens", Amount: d("18.005")},
			{LineID: "3", Kind: internal.LineExpense, Description: "Ghost Line", Amount: d("7")},
		},
	}

	sheetLines := []internal.SourceLineItem{
		{Name: "Books", Quantity: d("10"), UnitPrice: d("5.00"), Discount: "10%"},
		{Name: "Pens", Quantity: d("2"), UnitPrice: d("10"), Discount: "10%"},
	}

	result, err := NewAuditor(transport, false).Audit(context.Background(), internal.TxPurchaseOrder, "PO-9", sheetLines)
	require.NoError(t, err)
	require.Len(t, result.Discrepancies, 3)
	assert.Empty(t, result.UnmatchedSheet)

	books := result.Discrepancies[0]
	assert.True(t, books.Matched)
	assert.Equal(t, "10 unit - Books", books.LineLabel)
	assert.True(t, books.ExpectedValue.Equal(d("45")), "expected = %s", books.ExpectedValue)
	assert.True(t, books.Delta.Equal(d("5")), "delta = %s", books.Delta)
	assert.True(t, Discrepant(books))

	pens := result.Discrepancies[1]
	assert.True(t, pens.Matched)
	assert.False(t, Discrepant(pens), "sub-tolerance drift is not a finding")

	ghost := result.Discrepancies[2]
	assert.False(t, ghost.Matched)
	assert.True(t, ghost.CurrentValue.Equal(ghost.ExpectedValue))
	assert.True(t, ghost.Delta.IsZero())
	assert.True(t, Discrepant(ghost))
}

func TestAuditIgnoresLinesWithoutDiscount(t *testing.T) {
	transport := newFakeTransport()
	transport.byNumber["PO-9"] = &internal.ExistingTransaction{
		Number: "PO-9",
		Lines:  []internal.ExistingLine{{LineID: "1", Description: "10 unit - Books", Amount: d("50")}},
	}

	sheetLines := []internal.SourceLineItem{
		{Name: "Books", Quantity: d("10"), UnitPrice: d("5.00")},
	}

	result, err := NewAuditor(transport, false).Audit(context.Background(), internal.TxPurchaseOrder, "PO-9", sheetLines)
	require.NoError(t, err)
	// The undiscounted sheet line is excluded up front, not reported missing.
	assert.Empty(t, result.UnmatchedSheet)
	require.Len(t, result.Discrepancies, 1)
	assert.False(t, result.Discrepancies[0].Matched)
}

func TestAuditUnknownTransaction(t *testing.T) {
	_, err := NewAuditor(newFakeTransport(), false).Audit(context.Background(), internal.TxPurchaseOrder, "NOPE", nil)
	require.Error(t, err)
}
