package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal"
	"finsync/internal/erp"
)

// fakeTransport registers everything it creates so a later existence check
// against the same fake behaves like the real ERP would.
type fakeTransport struct {
	byNumber  map[string]*internal.ExistingTransaction
	memos     map[string]bool
	created   []internal.TransactionDraft
	createErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		byNumber: map[string]*internal.ExistingTransaction{},
		memos:    map[string]bool{},
	}
}

func (f *fakeTransport) Create(_ context.Context, draft internal.TransactionDraft) (erp.CreateResult, error) {
	if f.createErr != nil {
		return erp.CreateResult{}, f.createErr
	}
	f.created = append(f.created, draft)
	number := fmt.Sprintf("TX-%03d", len(f.created))
	f.byNumber[number] = &internal.ExistingTransaction{ExternalID: number, Number: number, Memo: draft.Memo}
	f.memos[draft.Memo] = true
	return erp.CreateResult{ExternalID: number, Number: number}, nil
}

func (f *fakeTransport) FindByNumber(_ context.Context, _ internal.TxKind, number string, _ bool) (*internal.ExistingTransaction, error) {
	return f.byNumber[number], nil
}

func (f *fakeTransport) MemoExists(_ context.Context, _ internal.TxKind, memo string, _ bool) (bool, error) {
	return f.memos[memo], nil
}

func (f *fakeTransport) UpdateLines(_ context.Context, _ internal.TxKind, _ string, _ []internal.ExistingLine) error {
	return nil
}

// fakeTabular keeps tables in memory and records delete order.
type fakeTabular struct {
	tables  map[string][][]string
	deletes []int
}

func newFakeTabular() *fakeTabular {
	return &fakeTabular{tables: map[string][][]string{}}
}

func (f *fakeTabular) ReadRows(_ context.Context, table string) ([][]string, error) {
	return f.tables[table], nil
}

func (f *fakeTabular) WriteRows(_ context.Context, table string, rows [][]string) error {
	f.tables[table] = append(f.tables[table], rows...)
	return nil
}

func (f *fakeTabular) UpdateRange(_ context.Context, table, _ string, rows [][]string) error {
	f.tables[table] = rows
	return nil
}

func (f *fakeTabular) DeleteRows(_ context.Context, _ string, rowIndex, _ int) error {
	f.deletes = append(f.deletes, rowIndex)
	return nil
}

func trackerRow() internal.SourceRow {
	row := testRow()
	row.RowIndexes = []int{2}
	row.RawRows = [][]string{{"REQ-001", "Amazon.com (US)", "Books"}}
	return row
}

func TestCheckExistingExplicitNumberWins(t *testing.T) {
	transport := newFakeTransport()
	transport.byNumber["PO-77"] = &internal.ExistingTransaction{Number: "PO-77"}

	row := trackerRow()
	row.TransactionNumber = "PO-77"

	got, err := NewTracker(transport, nil, "run", false).CheckExisting(context.Background(), internal.TxPurchaseOrder, row, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PO-77", *got)
}

func TestCheckExistingRowKeyAsNumber(t *testing.T) {
	transport := newFakeTransport()
	transport.byNumber["REQ-001"] = &internal.ExistingTransaction{Number: "REQ-001"}

	got, err := NewTracker(transport, nil, "run", false).CheckExisting(context.Background(), internal.TxPurchaseOrder, trackerRow(), false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "REQ-001", *got)
}

func TestCheckExistingMemoFallback(t *testing.T) {
	transport := newFakeTransport()
	transport.memos["REQ-001"] = true

	got, err := NewTracker(transport, nil, "run", false).CheckExisting(context.Background(), internal.TxPurchaseOrder, trackerRow(), false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "REQ-001", *got)
}

func TestCheckExistingNotFound(t *testing.T) {
	got, err := NewTracker(newFakeTransport(), nil, "run", false).CheckExisting(context.Background(), internal.TxPurchaseOrder, trackerRow(), false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestForceBypassesAllTiers(t *testing.T) {
	transport := newFakeTransport()
	transport.byNumber["PO-77"] = &internal.ExistingTransaction{Number: "PO-77"}
	transport.byNumber["REQ-001"] = &internal.ExistingTransaction{Number: "REQ-001"}
	transport.memos["REQ-001"] = true

	row := trackerRow()
	row.TransactionNumber = "PO-77"

	got, err := NewTracker(transport, nil, "run", true).CheckExisting(context.Background(), internal.TxPurchaseOrder, row, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFlushRelocatesAndDeletesDescending(t *testing.T) {
	src := newFakeTabular()
	tracker := NewTracker(newFakeTransport(), nil, "run", false)

	first := trackerRow()
	first.RowIndexes = []int{2, 3}
	first.RawRows = [][]string{{"REQ-001", "a"}, {"", "b"}}
	tracker.QueueSynced(first)

	second := trackerRow()
	second.Key = "REQ-002"
	second.RowIndexes = []int{5}
	second.RawRows = [][]string{{"REQ-002", "c"}}
	tracker.QueueFailed(second, "vendor not found")

	require.NoError(t, tracker.Flush(context.Background(), src, "Pending", "Synced", "Errors"))

	require.Len(t, src.tables["Synced"], 2)
	assert.Equal(t, []string{"REQ-001", "a"}, src.tables["Synced"][0])

	require.Len(t, src.tables["Errors"], 1)
	assert.Equal(t, []string{"REQ-002", "c", "vendor not found"}, src.tables["Errors"][0])

	// Highest index first so earlier deletes never shift later ones.
	assert.Equal(t, []int{3, 2}, src.deletes)
}

func TestFlushFailedRowsStayOutOfPendingDeletes(t *testing.T) {
	src := newFakeTabular()
	tracker := NewTracker(newFakeTransport(), nil, "run", false)

	row := trackerRow()
	row.RowIndexes = []int{4}
	tracker.QueueFailed(row, "boom")

	require.NoError(t, tracker.Flush(context.Background(), src, "Pending", "Synced", "Errors"))
	assert.Empty(t, src.deletes, "failed rows stay in the pending table for retry")
	assert.Empty(t, src.tables["Synced"])
}
