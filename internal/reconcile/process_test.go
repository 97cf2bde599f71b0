package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal"
	"finsync/internal/config"
	"finsync/internal/storage"
)

var pendingHeader = []string{"Request ID", "Vendor", "Budget Code", "Subcode", "Item", "Quantity", "Unit Price", "Discount", "Date"}

func pendingRow(key, vendor string) []string {
	return []string{key, vendor, "JB-C030-26", "88000 Teaching Resources", "Books", "10", "5.00", "10%", "2026-03-15"}
}

func newTestService(t *testing.T, transport *fakeTransport, src *fakeTabular) *Service {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{ErrorDetailCap: 10}
	return NewService(db, cfg, testBuilder(), transport, src)
}

func runOptions() RunOptions {
	return RunOptions{
		Kind:         internal.TxPurchaseOrder,
		PendingTable: "Pending",
		SyncedTable:  "Synced",
		ErrorsTable:  "Errors",
	}
}

func TestRunCreatesAndRelocates(t *testing.T) {
	transport := newFakeTransport()
	src := newFakeTabular()
	src.tables["Pending"] = [][]string{pendingHeader, pendingRow("REQ-001", "Amazon.com (US)")}

	report, err := newTestService(t, transport, src).Run(context.Background(), runOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Created)
	require.Len(t, transport.created, 1)
	assert.Equal(t, "REQ-001", transport.created[0].Memo)

	// The synced copy carries the assigned number; the pending row is gone.
	require.Len(t, src.tables["Synced"], 1)
	synced := src.tables["Synced"][0]
	assert.Equal(t, "TX-001", synced[len(synced)-1])
	assert.Equal(t, []int{2}, src.deletes)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	transport := newFakeTransport()
	src := newFakeTabular()
	src.tables["Pending"] = [][]string{pendingHeader, pendingRow("REQ-001", "Amazon.com (US)")}

	svc := newTestService(t, transport, src)

	first, err := svc.Run(context.Background(), runOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	// The fake never removes pending rows, so a second run replays the same
	// input. The memo check must catch the duplicate.
	second, err := svc.Run(context.Background(), runOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.AlreadyExists)
	assert.Len(t, transport.created, 1)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	transport := newFakeTransport()
	src := newFakeTabular()
	src.tables["Pending"] = [][]string{pendingHeader, pendingRow("REQ-001", "Amazon.com (US)")}

	opts := runOptions()
	opts.DryRun = true
	report, err := newTestService(t, transport, src).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, transport.created)
	assert.Empty(t, src.tables["Synced"])
	assert.Empty(t, src.deletes)
}

func TestRunIsolatesRowFailures(t *testing.T) {
	transport := newFakeTransport()
	src := newFakeTabular()
	src.tables["Pending"] = [][]string{
		pendingHeader,
		pendingRow("REQ-001", "Nobody We Know"),
		pendingRow("REQ-002", "Amazon.com (US)"),
	}

	report, err := newTestService(t, transport, src).Run(context.Background(), runOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "REQ-001", report.Errors[0].RowKey)

	// The failed row lands in the errors table with its message appended.
	require.Len(t, src.tables["Errors"], 1)
	errRow := src.tables["Errors"][0]
	assert.Equal(t, "REQ-001", errRow[0])
	assert.Contains(t, errRow[len(errRow)-1], "vendor")
}
