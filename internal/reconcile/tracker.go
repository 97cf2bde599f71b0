package reconcile

import (
	"context"
	"sort"
	"strings"

	"finsync/internal"
	"finsync/internal/erp"
	"finsync/internal/sheets"
	"finsync/internal/storage"
)

// Tracker owns idempotence checks and the deferred sheet relocation queue.
// Relocations apply in one batch at the end of a run, deletes in descending
// row order so earlier deletes never shift later indexes.
type Tracker struct {
	transport erp.Transport
	db        *storage.DB
	runID     string
	force     bool

	synced []internal.SourceRow
	failed []failedRow
}

type failedRow struct {
	row internal.SourceRow
	msg string
}

func NewTracker(transport erp.Transport, db *storage.DB, runID string, force bool) *Tracker {
	return &Tracker{transport: transport, db: db, runID: runID, force: force}
}

// CheckExisting runs the three-tier existence check. The transaction number
// is only assigned by the ERP after creation and written back
// asynchronously, so a crash between creation and write-back must still be
// caught on the next run via the row key or the memo. --force bypasses all
// three tiers.
func (t *Tracker) CheckExisting(ctx context.Context, kind internal.TxKind, row internal.SourceRow, sandbox bool) (*string, error) {
	if t.force {
		return nil, nil
	}

	if strings.TrimSpace(row.TransactionNumber) != "" {
		existing, err := t.transport.FindByNumber(ctx, kind, row.TransactionNumber, sandbox)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &existing.Number, nil
		}
	}

	existing, err := t.transport.FindByNumber(ctx, kind, row.Key, sandbox)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &existing.Number, nil
	}

	found, err := t.transport.MemoExists(ctx, kind, row.Key, sandbox)
	if err != nil {
		return nil, err
	}
	if found {
		key := row.Key
		return &key, nil
	}
	return nil, nil
}

// Record journals a per-row outcome. Records are create-once; nothing
// mutates them after insertion within a run.
func (t *Tracker) Record(rec internal.SyncRecord) error {
	return t.db.InsertSyncRecord(t.runID, rec)
}

func (t *Tracker) QueueSynced(row internal.SourceRow) {
	t.synced = append(t.synced, row)
}

func (t *Tracker) QueueFailed(row internal.SourceRow, msg string) {
	t.failed = append(t.failed, failedRow{row: row, msg: msg})
}

// Flush applies the relocation queue: synced rows move to the synced table,
// failed rows append to the errors table with their message, and consumed
// pending rows are deleted highest index first.
func (t *Tracker) Flush(ctx context.Context, src sheets.Tabular, pendingTable, syncedTable, errorsTable string) error {
	var syncedRows [][]string
	var deleteIndexes []int
	for _, row := range t.synced {
		syncedRows = append(syncedRows, row.RawRows...)
		deleteIndexes = append(deleteIndexes, row.RowIndexes...)
	}
	if len(syncedRows) > 0 {
		if err := src.WriteRows(ctx, syncedTable, syncedRows); err != nil {
			return err
		}
	}

	var errorRows [][]string
	for _, f := range t.failed {
		for _, raw := range f.row.RawRows {
			errorRows = append(errorRows, append(append([]string{}, raw...), f.msg))
		}
	}
	if len(errorRows) > 0 {
		if err := src.WriteRows(ctx, errorsTable, errorRows); err != nil {
			return err
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(deleteIndexes)))
	for _, idx := range deleteIndexes {
		if err := src.DeleteRows(ctx, pendingTable, idx, 1); err != nil {
			return err
		}
	}
	return nil
}
