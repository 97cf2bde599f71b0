package reconcile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"finsync/internal"
	"finsync/internal/config"
	"finsync/internal/erp"
	"finsync/internal/logging"
	"finsync/internal/sheets"
	"finsync/internal/storage"
	"finsync/internal/util"
)

// Service drives one batch: read rows, then per row resolve, price, match,
// build, idempotence-check, create. Rows are processed strictly one at a
// time to stay under the ERP's rate limits.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	builder   *Builder
	transport erp.Transport
	src       sheets.Tabular
	log       *logrus.Logger
}

func NewService(db *storage.DB, cfg config.Config, builder *Builder, transport erp.Transport, src sheets.Tabular) *Service {
	return &Service{db: db, cfg: cfg, builder: builder, transport: transport, src: src, log: logging.Logger()}
}

type RunOptions struct {
	Kind         internal.TxKind
	PendingTable string
	SyncedTable  string
	ErrorsTable  string
	Force        bool
	DryRun       bool
}

// Run executes a full batch. Setup failures (unreadable sheet, bad header)
// abort the run; per-row failures are recorded and the batch continues.
func (s *Service) Run(ctx context.Context, opts RunOptions) (internal.RunReport, error) {
	runID := traceID()
	report := internal.RunReport{}

	raw, err := s.src.ReadRows(ctx, opts.PendingTable)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", opts.PendingTable, err)
	}
	rows, err := sheets.ParseSourceRows(raw)
	if err != nil {
		return report, err
	}

	tracker := NewTracker(s.transport, s.db, runID, opts.Force)

	for _, row := range rows {
		rowReport := s.processRow(ctx, opts, tracker, row)
		report.Merge(rowReport)
		if rowReport.Created > 0 && s.cfg.ErpWriteDelayMs > 0 {
			time.Sleep(time.Duration(s.cfg.ErpWriteDelayMs) * time.Millisecond)
		}
	}

	if !opts.DryRun {
		if err := tracker.Flush(ctx, s.src, opts.PendingTable, opts.SyncedTable, opts.ErrorsTable); err != nil {
			return report, fmt.Errorf("apply relocations: %w", err)
		}
	}

	_ = s.db.InsertRun(runID, string(opts.Kind), report.Counts())
	s.log.WithFields(logrus.Fields{"runId": runID, "kind": opts.Kind}).
		WithFields(countsFields(report)).Info("run complete")

	return report, nil
}

// processRow never returns an error: any per-row failure becomes a failed
// SyncRecord and the batch moves on. One bad row must not abort the run.
func (s *Service) processRow(ctx context.Context, opts RunOptions, tracker *Tracker, row internal.SourceRow) internal.RunReport {
	report := internal.RunReport{Processed: 1}

	existing, err := tracker.CheckExisting(ctx, opts.Kind, row, s.cfg.ErpSandbox)
	if err != nil {
		return s.failRow(tracker, row, err, report)
	}
	if existing != nil {
		report.AlreadyExists = 1
		report.Errors = append(report.Errors, internal.RowError{RowKey: row.Key, Message: "already exists as " + *existing})
		_ = tracker.Record(internal.SyncRecord{
			SourceRowKey:  row.Key,
			ExistingTxRef: existing,
			Outcome:       internal.OutcomeAlreadyExists,
		})
		tracker.QueueSynced(row)
		return report
	}

	draft, warnings, err := s.builder.Build(opts.Kind, row)
	if err != nil {
		return s.failRow(tracker, row, err, report)
	}
	for _, w := range warnings {
		s.log.WithField("rowKey", row.Key).Warn(w)
	}

	if opts.DryRun {
		report.Skipped = 1
		_ = tracker.Record(internal.SyncRecord{SourceRowKey: row.Key, Outcome: internal.OutcomeDryRun})
		return report
	}

	created, err := s.transport.Create(ctx, draft)
	if err != nil {
		return s.failRow(tracker, row, err, report)
	}

	report.Created = 1
	_ = tracker.Record(internal.SyncRecord{
		SourceRowKey: row.Key,
		TxNumber:     util.StringPtr(created.Number),
		Outcome:      internal.OutcomeCreated,
	})

	// Write the assigned number onto the rows headed for the synced table.
	// Best effort: the memo fallback covers a crash before relocation.
	if created.Number != "" {
		for i := range row.RawRows {
			row.RawRows[i] = append(row.RawRows[i], created.Number)
		}
	}
	tracker.QueueSynced(row)

	return report
}

func (s *Service) failRow(tracker *Tracker, row internal.SourceRow, err error, report internal.RunReport) internal.RunReport {
	report.Failed = 1
	report.Errors = append(report.Errors, internal.RowError{RowKey: row.Key, Message: err.Error()})
	logging.RowError(row.Key, err, nil)
	_ = tracker.Record(internal.SyncRecord{
		SourceRowKey: row.Key,
		Outcome:      internal.OutcomeFailed,
		ErrorMessage: util.StringPtr(err.Error()),
	})
	tracker.QueueFailed(row, err.Error())
	return report
}

func countsFields(report internal.RunReport) logrus.Fields {
	fields := logrus.Fields{}
	for k, v := range report.Counts() {
		fields[k] = v
	}
	return fields
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
