package storage

import (
	"path/filepath"
	"testing"

	"finsync/internal"
	"finsync/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertAndListReferences(t *testing.T) {
	db := openTestDB(t)

	entities := []internal.ReferenceEntity{
		{ExternalID: "v1", Kind: internal.KindVendor, DisplayName: "Acme", CurrencyCodes: []string{"USD"}, RawJSON: "{}"},
		{ExternalID: "v1", Kind: internal.KindVendor, DisplayName: "Acme Sandbox", Sandbox: true, RawJSON: "{}"},
		{ExternalID: "d1", Kind: internal.KindDepartment, DisplayName: "JB-C030", Code: util.StringPtr("JB-C030"), RawJSON: "{}"},
	}
	if err := db.UpsertReferences(entities); err != nil {
		t.Fatal(err)
	}

	vendors, err := db.ListReferences(internal.KindVendor, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) != 1 || vendors[0].DisplayName != "Acme" {
		t.Fatalf("production scope leaked: %+v", vendors)
	}
	if len(vendors[0].CurrencyCodes) != 1 || vendors[0].CurrencyCodes[0] != "USD" {
		t.Fatalf("currency codes: %+v", vendors[0].CurrencyCodes)
	}

	// Same id and kind, same scope: the second upsert replaces, not duplicates.
	entities[0].DisplayName = "Acme Renamed"
	if err := db.UpsertReferences(entities[:1]); err != nil {
		t.Fatal(err)
	}
	vendors, err = db.ListReferences(internal.KindVendor, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) != 1 || vendors[0].DisplayName != "Acme Renamed" {
		t.Fatalf("upsert did not replace: %+v", vendors)
	}

	all, err := db.ListAllReferences(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected vendor and department, got %d", len(all))
	}
}

func TestSyncRecordJournal(t *testing.T) {
	db := openTestDB(t)

	records := []internal.SyncRecord{
		{SourceRowKey: "REQ-1", Outcome: internal.OutcomeCreated, TxNumber: util.StringPtr("PO-1")},
		{SourceRowKey: "REQ-2", Outcome: internal.OutcomeFailed, ErrorMessage: util.StringPtr("no vendor matched")},
	}
	for _, rec := range records {
		if err := db.InsertSyncRecord("run-1", rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InsertSyncRecord("run-2", internal.SyncRecord{SourceRowKey: "REQ-9", Outcome: internal.OutcomeDryRun}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListSyncRecords("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for run-1, got %d", len(got))
	}
	if got[0].Outcome != internal.OutcomeCreated || *got[0].TxNumber != "PO-1" {
		t.Fatalf("first record: %+v", got[0])
	}
	if got[1].ErrorMessage == nil || *got[1].ErrorMessage != "no vendor matched" {
		t.Fatalf("second record: %+v", got[1])
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetadata("lastRefSync"); err != nil || v != nil {
		t.Fatalf("expected nil for unset key, got %v err %v", v, err)
	}
	if err := db.SetMetadata("lastRefSync", "2026-08-30T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("lastRefSync", "2026-08-30T11:00:00Z"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("lastRefSync")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "2026-08-30T11:00:00Z" {
		t.Fatalf("got %v", v)
	}
}
