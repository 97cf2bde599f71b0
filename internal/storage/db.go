package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"finsync/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS reference_entities (
  externalId TEXT NOT NULL,
  kind TEXT NOT NULL,
  sandbox INTEGER NOT NULL DEFAULT 0,
  displayName TEXT NOT NULL,
  code TEXT,
  inactive INTEGER NOT NULL DEFAULT 0,
  itemType TEXT,
  currencyCodes TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (externalId, kind, sandbox)
);
CREATE INDEX IF NOT EXISTS idx_refs_kind_scope ON reference_entities(kind, sandbox);
CREATE INDEX IF NOT EXISTS idx_refs_code ON reference_entities(code);
CREATE INDEX IF NOT EXISTS idx_refs_name ON reference_entities(displayName);

CREATE TABLE IF NOT EXISTS sync_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  sourceRowKey TEXT NOT NULL,
  outcome TEXT NOT NULL,
  existingTxRef TEXT,
  txNumber TEXT,
  errorMessage TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sync_records_run ON sync_records(runId);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  command TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertReferences(entities []internal.ReferenceEntity) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO reference_entities (
  externalId, kind, sandbox, displayName, code, inactive, itemType, currencyCodes, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(externalId, kind, sandbox) DO UPDATE SET
  displayName=excluded.displayName,
  code=excluded.code,
  inactive=excluded.inactive,
  itemType=excluded.itemType,
  currencyCodes=excluded.currencyCodes,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entities {
		currenciesJSON, _ := json.Marshal(e.CurrencyCodes)
		if _, err := stmt.Exec(
			e.ExternalID, string(e.Kind), boolToInt(e.Sandbox), e.DisplayName, e.Code,
			boolToInt(e.Inactive), e.ItemType, string(currenciesJSON), e.RawJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListReferences(kind internal.RefKind, sandbox bool) ([]internal.ReferenceEntity, error) {
	rows, err := d.conn.Query(`
SELECT externalId, kind, sandbox, displayName, code, inactive, itemType, currencyCodes, raw_json
FROM reference_entities WHERE kind = ? AND sandbox = ?`, string(kind), boolToInt(sandbox))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReferenceEntity
	for rows.Next() {
		e, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) ListAllReferences(sandbox bool) ([]internal.ReferenceEntity, error) {
	rows, err := d.conn.Query(`
SELECT externalId, kind, sandbox, displayName, code, inactive, itemType, currencyCodes, raw_json
FROM reference_entities WHERE sandbox = ?`, boolToInt(sandbox))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReferenceEntity
	for rows.Next() {
		e, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanReference(rows *sql.Rows) (internal.ReferenceEntity, error) {
	var e internal.ReferenceEntity
	var kind string
	var sandbox, inactive int
	var currenciesJSON string
	if err := rows.Scan(
		&e.ExternalID, &kind, &sandbox, &e.DisplayName, &e.Code, &inactive, &e.ItemType, &currenciesJSON, &e.RawJSON,
	); err != nil {
		return internal.ReferenceEntity{}, err
	}
	e.Kind = internal.RefKind(kind)
	e.Sandbox = sandbox != 0
	e.Inactive = inactive != 0
	_ = json.Unmarshal([]byte(currenciesJSON), &e.CurrencyCodes)
	return e, nil
}

func (d *DB) InsertSyncRecord(runID string, rec internal.SyncRecord) error {
	_, err := d.conn.Exec(`
INSERT INTO sync_records (runId, sourceRowKey, outcome, existingTxRef, txNumber, errorMessage)
VALUES (?, ?, ?, ?, ?, ?)
`, runID, rec.SourceRowKey, string(rec.Outcome), rec.ExistingTxRef, rec.TxNumber, rec.ErrorMessage)
	return err
}

func (d *DB) ListSyncRecords(runID string) ([]internal.SyncRecord, error) {
	rows, err := d.conn.Query(`
SELECT sourceRowKey, outcome, existingTxRef, txNumber, errorMessage
FROM sync_records WHERE runId = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SyncRecord
	for rows.Next() {
		var rec internal.SyncRecord
		var outcome string
		if err := rows.Scan(&rec.SourceRowKey, &outcome, &rec.ExistingTxRef, &rec.TxNumber, &rec.ErrorMessage); err != nil {
			return nil, err
		}
		rec.Outcome = internal.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID, command string, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, command, countsJson) VALUES (?, ?, ?)`, traceID, command, string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
