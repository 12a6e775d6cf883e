package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"slipscan/internal"
	"slipscan/internal/util"
)

const (
	StatusFetched   = "fetched"
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusExported  = "exported"
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
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS slips (
  slipNo TEXT PRIMARY KEY,
  vendor TEXT,
  documentId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);
CREATE INDEX IF NOT EXISTS idx_slips_documentId ON slips(documentId);

CREATE TABLE IF NOT EXISTS slip_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  slipNo TEXT NOT NULL,
  position INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  rawLine TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity REAL,
  quantityRaw TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  price REAL,
  UNIQUE(slipNo, position),
  FOREIGN KEY(slipNo) REFERENCES slips(slipNo)
);

CREATE TABLE IF NOT EXISTS ingredients (
  id INTEGER PRIMARY KEY,
  recipe TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  quantity TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  kind TEXT NOT NULL,
  documentId INTEGER,
  applied INTEGER NOT NULL DEFAULT 0,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
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

func (d *DB) UpsertDocument(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("failed to upsert document")
	}
	return *row, nil
}

const documentColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanDocument(scan func(dest ...any) error) (internal.DocumentRow, error) {
	var row internal.DocumentRow
	err := scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef)
	return row, err
}

func (d *DB) GetDocumentByProviderMessageID(provider, messageID string) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetDocumentByID(id int) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustDocumentByProviderMessageID(provider, messageID string) (internal.DocumentRow, error) {
	row, err := d.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, fmt.Errorf("document not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

// ListDocumentsByStatus returns the oldest documents in status. An empty
// provider matches every provider.
func (d *DB) ListDocumentsByStatus(status, provider string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`SELECT `+documentColumns+` FROM documents WHERE status = ? AND (? = '' OR provider = ?) ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		row, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(documentID int, status string) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, documentID)
	return err
}

// UpsertSlip stores one slip and replaces its items. A vendor already stored
// for the slip number is kept, matching the parser's first-writer rule.
// Writing the same slip twice leaves the same rows.
func (d *DB) UpsertSlip(documentID *int, slip internal.Slip) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO slips (slipNo, vendor, documentId) VALUES (?, ?, ?)
ON CONFLICT(slipNo) DO UPDATE SET
  vendor=COALESCE(slips.vendor, excluded.vendor),
  documentId=COALESCE(excluded.documentId, slips.documentId),
  updatedAt=CURRENT_TIMESTAMP
`, slip.SlipNo, slip.Vendor, documentID); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM slip_items WHERE slipNo = ?`, slip.SlipNo); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO slip_items (slipNo, position, lineNo, rawLine, name, quantity, quantityRaw, unit, price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range slip.Items {
		if _, err := stmt.Exec(slip.SlipNo, i, item.LineNo, item.Raw, item.Name, item.Qty.Quantity, item.Qty.Raw, item.Qty.Unit, item.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetSlip(slipNo string) (*internal.Slip, error) {
	slip := internal.Slip{SlipNo: slipNo, Items: []internal.Item{}}
	err := d.conn.QueryRow(`SELECT vendor FROM slips WHERE slipNo = ?`, slipNo).Scan(&slip.Vendor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(`
SELECT lineNo, rawLine, name, quantity, quantityRaw, unit, price
FROM slip_items WHERE slipNo = ? ORDER BY position ASC`, slipNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item internal.Item
		if err := rows.Scan(&item.LineNo, &item.Raw, &item.Name, &item.Qty.Quantity, &item.Qty.Raw, &item.Qty.Unit, &item.Price); err != nil {
			return nil, err
		}
		slip.Items = append(slip.Items, item)
	}
	return &slip, rows.Err()
}

func (d *DB) GetSlipExportRows(documentID int) ([]internal.SlipExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  s.slipNo,
  s.vendor,
  COALESCE(i.lineNo, 0),
  COALESCE(i.rawLine, ''),
  COALESCE(i.name, ''),
  i.quantity,
  COALESCE(i.quantityRaw, ''),
  COALESCE(i.unit, ''),
  i.price
FROM slips s
LEFT JOIN slip_items i ON i.slipNo = s.slipNo
WHERE s.documentId = ?
ORDER BY s.rowid ASC, i.position ASC
`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SlipExportRow
	for rows.Next() {
		var row internal.SlipExportRow
		var vendor *string
		var qty internal.QuantityUnit
		var price *float64
		if err := rows.Scan(&row.SlipNo, &vendor, &row.LineNo, &row.RawLine, &row.ItemName, &qty.Quantity, &qty.Raw, &qty.Unit, &price); err != nil {
			return nil, err
		}
		row.Vendor = util.Deref(vendor)
		row.Quantity = qty.Text()
		row.Unit = qty.Unit
		if price != nil {
			row.Price = strconv.FormatFloat(*price, 'f', -1, 64)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpsertIngredients(list []internal.Ingredient) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO ingredients (id, recipe, name, quantity, unit) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  recipe=excluded.recipe,
  name=excluded.name,
  quantity=excluded.quantity,
  unit=excluded.unit,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ing := range list {
		if _, err := stmt.Exec(ing.ID, ing.Recipe, ing.Name, ing.Quantity, ing.Unit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListIngredients() ([]internal.Ingredient, error) {
	rows, err := d.conn.Query(`SELECT id, recipe, name, quantity, unit FROM ingredients ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Ingredient
	for rows.Next() {
		var ing internal.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Recipe, &ing.Name, &ing.Quantity, &ing.Unit); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (d *DB) UpdateIngredientQuantity(id int, quantity, unit string) error {
	_, err := d.conn.Exec(`UPDATE ingredients SET quantity = ?, unit = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, quantity, unit, id)
	return err
}

func (d *DB) InsertRun(traceID, kind string, documentID *int, applied bool, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, kind, documentId, applied, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?, ?)`,
		traceID, kind, documentID, applied, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) CountRuns(kind string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM runs WHERE kind = ?`, kind).Scan(&n)
	return n, err
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
