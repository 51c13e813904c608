package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DateLayout is how effective dates are stored and compared.
const DateLayout = "2006-01-02 15:04:05"

type DB struct {
	conn *sqlx.DB
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("sqlite", path)
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
CREATE TABLE IF NOT EXISTS items (
  item TEXT PRIMARY KEY,
  description TEXT NOT NULL DEFAULT '',
  friendly_description TEXT,
  default_upc TEXT
);

CREATE TABLE IF NOT EXISTS price_book_sections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  combo_id TEXT,
  display_label TEXT,
  item TEXT NOT NULL,
  description TEXT
);
CREATE INDEX IF NOT EXISTS idx_sections_item ON price_book_sections(item);

CREATE TABLE IF NOT EXISTS item_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item TEXT NOT NULL,
  effect_date TEXT NOT NULL,
  list_price TEXT,
  pp1_price TEXT,
  pp2_price TEXT,
  bm1_price TEXT,
  bm2_price TEXT,
  fob_price TEXT
);
CREATE INDEX IF NOT EXISTS idx_item_prices_item ON item_prices(item, effect_date);

CREATE TABLE IF NOT EXISTS price_book_templates (
  template_id INTEGER PRIMARY KEY,
  template_name TEXT NOT NULL,
  excel_file_name TEXT NOT NULL DEFAULT '',
  four_k_source TEXT NOT NULL DEFAULT 'PP1',
  twelve_k_source TEXT NOT NULL DEFAULT 'PP2',
  include_fob INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS price_book_draft_headers (
  draft_id INTEGER PRIMARY KEY,
  mode TEXT NOT NULL DEFAULT '',
  use_latest_incl_future INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS price_book_draft_lines (
  draft_id INTEGER NOT NULL,
  item TEXT NOT NULL,
  item_desc TEXT,
  family_code TEXT,
  new_list_price TEXT,
  new_pp1_price TEXT,
  new_pp2_price TEXT,
  new_bm1_price TEXT,
  new_bm2_price TEXT,
  new_fob_price TEXT,
  PRIMARY KEY (draft_id, item),
  FOREIGN KEY(draft_id) REFERENCES price_book_draft_headers(draft_id)
);

CREATE TABLE IF NOT EXISTS price_book_versions (
  version_id INTEGER PRIMARY KEY,
  draft_id INTEGER,
  template_id INTEGER NOT NULL,
  label TEXT NOT NULL DEFAULT '',
  created_by TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS price_book_version_lines (
  version_id INTEGER NOT NULL,
  item TEXT NOT NULL,
  item_desc TEXT,
  family_code TEXT,
  list_price TEXT,
  price_4k TEXT,
  price_12k TEXT,
  alt_price_4k TEXT,
  alt_price_12k TEXT,
  fob_price TEXT,
  PRIMARY KEY (version_id, item),
  FOREIGN KEY(version_id) REFERENCES price_book_versions(version_id)
);

CREATE TABLE IF NOT EXISTS item_specs (
  item TEXT PRIMARY KEY,
  master_pack_qty INTEGER,
  pallet_qty INTEGER
);

CREATE TABLE IF NOT EXISTS item_gtins (
  item TEXT NOT NULL,
  slot INTEGER NOT NULL CHECK (slot BETWEEN 0 AND 8),
  gtin TEXT,
  gtin_desc TEXT,
  PRIMARY KEY (item, slot)
);

CREATE TABLE IF NOT EXISTS generation_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  sourceKey TEXT NOT NULL,
  templatePath TEXT NOT NULL,
  fileName TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// Run is one generation log entry.
type Run struct {
	RunID        string
	SourceKey    string
	TemplatePath string
	FileName     string
	Timings      map[string]float64
	Counts       map[string]int
}

func (d *DB) InsertRun(ctx context.Context, run Run) error {
	timingsJSON, _ := json.Marshal(run.Timings)
	countsJSON, _ := json.Marshal(run.Counts)
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO generation_runs (runId, sourceKey, templatePath, fileName, timingsJson, countsJson)
VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SourceKey, run.TemplatePath, run.FileName, string(timingsJSON), string(countsJSON))
	return err
}

// RunCount counts the logged runs for a source key.
func (d *DB) RunCount(ctx context.Context, sourceKey string) (int, error) {
	var n int
	err := d.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM generation_runs WHERE sourceKey = ?`, sourceKey)
	return n, err
}

// formatDate renders t in local time so stored dates and the comparison
// instant sort the same regardless of the zone t carries.
func formatDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
