package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mareevma/skladbot/internal/core/domain"
)

// Schema DDL. qty > 0 is a hard invariant: a stock row that reaches
// zero is deleted, never stored at zero. tx_log is append-only.
const schemaDDL = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS items (
  id   INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT  COLLATE NOCASE NOT NULL,
  size TEXT  COLLATE NOCASE CHECK(size IS NULL OR size IN ('XS','S','M','L','XL','XXL','XXXL')),
  UNIQUE(name, size)
);
CREATE TABLE IF NOT EXISTS locations (
  code TEXT COLLATE NOCASE PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS stock (
  item_id       INTEGER,
  location_code TEXT COLLATE NOCASE,
  qty           INTEGER CHECK(qty > 0),
  PRIMARY KEY(item_id, location_code),
  FOREIGN KEY(item_id)       REFERENCES items(id)       ON DELETE CASCADE,
  FOREIGN KEY(location_code) REFERENCES locations(code) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS tx_log (
  id       INTEGER PRIMARY KEY AUTOINCREMENT,
  ts       DATETIME DEFAULT CURRENT_TIMESTAMP,
  user     TEXT,
  sql_text TEXT,
  summary  TEXT,
  success  INTEGER
);
`

// InitSchema creates the tables and seeds the fixed cell set. Safe to
// run on every startup.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, `INSERT OR IGNORE INTO locations(code) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare location seed: %w", err)
	}
	defer stmt.Close()

	for _, code := range domain.LocationCodes() {
		if _, err := stmt.ExecContext(ctx, code); err != nil {
			return fmt.Errorf("seed location %s: %w", code, err)
		}
	}
	return nil
}
