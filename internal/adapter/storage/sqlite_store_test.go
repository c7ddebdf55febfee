package storage

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mareevma/skladbot/internal/core/domain"
)

func newTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection, same as production: the in-memory database lives
	// exactly as long as this connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(context.Background(), db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewSQLiteStore(db), db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func seedStock(t *testing.T, db *sql.DB, name, size, location string, qty int) {
	t.Helper()
	var sz any
	if size != "" {
		sz = size
	}
	mustExec(t, db, `INSERT OR IGNORE INTO items(name,size) VALUES (?,?)`, name, sz)
	var query string
	if size == "" {
		query = `INSERT INTO stock(item_id,location_code,qty)
			SELECT id, ?, ? FROM items WHERE name = ? AND size IS NULL`
		mustExec(t, db, query, location, qty, name)
		return
	}
	query = `INSERT INTO stock(item_id,location_code,qty)
		SELECT id, ?, ? FROM items WHERE name = ? AND size = ?`
	mustExec(t, db, query, location, qty, name, size)
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

func TestInitSchema_SeedsAllCells(t *testing.T) {
	_, db := newTestStore(t)

	if n := countRows(t, db, `SELECT COUNT(*) FROM locations`); n != 60 {
		t.Fatalf("expected 60 cells, got %d", n)
	}

	// Re-running the schema must not duplicate or fail.
	if err := InitSchema(context.Background(), db); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM locations`); n != 60 {
		t.Fatalf("expected 60 cells after re-init, got %d", n)
	}
}

func TestExecScript_InsertThenRead(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	writeStmts := []string{
		`INSERT OR IGNORE INTO items(name,size) VALUES ('majka','L')`,
		`INSERT INTO stock(item_id,location_code,qty)
			SELECT id, 'А2', 4 FROM items WHERE name = 'majka' AND size = 'L'`,
	}
	if _, err := store.ExecScript(ctx, writeStmts, domain.ModeWrite, "vasya", "добавлено 4 майки L в А2"); err != nil {
		t.Fatalf("write script: %v", err)
	}

	readStmts := []string{
		`SELECT items.name AS name, items.size, stock.location_code, stock.qty
			FROM stock JOIN items ON items.id = stock.item_id
			WHERE items.name = 'majka'`,
	}
	res, err := store.ExecScript(ctx, readStmts, domain.ModeRead, "vasya", "")
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	row := res.Rows[0]
	if row["name"] != "majka" || row["size"] != "L" || row["location_code"] != "А2" || row["qty"] != int64(4) {
		t.Errorf("unexpected row: %v", row)
	}
	want := []string{"name", "size", "location_code", "qty"}
	for i, col := range res.Columns {
		if col != want[i] {
			t.Errorf("column order lost: got %v", res.Columns)
			break
		}
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM tx_log`); n != 2 {
		t.Errorf("expected one audit record per attempt, got %d", n)
	}
}

func TestExecScript_AuditMatchesOutcome(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ExecScript(ctx, []string{`SELECT 1`}, domain.ModeRead, "vasya", ""); err != nil {
		t.Fatalf("read script: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM tx_log WHERE success = 1`); n != 1 {
		t.Fatalf("expected 1 successful audit record, got %d", n)
	}

	if _, err := store.ExecScript(ctx, []string{`INSERT INTO nonsense VALUES (1)`}, domain.ModeWrite, "vasya", "bad"); err == nil {
		t.Fatal("expected execution error")
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM tx_log WHERE success = 0`); n != 1 {
		t.Fatalf("expected 1 failed audit record, got %d", n)
	}

	var sqlText, summary string
	if err := db.QueryRow(`SELECT sql_text, summary FROM tx_log WHERE success = 0`).Scan(&sqlText, &summary); err != nil {
		t.Fatalf("read failed record: %v", err)
	}
	if sqlText != `INSERT INTO nonsense VALUES (1)` || summary != "bad" {
		t.Errorf("failed attempt not fully recorded: %q %q", sqlText, summary)
	}
}

func TestExecScript_RollbackLeavesStockUnchanged(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	seedStock(t, db, "болт", "", "Б2", 3)

	// A move: increment destination first, then drain the source. The
	// second statement drives qty below the CHECK, so the whole script
	// must roll back, destination included.
	moveStmts := []string{
		`INSERT INTO stock(item_id,location_code,qty)
			SELECT id, 'В3', 3 FROM items WHERE name = 'болт' AND size IS NULL`,
		`UPDATE stock SET qty = qty - 5
			WHERE item_id = (SELECT id FROM items WHERE name = 'болт' AND size IS NULL)
			AND location_code = 'Б2'`,
	}
	if _, err := store.ExecScript(ctx, moveStmts, domain.ModeWrite, "vasya", "перемещено 3 болта из Б2 в В3"); err == nil {
		t.Fatal("expected constraint failure")
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM stock WHERE location_code = 'В3'`); n != 0 {
		t.Errorf("destination row survived rollback")
	}
	var qty int
	if err := db.QueryRow(`SELECT qty FROM stock WHERE location_code = 'Б2'`).Scan(&qty); err != nil {
		t.Fatalf("source row: %v", err)
	}
	if qty != 3 {
		t.Errorf("source qty changed: expected 3, got %d", qty)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM tx_log WHERE success = 0`); n != 1 {
		t.Errorf("rolled-back attempt must still be audited, got %d records", n)
	}
}

func TestExecScript_QtyMustStayPositive(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	seedStock(t, db, "гайка", "", "А1", 3)

	stmts := []string{
		`UPDATE stock SET qty = qty - 3
			WHERE item_id = (SELECT id FROM items WHERE name = 'гайка' AND size IS NULL)
			AND location_code = 'А1'`,
	}
	if _, err := store.ExecScript(ctx, stmts, domain.ModeWrite, "vasya", ""); err == nil {
		t.Fatal("expected CHECK failure: a stock row may never persist at zero")
	}

	var qty int
	if err := db.QueryRow(`SELECT qty FROM stock WHERE location_code = 'А1'`).Scan(&qty); err != nil {
		t.Fatalf("stock row: %v", err)
	}
	if qty != 3 {
		t.Errorf("expected qty unchanged at 3, got %d", qty)
	}
}

func TestDeleteItemCascadesStock(t *testing.T) {
	_, db := newTestStore(t)
	seedStock(t, db, "кепка", "", "Г7", 10)

	mustExec(t, db, `DELETE FROM items WHERE name = 'кепка'`)
	if n := countRows(t, db, `SELECT COUNT(*) FROM stock`); n != 0 {
		t.Errorf("expected cascade delete of stock rows, got %d", n)
	}
}

func TestBuildStockContext_Deterministic(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	seedStock(t, db, "майка", "L", "А2", 4)
	seedStock(t, db, "болт", "", "Б2", 7)

	first, err := store.BuildStockContext(ctx, 20)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	second, err := store.BuildStockContext(ctx, 20)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	if first != second {
		t.Errorf("snapshot not byte-identical:\n%q\n%q", first, second)
	}

	if !strings.Contains(first, "- майка, L, А2, qty=4") {
		t.Errorf("missing sized row:\n%s", first)
	}
	if !strings.Contains(first, "- болт, NULL, Б2, qty=7") {
		t.Errorf("missing sizeless row:\n%s", first)
	}
	if strings.Contains(first, "item_id") {
		t.Errorf("snapshot leaks item ids:\n%s", first)
	}
	if strings.Contains(first, "…") {
		t.Errorf("unexpected truncation marker:\n%s", first)
	}
}

func TestBuildStockContext_Truncation(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	seedStock(t, db, "a", "", "А1", 1)
	seedStock(t, db, "b", "", "А2", 1)
	seedStock(t, db, "c", "", "А3", 1)

	snapshot, err := store.BuildStockContext(ctx, 2)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	lines := strings.Split(snapshot, "\n")
	if len(lines) != 4 { // header + 2 rows + marker
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), snapshot)
	}
	if lines[len(lines)-1] != "- …" {
		t.Errorf("expected truncation marker, got %q", lines[len(lines)-1])
	}
}

func TestListStock_NullSize(t *testing.T) {
	store, db := newTestStore(t)
	seedStock(t, db, "болт", "", "Б2", 7)
	seedStock(t, db, "майка", "L", "А2", 4)

	rows, err := store.ListStock(context.Background())
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Ordered by name: болт before майка.
	if rows[0].Name != "болт" || rows[0].Size != nil {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Name != "майка" || rows[1].Size == nil || *rows[1].Size != "L" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestRecentLogs_FilterAndOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	records := []domain.AuditRecord{
		{User: "vasya", SQLText: "s1", Summary: "первая операция", Success: true},
		{User: "vasya", SQLText: "s2", Summary: "", Success: true},
		{User: "vasya", SQLText: "s3", Summary: "провал", Success: false},
		{User: "petya", SQLText: "s4", Summary: "вторая операция", Success: true},
	}
	for _, rec := range records {
		if err := store.AppendAudit(ctx, rec); err != nil {
			t.Fatalf("append audit: %v", err)
		}
	}

	logs, err := store.RecentLogs(ctx, 15)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(logs))
	}
	if logs[0].Summary != "вторая операция" || logs[1].Summary != "первая операция" {
		t.Errorf("wrong order: %q then %q", logs[0].Summary, logs[1].Summary)
	}
	if logs[0].TS.IsZero() {
		t.Errorf("timestamp not populated")
	}
}
