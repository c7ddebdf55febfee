package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mareevma/skladbot/internal/core/domain"
)

// SQLiteStore owns the single shared connection to the warehouse
// database. Callers serialize access; the store itself holds no state
// beyond the handle.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ExecScript runs the validated statements inside one transaction.
// Whatever happens, exactly one audit record is appended: the deferred
// write runs in its own implicit transaction on a background context,
// so neither a rollback nor a cancelled caller can skip it.
func (s *SQLiteStore) ExecScript(ctx context.Context, stmts []string, mode domain.Mode, actor, summary string) (result *domain.ReadResult, err error) {
	script := strings.Join(stmts, "; ")
	committed := false

	defer func() {
		rec := domain.AuditRecord{
			User:    actor,
			SQLText: script,
			Summary: summary,
			Success: committed,
		}
		if auditErr := s.AppendAudit(context.Background(), rec); auditErr != nil && err == nil {
			err = fmt.Errorf("append audit: %w", auditErr)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if mode == domain.ModeRead {
			rows, qerr := tx.QueryContext(ctx, stmt)
			if qerr != nil {
				return nil, fmt.Errorf("query: %w", qerr)
			}
			// Later statements overwrite earlier results: the final
			// statement's rows are the read result.
			result, err = collectRows(rows)
			if err != nil {
				return nil, fmt.Errorf("collect rows: %w", err)
			}
		} else {
			if _, eerr := tx.ExecContext(ctx, stmt); eerr != nil {
				return nil, fmt.Errorf("exec: %w", eerr)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return result, nil
}

func collectRows(rows *sql.Rows) (*domain.ReadResult, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &domain.ReadResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		res.Rows = append(res.Rows, rec)
	}
	return res, rows.Err()
}

// AppendAudit inserts one tx_log row. tx_log is append-only; nothing
// in the core ever updates or deletes it.
func (s *SQLiteStore) AppendAudit(ctx context.Context, rec domain.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tx_log(user, sql_text, summary, success) VALUES (?, ?, ?, ?)`,
		rec.User, rec.SQLText, rec.Summary, rec.Success,
	)
	if err != nil {
		return fmt.Errorf("insert tx_log: %w", err)
	}
	return nil
}

// BuildStockContext renders the snapshot handed to the command
// generator: up to limit rows, deterministically ordered, with a
// truncation marker when more exist. Item ids never appear here.
func (s *SQLiteStore) BuildStockContext(ctx context.Context, limit int) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT items.name,
		       IFNULL(items.size,'NULL') AS size,
		       stock.location_code, stock.qty
		FROM stock JOIN items ON items.id = stock.item_id
		ORDER BY items.name, items.size, stock.location_code
		LIMIT ?`, limit+1)
	if err != nil {
		return "", fmt.Errorf("query stock context: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var name, size, location string
		var qty int
		if err := rows.Scan(&name, &size, &location, &qty); err != nil {
			return "", fmt.Errorf("scan stock context: %w", err)
		}
		lines = append(lines, fmt.Sprintf("- %s, %s, %s, qty=%d", name, size, location, qty))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate stock context: %w", err)
	}

	if len(lines) > limit {
		lines = append(lines[:limit], "- …")
	}
	header := fmt.Sprintf("Текущий склад (первые %d строк):", limit)
	return header + "\n" + strings.Join(lines, "\n"), nil
}

// ListStock returns every stock row joined with its item, ordered by
// name, size, location.
func (s *SQLiteStore) ListStock(ctx context.Context) ([]domain.StockRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT items.name, items.size, stock.location_code, stock.qty
		FROM stock JOIN items ON items.id = stock.item_id
		ORDER BY items.name, items.size, stock.location_code`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var out []domain.StockRow
	for rows.Next() {
		var r domain.StockRow
		var size sql.NullString
		if err := rows.Scan(&r.Name, &size, &r.Location, &r.Qty); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if size.Valid {
			r.Size = &size.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentLogs returns the newest successful audit records that carry a
// summary, newest first. ts has second resolution, so id breaks ties.
func (s *SQLiteStore) RecentLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, user, sql_text, summary, success FROM tx_log
		WHERE success = 1 AND summary IS NOT NULL AND summary != ''
		ORDER BY ts DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tx_log: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.TS, &rec.User, &rec.SQLText, &rec.Summary, &rec.Success); err != nil {
			return nil, fmt.Errorf("scan tx_log: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
