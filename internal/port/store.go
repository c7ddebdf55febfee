package port

import (
	"context"

	"github.com/mareevma/skladbot/internal/core/domain"
)

type WarehouseStore interface {
	// ExecScript runs validated statements in order inside one
	// transaction and unconditionally appends an audit record with the
	// outcome. Read mode returns the final statement's rows.
	ExecScript(ctx context.Context, stmts []string, mode domain.Mode, actor, summary string) (*domain.ReadResult, error)

	// AppendAudit records an attempt that never produced a script run,
	// e.g. a business-rule refusal from the generator.
	AppendAudit(ctx context.Context, rec domain.AuditRecord) error

	// BuildStockContext renders the bounded snapshot handed to the
	// command generator. Never exposes item ids.
	BuildStockContext(ctx context.Context, limit int) (string, error)

	// ListStock returns all stock rows ordered by item name, size,
	// location.
	ListStock(ctx context.Context) ([]domain.StockRow, error)

	// RecentLogs returns the newest successful audit records with a
	// non-empty summary, newest first.
	RecentLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}
