package domain

import (
	"fmt"
	"time"
)

// AllowedSizes is the fixed garment size set; anything else is stored
// with size NULL.
var AllowedSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}

// Warehouse cells are row letter + column number, e.g. А1..Е10.
const (
	LocationRows = "АБВГДЕ"
	LocationCols = 10
)

// LocationCodes returns the full fixed cell set, seeded once at startup
// and immutable afterwards.
func LocationCodes() []string {
	codes := make([]string, 0, len([]rune(LocationRows))*LocationCols)
	for _, r := range LocationRows {
		for c := 1; c <= LocationCols; c++ {
			codes = append(codes, fmt.Sprintf("%c%d", r, c))
		}
	}
	return codes
}

// StockRow is one quantity of an item in one cell. Size is nil for
// sizeless goods.
type StockRow struct {
	Name     string
	Size     *string
	Location string
	Qty      int
}

// AuditRecord is one immutable tx_log entry: every attempted script,
// successful or not, produces exactly one.
type AuditRecord struct {
	ID      int64
	TS      time.Time
	User    string
	SQLText string
	Summary string
	Success bool
}
