package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mareevma/skladbot/internal/core/domain"
)

const noResultText = "По запросу ничего не найдено."

const sizePlaceholder = "-"

var columnTitles = map[string]string{
	"name":          "Товар",
	"size":          "Размер",
	"location_code": "Ячейка",
	"qty":           "Кол-во",
}

// FormatTable renders a read result as an aligned monospace table in a
// code block, preserving the column order the final statement produced.
// A NULL size renders as "-".
func FormatTable(res *domain.ReadResult) string {
	if res == nil || len(res.Rows) == 0 {
		return noResultText
	}

	render := func(col string, v any) string {
		if v == nil {
			if col == "size" {
				return sizePlaceholder
			}
			return ""
		}
		return fmt.Sprint(v)
	}

	widths := make(map[string]int, len(res.Columns))
	for _, col := range res.Columns {
		widths[col] = utf8.RuneCountInString(title(col))
		for _, row := range res.Rows {
			if n := utf8.RuneCountInString(render(col, row[col])); n > widths[col] {
				widths[col] = n
			}
		}
	}

	var b strings.Builder
	b.WriteString("```\n")

	cells := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		cells[i] = padRight(title(col), widths[col])
	}
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString("\n")

	for i, col := range res.Columns {
		cells[i] = strings.Repeat("-", widths[col])
	}
	b.WriteString(strings.Join(cells, "-+-"))
	b.WriteString("\n")

	for _, row := range res.Rows {
		for i, col := range res.Columns {
			cells[i] = padRight(render(col, row[col]), widths[col])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}

	b.WriteString("```")
	return b.String()
}

func title(col string) string {
	if t, ok := columnTitles[col]; ok {
		return t
	}
	return col
}

func padRight(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// StockReadResult converts stock rows into the read-result shape so
// they render through the same table formatter.
func StockReadResult(rows []domain.StockRow) *domain.ReadResult {
	res := &domain.ReadResult{Columns: []string{"name", "size", "location_code", "qty"}}
	for _, r := range rows {
		rec := map[string]any{
			"name":          r.Name,
			"size":          nil,
			"location_code": r.Location,
			"qty":           r.Qty,
		}
		if r.Size != nil {
			rec["size"] = *r.Size
		}
		res.Rows = append(res.Rows, rec)
	}
	return res
}

// WriteStockCSV writes the stock table as CSV. A NULL size becomes an
// empty field.
func WriteStockCSV(w io.Writer, rows []domain.StockRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "size", "location_code", "qty"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		size := ""
		if r.Size != nil {
			size = *r.Size
		}
		if err := cw.Write([]string{r.Name, size, r.Location, strconv.Itoa(r.Qty)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
