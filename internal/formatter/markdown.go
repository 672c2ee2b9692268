// Package formatter renders normalized records as aligned markdown tables.
package formatter

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"ulama/internal/models"
	"ulama/pkg/utils"
)

// PreviewColumns are the record fields shown by PreviewTable, in order.
var PreviewColumns = []string{"id", "name", "name_ar", "origin", "works"}

// MinCellWidth is the narrowest column the table renders.
const MinCellWidth = 3

// PreviewTable renders at most maxRows records as a markdown table. Cells are
// single-line and cut to maxWidth terminal cells. Zero rows gives just the
// header and separator.
func PreviewTable(records []models.Scholar, maxRows, maxWidth int) string {
	if maxRows > len(records) {
		maxRows = len(records)
	}

	if maxRows < 0 {
		maxRows = 0
	}

	if maxWidth < MinCellWidth {
		maxWidth = MinCellWidth
	}

	helper := utils.NewStringHelper()

	table := make([][]string, 0, maxRows+1)
	table = append(table, PreviewColumns)

	for _, rec := range records[:maxRows] {
		row := []string{
			formatValue(rec.ID),
			rec.Name,
			optional(rec.NameAr),
			optional(rec.Origin),
			formatWorks(rec.Works),
		}

		for i, cell := range row {
			cell = helper.NormalizeWhitespace(cell)
			cell = strings.ReplaceAll(cell, "|", `\|`)
			row[i] = helper.TruncateString(cell, maxWidth)
		}

		table = append(table, row)
	}

	return strings.Join(alignTable(table), "\n") + "\n"
}

// alignTable pads every cell of table to its column's display width and
// inserts a dash separator after the first row.
func alignTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i := 0; i < len(row); i++ {
			width := runewidth.StringWidth(row[i])
			if width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < MinCellWidth {
			colWidths[i] = MinCellWidth
		}
	}

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result := make([]string, 0, len(table)+1)

	for i, row := range table {
		result = append(result, renderRow(row, colWidths))

		if i == 0 {
			result = append(result, renderRow(separator, colWidths))
		}
	}

	return result
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(content)

		// Pad with spaces based on display width
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

func optional(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func formatWorks(works []any) string {
	parts := make([]string, 0, len(works))
	for _, w := range works {
		parts = append(parts, formatValue(w))
	}

	return strings.Join(parts, "; ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case int, int64, float64, bool:
		return fmt.Sprint(x)
	}

	b, err := models.MarshalLiteral(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
