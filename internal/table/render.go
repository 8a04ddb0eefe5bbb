package table

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatFloat renders a number the way the agent reports statistics:
// up to six significant digits, no exponent for ordinary magnitudes.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Render lays out records (first row = header) as an aligned text table
// suitable for embedding in a tool result.
func Render(records [][]string) string {
	return renderRecords(records)
}

func renderRecords(records [][]string) string {
	if len(records) == 0 {
		return ""
	}

	widths := make([]int, len(records[0]))
	for _, row := range records {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	var b strings.Builder
	for rowIdx, row := range records {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}
		b.WriteByte('\n')
		if rowIdx == 0 {
			for i, w := range widths {
				if i > 0 {
					b.WriteString("  ")
				}
				b.WriteString(strings.Repeat("-", w))
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
