package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// cell is one table cell: plain text for width computation plus an optional
// paint applied after padding, so ANSI codes never skew column alignment.
type cell struct {
	text  string
	paint func(a ...any) string
}

func plain(text string) cell {
	return cell{text: text}
}

func painted(p func(a ...any) string, text string) cell {
	return cell{text: text, paint: p}
}

// table renders rows as aligned columns. Widths use display width rather
// than byte length.
type table struct {
	headers []string
	right   map[int]bool
	rows    [][]cell
}

func newTable(headers ...string) *table {
	return &table{
		headers: headers,
		right:   make(map[int]bool, len(headers)),
	}
}

// rightAlign marks columns, by index, as right-aligned.
func (t *table) rightAlign(cols ...int) *table {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

func (t *table) addRow(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			if cw := runewidth.StringWidth(c.text); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	head := make([]cell, len(t.headers))
	sep := make([]cell, len(t.headers))
	for i, h := range t.headers {
		head[i] = plain(h)
		sep[i] = plain(strings.Repeat("-", widths[i]))
	}
	t.writeRow(w, head, widths)
	t.writeRow(w, sep, widths)

	for _, row := range t.rows {
		t.writeRow(w, row, widths)
	}
}

func (t *table) writeRow(w io.Writer, row []cell, widths []int) {
	parts := make([]string, 0, len(row))
	for i, c := range row {
		text := c.text
		// The last column stays unpadded unless right-aligned, so rows do
		// not carry trailing spaces.
		if i < len(row)-1 || t.right[i] {
			if t.right[i] {
				text = runewidth.FillLeft(text, widths[i])
			} else {
				text = runewidth.FillRight(text, widths[i])
			}
		}
		if c.paint != nil {
			text = c.paint(text)
		}
		parts = append(parts, text)
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
}
