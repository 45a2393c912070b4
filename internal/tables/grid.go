package tables

import "strings"

// Grid is the dense reconstruction of one table.
type Grid struct {
	// Page is the page of the TABLE block that opened the grid.
	Page int
	Rows [][]string
}

// Empty reports whether the grid has no rows.
func (g Grid) Empty() bool {
	return len(g.Rows) == 0
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Header returns the first row with each cell trimmed, or nil for an empty grid.
func (g Grid) Header() []string {
	if g.Empty() {
		return nil
	}
	out := make([]string, len(g.Rows[0]))
	for i, c := range g.Rows[0] {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// Body returns every row after the header.
func (g Grid) Body() [][]string {
	if len(g.Rows) < 2 {
		return nil
	}
	return g.Rows[1:]
}

// put writes text at [row][col], growing the grid so that every row is at
// least width cells wide.
func (g *Grid) put(row, col, width int, text string) {
	grew := false
	for len(g.Rows) <= row {
		g.Rows = append(g.Rows, make([]string, 0, width))
		grew = true
	}
	if grew || len(g.Rows[row]) < width {
		for i := range g.Rows {
			for len(g.Rows[i]) < width {
				g.Rows[i] = append(g.Rows[i], "")
			}
		}
	}
	g.Rows[row][col] = text
}
