// Package testutil builds analysis block fixtures for tests.
package testutil

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/tablescan/internal/blocks"
)

// TableBlocks builds a TABLE block followed by CELL blocks for rows, with
// one WORD block per whitespace-separated token. Words are appended after
// the cells, the way the service places them later in the same page batch.
func TableBlocks(id string, page int, rows [][]string) []blocks.Block {
	out := []blocks.Block{{ID: id, Type: blocks.TypeTable, Page: page}}
	var words []blocks.Block
	for r, row := range rows {
		for c, text := range row {
			cellID := fmt.Sprintf("%s-c%d-%d", id, r+1, c+1)
			cell := Cell(cellID, r+1, c+1)
			cell.Page = page
			var ids []string
			for i, tok := range strings.Fields(text) {
				w := Word(fmt.Sprintf("%s-w%d", cellID, i), tok)
				w.Page = page
				ids = append(ids, w.ID)
				words = append(words, w)
			}
			if len(ids) > 0 {
				cell.Relationships = []blocks.Relationship{{Type: blocks.RelationshipChild, IDs: ids}}
			}
			out = append(out, cell)
		}
	}
	return append(out, words...)
}

// Cell builds a CELL block at row, col with optional CHILD word ids.
func Cell(id string, row, col int, children ...string) blocks.Block {
	b := blocks.Block{ID: id, Type: blocks.TypeCell, Page: 1, RowIndex: row, ColumnIndex: col, RowSpan: 1, ColumnSpan: 1}
	if len(children) > 0 {
		b.Relationships = []blocks.Relationship{{Type: blocks.RelationshipChild, IDs: children}}
	}
	return b
}

// Word builds a WORD block.
func Word(id, text string) blocks.Block {
	return blocks.Block{ID: id, Type: blocks.TypeWord, Page: 1, Text: text}
}

// StatementBlocks is a two-table statement: an account summary followed by
// a five-column transaction ledger with two rows.
func StatementBlocks() []blocks.Block {
	bs := TableBlocks("s", 1, [][]string{
		{"Account Name", "Acme Corp"},
		{"Currency", "EUR"},
	})
	return append(bs, TableBlocks("t", 1, [][]string{
		{"Date", "Description", "Deposit", "Withdrawal", "Balance"},
		{"2024-01-01", "Opening", "100.00", "", "100.00"},
		{"2024-01-02", "Coffee", "", "3.50", "96.50"},
	})...)
}
