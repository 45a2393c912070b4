package tables

import (
	"strings"

	"github.com/jackzampolin/tablescan/internal/blocks"
)

type state int

const (
	stateNoGrid state = iota
	stateGridOpen
)

// Assembler folds a block sequence into grids.
type Assembler struct {
	index *blocks.Index

	state   state
	current Grid
	width   int

	grids  []Grid
	tables int
}

// NewAssembler creates an assembler resolving cell text through index.
// The index must cover every block that will be fed.
func NewAssembler(index *blocks.Index) *Assembler {
	return &Assembler{index: index}
}

// Feed advances the state machine by one block. Blocks other than TABLE and
// CELL are ignored.
func (a *Assembler) Feed(b blocks.Block) {
	switch b.Type {
	case blocks.TypeTable:
		a.onTable(b)
	case blocks.TypeCell:
		a.onCell(b)
	}
}

func (a *Assembler) onTable(b blocks.Block) {
	if a.state == stateGridOpen {
		a.closeGrid()
	}
	a.tables++
	a.current = Grid{Page: b.Page}
	a.width = 0
	a.state = stateGridOpen
}

func (a *Assembler) onCell(b blocks.Block) {
	if a.state != stateGridOpen {
		return
	}
	// RowIndex and ColumnIndex are 1-based; a missing index cannot be placed.
	if b.RowIndex < 1 || b.ColumnIndex < 1 {
		return
	}
	row, col := b.RowIndex-1, b.ColumnIndex-1
	if col+1 > a.width {
		a.width = col + 1
	}
	a.current.put(row, col, a.width, CellText(a.index, b))
}

func (a *Assembler) closeGrid() {
	if !a.current.Empty() {
		a.grids = append(a.grids, a.current)
	}
	a.current = Grid{}
	a.width = 0
	a.state = stateNoGrid
}

// Close closes any open grid and returns every non-empty grid in table order.
func (a *Assembler) Close() []Grid {
	if a.state == stateGridOpen {
		a.closeGrid()
	}
	return a.grids
}

// TablesSeen returns how many TABLE blocks were fed, including tables that
// produced no rows.
func (a *Assembler) TablesSeen() int {
	return a.tables
}

// Assemble indexes the full collection and folds it into grids.
func Assemble(bs []blocks.Block) []Grid {
	a := NewAssembler(blocks.NewIndex(bs))
	for _, b := range bs {
		a.Feed(b)
	}
	return a.Close()
}

// CellText joins the text of every CHILD WORD block of cell with single
// spaces and trims the result. Unknown identifiers and non-WORD children
// contribute nothing.
func CellText(index *blocks.Index, cell blocks.Block) string {
	var words []string
	for _, id := range cell.ChildIDs() {
		child, ok := index.Get(id)
		if !ok || child.Type != blocks.TypeWord {
			continue
		}
		words = append(words, child.Text)
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
