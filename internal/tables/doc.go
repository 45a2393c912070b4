// Package tables reassembles sparse, row/column indexed CELL blocks into
// dense grids of strings.
//
// Assembly is a fold over the block sequence with two states. A TABLE block
// always starts a new grid, closing the open one; CELL blocks write into the
// open grid and are ignored when no grid is open. Grids stay rectangular:
// when a cell widens the table, every existing row is padded with empty
// strings.
//
// Cells spanning several rows or columns are written once at their anchor
// position only. Spans are not expanded into the cells they cover.
package tables
