package grid

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Coord is a coordinate along one axis: one position per dimension.
type Coord []int

// CellIndex locates a cell by its row coordinate and column coordinate.
type CellIndex struct {
	Rows Coord
	Cols Coord
}

// Cell builds a CellIndex, copying both coordinates.
func Cell(rows, cols []int) CellIndex {
	return CellIndex{Rows: append(Coord(nil), rows...), Cols: append(Coord(nil), cols...)}
}

// CellKey is the comparable form of a CellIndex, usable as a map key.
type CellKey string

// Key returns the comparable form of c. Equal cell indexes have equal keys.
func (c CellIndex) Key() CellKey {
	var b strings.Builder
	writeCoord(&b, c.Rows)
	b.WriteByte('|')
	writeCoord(&b, c.Cols)
	return CellKey(b.String())
}

func (c CellIndex) String() string { return "(" + string(c.Key()) + ")" }

// Equal reports whether both coordinates match component by component.
func (c CellIndex) Equal(o CellIndex) bool { return c.Key() == o.Key() }

// Validate checks c against the row and column dimension lengths.
func (c CellIndex) Validate(rowLens, colLens []int) error {
	if len(c.Rows) != len(rowLens) || len(c.Cols) != len(colLens) {
		return errors.Wrapf(ErrOutOfRange, "cell %s has %d row and %d column components, want %d and %d",
			c, len(c.Rows), len(c.Cols), len(rowLens), len(colLens))
	}
	for i, r := range c.Rows {
		if r < 0 || r >= rowLens[i] {
			return errors.Wrapf(ErrOutOfRange, "cell %s: row component %d not in [0,%d)", c, i, rowLens[i])
		}
	}
	for j, col := range c.Cols {
		if col < 0 || col >= colLens[j] {
			return errors.Wrapf(ErrOutOfRange, "cell %s: column component %d not in [0,%d)", c, j, colLens[j])
		}
	}
	return nil
}

// ItemsAt returns the items contributing to c: one per row dimension followed
// by one per column dimension.
func ItemsAt(rows, cols []Dimension, c CellIndex) []Item {
	items := make([]Item, 0, len(c.Rows)+len(c.Cols))
	for d, r := range c.Rows {
		items = append(items, rows[d].Item(r))
	}
	for d, col := range c.Cols {
		items = append(items, cols[d].Item(col))
	}
	return items
}

func writeCoord(b *strings.Builder, c Coord) {
	for i, v := range c {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
