package grid

import (
	"github.com/cockroachdb/errors"
)

// Indexer maps cell indexes to a flat integer and back. The coordinate is read
// as a mixed-radix number: row components are the most significant digits,
// column components the least significant, each axis in dimension order.
type Indexer struct {
	rowLens []int
	colLens []int
}

// NewIndexer builds an indexer over the given row and column dimensions.
func NewIndexer(rows, cols []Dimension) Indexer {
	return IndexerFromLengths(Lengths(rows), Lengths(cols))
}

// IndexerFromLengths builds an indexer from dimension cardinalities alone, as
// a stateless client does from the hidden side channel.
func IndexerFromLengths(rowLens, colLens []int) Indexer {
	return Indexer{
		rowLens: append([]int(nil), rowLens...),
		colLens: append([]int(nil), colLens...),
	}
}

func (x Indexer) RowLengths() []int { return append([]int(nil), x.rowLens...) }
func (x Indexer) ColLengths() []int { return append([]int(nil), x.colLens...) }

// Total is the number of cells, the size of the flat index space.
func (x Indexer) Total() int {
	return product(x.rowLens) * product(x.colLens)
}

// ToFlat encodes c. It fails for cell indexes outside the table.
func (x Indexer) ToFlat(c CellIndex) (int, error) {
	if err := c.Validate(x.rowLens, x.colLens); err != nil {
		return 0, err
	}
	return x.flat(c), nil
}

func (x Indexer) flat(c CellIndex) int {
	n := 0
	for i, r := range c.Rows {
		n = n*x.rowLens[i] + r
	}
	for j, col := range c.Cols {
		n = n*x.colLens[j] + col
	}
	return n
}

// FromFlat decodes n by repeated division, least significant digit first:
// columns right to left, then rows right to left.
func (x Indexer) FromFlat(n int) (CellIndex, error) {
	if n < 0 || n >= x.Total() {
		return CellIndex{}, errors.Wrapf(ErrOutOfRange, "flat index %d not in [0,%d)", n, x.Total())
	}
	c := CellIndex{Rows: make(Coord, len(x.rowLens)), Cols: make(Coord, len(x.colLens))}
	for j := len(x.colLens) - 1; j >= 0; j-- {
		c.Cols[j] = n % x.colLens[j]
		n /= x.colLens[j]
	}
	for i := len(x.rowLens) - 1; i >= 0; i-- {
		c.Rows[i] = n % x.rowLens[i]
		n /= x.rowLens[i]
	}
	return c, nil
}
