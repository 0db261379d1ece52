package grid

// Done is returned by Iterator.Next once every combination has been visited.
const Done = -1

// Iterator enumerates every coordinate over an ordered list of dimensions in
// nested order: the innermost (last) dimension varies fastest, and a dimension
// advances only after everything to its right has been exhausted.
type Iterator struct {
	lens     []int
	ix       []int
	finished bool
}

// NewIterator starts at the all-zero coordinate.
func NewIterator(dims []Dimension) *Iterator {
	return IteratorFromLengths(Lengths(dims))
}

// IteratorFromLengths is NewIterator for bare dimension lengths.
func IteratorFromLengths(lens []int) *Iterator {
	it := &Iterator{
		lens: append([]int(nil), lens...),
		ix:   make([]int, len(lens)),
	}
	for _, l := range lens {
		if l <= 0 {
			it.finished = true
		}
	}
	return it
}

// Current returns a copy of the current coordinate.
func (it *Iterator) Current() Coord {
	return append(Coord(nil), it.ix...)
}

// Next advances to the following coordinate and returns the index of the
// outermost dimension whose position changed, or Done when the leftmost
// dimension overflows. Calling Next on a finished iterator returns Done.
func (it *Iterator) Next() int {
	if it.finished {
		return Done
	}
	for d := len(it.ix) - 1; d >= 0; d-- {
		if it.ix[d]+1 < it.lens[d] {
			it.ix[d]++
			return d
		}
		it.ix[d] = 0
	}
	it.finished = true
	return Done
}

func (it *Iterator) Finished() bool { return it.finished }

// FirstOfGroup reports whether every component except the outermost is zero,
// i.e. the coordinate starts a new value of the outermost dimension.
func (it *Iterator) FirstOfGroup() bool {
	for d := 1; d < len(it.ix); d++ {
		if it.ix[d] != 0 {
			return false
		}
	}
	return true
}

// LastOfGroup reports whether every component except the outermost is at its
// last position.
func (it *Iterator) LastOfGroup() bool {
	for d := 1; d < len(it.ix); d++ {
		if it.ix[d] != it.lens[d]-1 {
			return false
		}
	}
	return true
}
