package grid

// Span is the number of leaf positions a header at depth i covers: the
// product of the lengths of every dimension nested beneath it. The innermost
// dimension spans 1.
func Span(lens []int, i int) int {
	if i+1 >= len(lens) {
		return 1
	}
	return lens[i+1] * Span(lens, i+1)
}

// Repeat is how many times the headers of dimension i appear along the axis:
// once per combination of the dimensions enclosing it.
func Repeat(lens []int, i int) int {
	return product(lens[:i])
}

// ColSpan is the horizontal span of a column header at depth i.
func ColSpan(cols []Dimension, i int) int { return Span(Lengths(cols), i) }

// RowSpan is the vertical span of a row header at depth i.
func RowSpan(rows []Dimension, i int) int { return Span(Lengths(rows), i) }
