package grid

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyDimension is returned when a dimension would have no items.
	ErrEmptyDimension = errors.New("dimension must have at least one item")

	// ErrOutOfRange is returned for coordinates or flat indexes outside a table.
	ErrOutOfRange = errors.New("index out of range")
)

// Dimension is an immutable ordered list of items along one axis. Positions
// are stable for the lifetime of a table; coordinates refer to them by index.
type Dimension struct {
	items []Item
	input bool
}

// NewDimension creates a dimension from items.
func NewDimension(items ...Item) (Dimension, error) {
	if len(items) == 0 {
		return Dimension{}, ErrEmptyDimension
	}
	cp := make([]Item, len(items))
	copy(cp, items)
	return Dimension{items: cp}, nil
}

// NewInputDimension creates the dimension whose positions are the editable
// fields of a record.
func NewInputDimension(items ...Item) (Dimension, error) {
	d, err := NewDimension(items...)
	if err != nil {
		return Dimension{}, errors.Wrap(err, "input dimension")
	}
	d.input = true
	return d, nil
}

// MustDimension is like NewDimension but panics on error. Intended for
// statically known dimensions.
func MustDimension(items ...Item) Dimension {
	d, err := NewDimension(items...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Dimension) Len() int       { return len(d.items) }
func (d Dimension) Item(i int) Item { return d.items[i] }
func (d Dimension) IsInput() bool  { return d.input }

// Items returns a copy of the items.
func (d Dimension) Items() []Item {
	cp := make([]Item, len(d.items))
	copy(cp, d.items)
	return cp
}

// Values returns the underlying value of each item.
func (d Dimension) Values() []any {
	vs := make([]any, len(d.items))
	for i, it := range d.items {
		vs[i] = it.Value()
	}
	return vs
}

// Representations returns the display string of each item.
func (d Dimension) Representations() []string {
	rs := make([]string, len(d.items))
	for i, it := range d.items {
		rs[i] = it.Representation()
	}
	return rs
}

// Field returns the record field the dimension is bound to, taken from its
// first record-bound item, or "" for label-only dimensions.
func (d Dimension) Field() string {
	for _, it := range d.items {
		if m, ok := it.(RecordMatcher); ok {
			return m.Field()
		}
	}
	return ""
}

// IndexOf returns the position of the first item matching r.
func (d Dimension) IndexOf(r Record) (int, bool) {
	for i, it := range d.items {
		if m, ok := it.(RecordMatcher); ok && m.MatchesRecord(r) {
			return i, true
		}
	}
	return 0, false
}

// Lengths returns the length of each dimension.
func Lengths(dims []Dimension) []int {
	ls := make([]int, len(dims))
	for i, d := range dims {
		ls[i] = d.Len()
	}
	return ls
}

func product(ls []int) int {
	p := 1
	for _, l := range ls {
		p *= l
	}
	return p
}
