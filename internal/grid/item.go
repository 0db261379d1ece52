// Package grid holds the dimension model of a pivot table and the pure index
// arithmetic built on it: coordinate iteration, the flat index bijection and
// header span computation.
//
// Nothing in this package performs I/O or keeps shared mutable state, so
// independent tables can be rendered concurrently.
package grid

import (
	"fmt"
	"reflect"
	"time"
)

// NotAvailable is the representation used when an item has nothing to show.
const NotAvailable = "n/a"

// Record is a backing entity located by a coordinate. It is owned by an
// external datastore; the grid only reads and writes named fields on it.
type Record interface {
	ID() int64
	Get(field string) any
	Set(field string, value any)
}

// Item is one labeled position along a Dimension.
type Item interface {
	Value() any
	Representation() string
	Editable() bool
	CSSTags() []string
}

// RecordMatcher is implemented by items bound to a record field. It is used to
// derive coordinates from existing records and to fill fields of new ones.
type RecordMatcher interface {
	Item
	Field() string
	MatchesRecord(r Record) bool
	HiddenValue() string
}

// RecordRenderer is implemented by items of the input dimension. Each one
// addresses a single editable field of the record at a coordinate.
type RecordRenderer interface {
	Item
	Field() string
	RenderRecordValue(r Record) string
}

// Renderer turns an item value into its display string.
type Renderer func(v any) string

func defaultRenderer(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// EmptyItem renders as an empty header.
type EmptyItem struct{}

func (EmptyItem) Value() any             { return nil }
func (EmptyItem) Representation() string { return "" }
func (EmptyItem) Editable() bool         { return false }
func (EmptyItem) CSSTags() []string      { return nil }

// LabelItem is a plain label that is not bound to any record field.
type LabelItem struct {
	value  any
	render Renderer
	tags   []string
}

// NewLabelItem creates a label. A nil renderer uses fmt.Sprint.
func NewLabelItem(value any, render Renderer, tags ...string) LabelItem {
	if render == nil {
		render = defaultRenderer
	}
	return LabelItem{value: value, render: render, tags: tags}
}

func (i LabelItem) Value() any             { return i.value }
func (i LabelItem) Representation() string { return i.render(i.value) }
func (i LabelItem) Editable() bool         { return false }
func (i LabelItem) CSSTags() []string      { return i.tags }

// Labels builds one LabelItem per value.
func Labels(values ...any) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = NewLabelItem(v, nil)
	}
	return items
}

// ValueItem is a dimension position bound to a record field: a record belongs
// to this position when its field equals the item's value.
type ValueItem struct {
	LabelItem
	field string
}

// NewValueItem creates an item for field == value.
func NewValueItem(field string, value any, render Renderer, tags ...string) ValueItem {
	return ValueItem{LabelItem: NewLabelItem(value, render, tags...), field: field}
}

// Values builds one ValueItem per value of field.
func Values[T any](field string, values []T, render Renderer) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = NewValueItem(field, v, render)
	}
	return items
}

func (i ValueItem) Editable() bool { return true }
func (i ValueItem) Field() string  { return i.field }

func (i ValueItem) MatchesRecord(r Record) bool {
	if r == nil {
		return false
	}
	return Equal(r.Get(i.field), i.value)
}

// HiddenValue serializes the value for the hidden side channel.
func (i ValueItem) HiddenValue() string { return HiddenString(i.value) }

// HiddenString is the side channel form of a field value. Dates use the
// compact yyyymmdd form.
func HiddenString(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format("20060102")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// InputItem is a position of the input dimension: it edits one field of the
// record addressed by the rest of the coordinate.
type InputItem struct {
	field  string
	label  string
	format Renderer
	tags   []string
}

// NewInputItem creates an input position for field. The label is used as the
// row header; format renders the stored field value into the cell.
func NewInputItem(field, label string, format Renderer, tags ...string) InputItem {
	if label == "" {
		label = field
	}
	if format == nil {
		format = defaultRenderer
	}
	return InputItem{field: field, label: label, format: format, tags: tags}
}

func (i InputItem) Value() any             { return i.field }
func (i InputItem) Representation() string { return i.label }
func (i InputItem) Editable() bool         { return true }
func (i InputItem) CSSTags() []string      { return i.tags }
func (i InputItem) Field() string          { return i.field }

func (i InputItem) RenderRecordValue(r Record) string {
	if r == nil {
		return ""
	}
	return i.format(r.Get(i.field))
}

// CustomItem occupies an input position without being bound to a field.
type CustomItem struct {
	name string
}

func NewCustomItem(name string) CustomItem { return CustomItem{name: name} }

func (i CustomItem) Value() any                      { return i.name }
func (i CustomItem) Representation() string          { return i.name }
func (i CustomItem) Editable() bool                  { return false }
func (i CustomItem) CSSTags() []string               { return nil }
func (i CustomItem) Field() string                   { return "" }
func (i CustomItem) RenderRecordValue(Record) string { return NotAvailable }

// Equal compares a stored field value with an item value. Integers of any
// width compare by value and times compare as instants.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if ia, ok := asInt64(a); ok {
		ib, ok := asInt64(b)
		return ok && ia == ib
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() == rb.Type() && ra.Comparable() {
		return ra.Equal(rb)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
