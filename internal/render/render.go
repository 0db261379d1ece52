// Package render lays out a pivot table: the header rows with their spans,
// one body row per row coordinate with its headers and decorated cells, the
// consolidated error list and the hidden side channel a client posts back.
//
// The output is plain structure; markup is left to the presentation layer.
package render

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/store"
)

const (
	DefaultCSSClass = "dimtable"

	ClassEditable     = "editable"
	ClassError        = "error"
	ClassFirstOfGroup = "first-of-group"
	ClassLastOfGroup  = "last-of-group"
)

// Options control the presentation of a table.
type Options struct {
	Prefix      string // Namespaces every id and form key of the table
	CSSClass    string
	CornerTitle string
	Editable    bool
}

// Table is the rendered structure of one table instance.
type Table struct {
	Prefix   string
	CSSClass string
	Editable bool
	Corner   HeaderCell
	Head     []HeaderRow // One per column dimension; the corner precedes the first
	Body     []BodyRow
	Hidden   SideChannel
	Errors   []string
}

type HeaderRow struct {
	Cells []HeaderCell
}

type HeaderCell struct {
	Text    string
	RowSpan int
	ColSpan int
	Classes []string
}

type BodyRow struct {
	Classes []string
	Headers []HeaderCell
	Cells   []Cell
}

type Cell struct {
	ID       string // Element id and form key: <prefix>_cell_<flat>
	Flat     int
	Text     string
	Classes  []string
	Title    string
	Editable bool
}

// Class joins the classes of c for a class attribute.
func (c Cell) Class() string { return strings.Join(c.Classes, " ") }

// Class joins the classes of h for a class attribute.
func (h HeaderCell) Class() string { return strings.Join(h.Classes, " ") }

// Class joins the classes of r for a class attribute.
func (r BodyRow) Class() string { return strings.Join(r.Classes, " ") }

// Renderer lays out the table held by a store.
type Renderer struct {
	store *store.Store
	opts  Options
	rows  []grid.Dimension
	cols  []grid.Dimension
}

func New(s *store.Store, opts Options) *Renderer {
	if opts.CSSClass == "" {
		opts.CSSClass = DefaultCSSClass
	}
	if opts.Prefix == "" {
		opts.Prefix = "table"
	}
	return &Renderer{store: s, opts: opts, rows: s.RowDims(), cols: s.ColDims()}
}

// Render lays out the table. When res is the result of a failed save, the
// cells it could not commit show the values that were entered, and its
// errors are listed.
func (r *Renderer) Render(res *edit.Result) *Table {
	t := &Table{
		Prefix:   r.opts.Prefix,
		CSSClass: r.opts.CSSClass,
		Editable: r.opts.Editable,
		Corner: HeaderCell{
			Text:    r.opts.CornerTitle,
			RowSpan: len(r.cols),
			ColSpan: len(r.rows),
		},
		Head:   r.head(),
		Body:   r.body(res),
		Hidden: r.SideChannel(),
	}
	if res != nil {
		t.Errors = res.Messages()
	}
	return t
}

// head builds one header row per column dimension. Headers of dimension i
// span every column nested beneath them and repeat once per combination of
// the dimensions enclosing them.
func (r *Renderer) head() []HeaderRow {
	lens := grid.Lengths(r.cols)
	rows := make([]HeaderRow, len(r.cols))
	for i, d := range r.cols {
		span := grid.Span(lens, i)
		repeat := grid.Repeat(lens, i)
		cells := make([]HeaderCell, 0, repeat*d.Len())
		for k := 0; k < repeat; k++ {
			for _, it := range d.Items() {
				cells = append(cells, HeaderCell{
					Text:    it.Representation(),
					RowSpan: 1,
					ColSpan: span,
					Classes: classes(it.CSSTags()),
				})
			}
		}
		rows[i].Cells = cells
	}
	return rows
}

// body walks the row coordinates in nested order. A row carries header
// cells from the outermost dimension that changed on it inward.
func (r *Renderer) body(res *edit.Result) []BodyRow {
	lens := grid.Lengths(r.rows)
	groups := len(r.rows) > 1

	var out []BodyRow
	it := grid.NewIterator(r.rows)
	changed := 0
	for !it.Finished() {
		rc := it.Current()
		row := BodyRow{}
		for d := changed; d < len(r.rows); d++ {
			item := r.rows[d].Item(rc[d])
			row.Headers = append(row.Headers, HeaderCell{
				Text:    item.Representation(),
				RowSpan: grid.Span(lens, d),
				ColSpan: 1,
				Classes: classes(item.CSSTags()),
			})
		}
		if groups {
			switch {
			case it.FirstOfGroup():
				row.Classes = []string{ClassFirstOfGroup}
			case it.LastOfGroup():
				row.Classes = []string{ClassLastOfGroup}
			}
		}

		cit := grid.NewIterator(r.cols)
		for !cit.Finished() {
			row.Cells = append(row.Cells, r.cell(grid.CellIndex{Rows: rc, Cols: cit.Current()}, res))
			cit.Next()
		}
		out = append(out, row)

		changed = it.Next()
	}
	return out
}

func (r *Renderer) cell(c grid.CellIndex, res *edit.Result) Cell {
	n, _ := r.store.Indexer().ToFlat(c)
	out := Cell{ID: edit.CellKey(r.opts.Prefix, n), Flat: n}

	items := grid.ItemsAt(r.rows, r.cols, c)
	tags := set.New[string](len(items))
	editable := r.opts.Editable
	for _, it := range items {
		editable = editable && it.Editable()
		tags.InsertSlice(it.CSSTags())
	}
	if editable {
		tags.Insert(ClassEditable)
	}
	out.Editable = editable

	if ce, ok := res.CellError(c); ok {
		tags.Insert(ClassError)
		out.Title = strings.Join(ce.Messages, "\n")
		out.Text = ce.Input
	} else if raw, ok := entered(res, n); ok {
		out.Text = raw
	} else {
		out.Text = r.value(c)
	}

	out.Classes = tags.Slice()
	slices.Sort(out.Classes)
	return out
}

// value renders the stored field the cell edits.
func (r *Renderer) value(c grid.CellIndex) string {
	item := r.store.Inputs().Item(r.store.InputIndex(c))
	rr, ok := item.(grid.RecordRenderer)
	if !ok {
		return grid.NotAvailable
	}
	rec, ok := r.store.Get(c)
	if !ok {
		return rr.RenderRecordValue(nil)
	}
	return rr.RenderRecordValue(rec)
}

func entered(res *edit.Result, n int) (string, bool) {
	if res == nil {
		return "", false
	}
	raw, ok := res.Entered[n]
	return raw, ok
}

func classes(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := set.From(tags).Slice()
	slices.Sort(out)
	return out
}
