package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/render"
)

// TableView is the page of one table: its errors, the grid and, for
// editable tables, the form posting it back.
func TableView(info core.TableInfo, t *render.Table, flash string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<h1>`)
		h.text(info.Label)
		h.raw(`</h1>`)
		h.component(Flash(flash))
		h.component(ErrorList(t.Errors))

		if t.Editable {
			h.raw(`<form method="post"`)
			h.attr("action", "/table/"+info.Key)
			h.attr("id", t.Prefix+"_form")
			h.raw(`>`)
			h.component(HiddenFields(t.Hidden.Fields()))
		}
		h.component(Grid(t))
		if t.Editable {
			h.raw(`<p><button type="submit">Save</button></p></form>`)
		}
		return h.err
	})
}

// Grid renders the table element: the header rows, the corner cell and one
// row per row coordinate.
func Grid(t *render.Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<table`)
		h.attr("class", t.CSSClass)
		h.attr("id", t.Prefix)
		h.raw(`><thead>`)
		for i, row := range t.Head {
			h.raw(`<tr>`)
			if i == 0 {
				headerCell(h, "th", t.Corner)
			}
			for _, c := range row.Cells {
				headerCell(h, "th", c)
			}
			h.raw(`</tr>`)
		}
		if len(t.Head) == 0 {
			h.raw(`<tr>`)
			headerCell(h, "th", t.Corner)
			h.raw(`</tr>`)
		}
		h.raw(`</thead><tbody>`)
		for _, row := range t.Body {
			h.raw(`<tr`)
			h.attr("class", row.Class())
			h.raw(`>`)
			for _, c := range row.Headers {
				headerCell(h, "th", c)
			}
			for _, c := range row.Cells {
				dataCell(h, c)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

func headerCell(h *html, tag string, c render.HeaderCell) {
	h.raw(`<` + tag)
	h.attr("class", c.Class())
	h.span("rowspan", c.RowSpan)
	h.span("colspan", c.ColSpan)
	h.raw(`>`)
	h.text(c.Text)
	h.raw(`</` + tag + `>`)
}

func dataCell(h *html, c render.Cell) {
	h.raw(`<td`)
	h.attr("class", c.Class())
	h.attr("title", c.Title)
	h.raw(`>`)
	if c.Editable {
		h.raw(`<input type="text"`)
		h.attr("id", c.ID)
		h.attr("name", c.ID)
		h.raw(` value="`)
		h.text(c.Text)
		h.raw(`">`)
	} else {
		h.text(c.Text)
	}
	h.raw(`</td>`)
}

// HiddenFields renders the side channel a client posts back with its edits.
func HiddenFields(fields []render.HiddenField) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		for _, f := range fields {
			h.raw(`<input type="hidden"`)
			h.attr("name", f.Name)
			h.raw(` value="`)
			h.text(f.Value)
			h.raw(`">`)
		}
		return h.err
	})
}
