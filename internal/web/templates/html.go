// Package templates holds the HTML components of the web UI.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// html writes markup and keeps the first write error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{ctx: ctx, w: w}
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s escaped.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"`; empty values are skipped.
func (h *html) attr(name, value string) {
	if value == "" {
		return
	}
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// span writes a rowspan or colspan attribute when n covers more than one cell.
func (h *html) span(name string, n int) {
	if n > 1 {
		h.raw(" " + name + `="` + strconv.Itoa(n) + `"`)
	}
}

func (h *html) component(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}
