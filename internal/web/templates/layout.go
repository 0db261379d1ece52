package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2937; }
a { color: #2563eb; }
table.dimtable { border-collapse: collapse; margin-top: 1rem; }
table.dimtable th, table.dimtable td { border: 1px solid #d1d5db; padding: 0.25rem 0.5rem; }
table.dimtable th { background: #f3f4f6; font-weight: 600; }
table.dimtable th.first-of-group, table.dimtable tr.first-of-group td { border-top: 2px solid #6b7280; }
table.dimtable td.editable input { width: 6rem; border: none; background: transparent; text-align: right; }
table.dimtable td.error { background: #fee2e2; }
table.dimtable th.weekend { background: #e5e7eb; }
.alert { padding: 0.75rem 1rem; border-radius: 0.25rem; margin: 1rem 0; }
.alert-error { background: #fee2e2; color: #991b1b; }
.alert-success { background: #dcfce7; color: #166534; }
.code { font-family: monospace; font-size: 0.85em; }
`

// Page wraps body in the HTML document.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>`)
		h.raw(stylesheet)
		h.raw(`</style></head><body><nav><a href="/">Tables</a></nav><main>`)
		h.component(body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}
