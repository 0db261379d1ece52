package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert shows a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<span class="code">Code: `)
			h.text(code)
			h.raw(`</span>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// ErrorList shows the messages of a failed save above the table.
func ErrorList(messages []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(messages) == 0 {
			return nil
		}
		h := newHTML(ctx, w)
		h.raw(`<div class="alert alert-error" role="alert"><ul class="errors">`)
		for _, m := range messages {
			h.raw(`<li>`)
			h.text(m)
			h.raw(`</li>`)
		}
		h.raw(`</ul></div>`)
		return h.err
	})
}

// Flash shows a success notice.
func Flash(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if message == "" {
			return nil
		}
		h := newHTML(ctx, w)
		h.raw(`<div class="alert alert-success" role="status">`)
		h.text(message)
		h.raw(`</div>`)
		return h.err
	})
}
