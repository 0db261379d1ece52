package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dimtable/internal/core"
)

// TableGroup is one section of the index.
type TableGroup struct {
	Name   string
	Tables []core.TableInfo
}

// GroupTables splits infos, already sorted by group, into sections.
func GroupTables(infos []core.TableInfo) []TableGroup {
	var groups []TableGroup
	for _, info := range infos {
		if n := len(groups); n == 0 || groups[n-1].Name != info.Group {
			groups = append(groups, TableGroup{Name: info.Group})
		}
		g := &groups[len(groups)-1]
		g.Tables = append(g.Tables, info)
	}
	return groups
}

// Index lists the registered tables.
func Index(groups []TableGroup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<h1>Tables</h1>`)
		if len(groups) == 0 {
			h.raw(`<p>No tables are registered.</p>`)
		}
		for _, g := range groups {
			h.raw(`<section>`)
			if g.Name != "" {
				h.raw(`<h2>`)
				h.text(g.Name)
				h.raw(`</h2>`)
			}
			h.raw(`<ul>`)
			for _, t := range g.Tables {
				h.raw(`<li><a`)
				h.attr("href", "/table/"+t.Key)
				h.raw(`>`)
				h.text(t.Label)
				h.raw(`</a>`)
				if t.ReadOnly {
					h.raw(` <small>(read-only)</small>`)
				}
				h.raw(`</li>`)
			}
			h.raw(`</ul></section>`)
		}
		return h.err
	})
}
