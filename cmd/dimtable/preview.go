package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/dimtable/internal/render"
)

// columnLabels flattens the header rows into one label per data column,
// outer levels first.
func columnLabels(t *render.Table) []string {
	var levels [][]string
	for _, row := range t.Head {
		var texts []string
		for _, c := range row.Cells {
			for range max(c.ColSpan, 1) {
				texts = append(texts, c.Text)
			}
		}
		levels = append(levels, texts)
	}
	if len(levels) == 0 {
		return nil
	}

	labels := make([]string, len(levels[len(levels)-1]))
	for j := range labels {
		var parts []string
		for _, texts := range levels {
			if j < len(texts) && texts[j] != "" {
				parts = append(parts, texts[j])
			}
		}
		labels[j] = strings.Join(parts, " / ")
	}
	return labels
}

// bodyRows lays out every body row as text. Row headers hidden by a rowspan
// above them are left blank.
func bodyRows(t *render.Table) [][]string {
	depth := max(t.Corner.ColSpan, 0)
	out := make([][]string, 0, len(t.Body))
	for _, row := range t.Body {
		line := make([]string, 0, depth+len(row.Cells))
		for range depth - len(row.Headers) {
			line = append(line, "")
		}
		for _, h := range row.Headers {
			line = append(line, h.Text)
		}
		for _, c := range row.Cells {
			text := c.Text
			if c.Title != "" {
				text += " !"
			}
			line = append(line, text)
		}
		out = append(out, line)
	}
	return out
}

// printTable writes t as a text table followed by its errors.
func printTable(w io.Writer, t *render.Table) error {
	labels := columnLabels(t)
	header := make([]any, 0, max(t.Corner.ColSpan, 0)+len(labels))
	for i := range max(t.Corner.ColSpan, 0) {
		if i == 0 {
			header = append(header, t.Corner.Text)
		} else {
			header = append(header, "")
		}
	}
	for _, l := range labels {
		header = append(header, l)
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)
	for _, row := range bodyRows(t) {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, msg := range t.Errors {
		if _, err := fmt.Fprintf(w, "! %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}
