package web

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/render"
	"github.com/JonMunkholm/dimtable/internal/store"
)

type headerJSON struct {
	Text    string   `json:"text"`
	RowSpan int      `json:"rowspan,omitempty"`
	ColSpan int      `json:"colspan,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

type cellJSON struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Classes  []string `json:"classes,omitempty"`
	Title    string   `json:"title,omitempty"`
	Editable bool     `json:"editable"`
}

type rowJSON struct {
	Classes []string     `json:"classes,omitempty"`
	Headers []headerJSON `json:"headers"`
	Cells   []cellJSON   `json:"cells"`
}

// tableResponse is the structure of a rendered table. Clients post Hidden
// back together with the cell values they changed.
type tableResponse struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Editable bool              `json:"editable"`
	Corner   headerJSON        `json:"corner"`
	Head     [][]headerJSON    `json:"head"`
	Body     []rowJSON         `json:"body"`
	Hidden   map[string]string `json:"hidden"`
	Errors   []string          `json:"errors,omitempty"`
}

type cellErrorJSON struct {
	Cell     string   `json:"cell"`
	Input    string   `json:"input"`
	Messages []string `json:"messages"`
}

type saveResponse struct {
	OK          bool            `json:"ok"`
	SaveID      string          `json:"save_id"`
	Actions     map[string]int  `json:"actions"`
	Errors      []cellErrorJSON `json:"errors,omitempty"`
	TableErrors []string        `json:"table_errors,omitempty"`
}

func toHeaderJSON(h render.HeaderCell) headerJSON {
	return headerJSON{Text: h.Text, RowSpan: h.RowSpan, ColSpan: h.ColSpan, Classes: h.Classes}
}

func toTableResponse(key, label string, t *render.Table) tableResponse {
	out := tableResponse{
		Key:      key,
		Label:    label,
		Editable: t.Editable,
		Corner:   toHeaderJSON(t.Corner),
		Head:     make([][]headerJSON, len(t.Head)),
		Body:     make([]rowJSON, len(t.Body)),
		Hidden:   make(map[string]string),
		Errors:   t.Errors,
	}
	for i, row := range t.Head {
		for _, c := range row.Cells {
			out.Head[i] = append(out.Head[i], toHeaderJSON(c))
		}
	}
	for i, row := range t.Body {
		r := rowJSON{Classes: row.Classes}
		for _, h := range row.Headers {
			r.Headers = append(r.Headers, toHeaderJSON(h))
		}
		for _, c := range row.Cells {
			r.Cells = append(r.Cells, cellJSON{ID: c.ID, Text: c.Text, Classes: c.Classes, Title: c.Title, Editable: c.Editable})
		}
		out.Body[i] = r
	}
	if t.Editable {
		for _, f := range t.Hidden.Fields() {
			out.Hidden[f.Name] = f.Value
		}
	}
	return out
}

func toSaveResponse(prefix string, res *edit.Result) saveResponse {
	out := saveResponse{
		OK:      res.OK(),
		SaveID:  res.SaveID,
		Actions: make(map[string]int),
	}
	for _, a := range []store.Action{store.Created, store.Updated, store.Deleted} {
		out.Actions[a.String()] = res.Actions[a]
	}
	for _, ce := range res.SortedCellErrors() {
		out.Errors = append(out.Errors, cellErrorJSON{
			Cell:     edit.CellKey(prefix, ce.Flat),
			Input:    ce.Input,
			Messages: ce.Messages,
		})
	}
	for _, err := range res.TableErrors {
		out.TableErrors = append(out.TableErrors, err.Error())
	}
	return out
}

// handleListTables returns the registered tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, toTableInfos(s.service.ListTables()))
}

// handleTableJSON returns the rendered structure of a table.
func (s *Server) handleTableJSON(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.service.Open(r.Context(), chi.URLParam(r, "tableKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toTableResponse(tbl.Info.Key, tbl.Info.Label, tbl.Render()))
}

// handleTableSaveJSON applies a save posted as a JSON object or a form and
// reports the outcome per cell. Saves with cell errors answer 422.
func (s *Server) handleTableSaveJSON(w http.ResponseWriter, r *http.Request) {
	form, err := s.readSave(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tbl, err := s.service.Open(r.Context(), chi.URLParam(r, "tableKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := tbl.Save(r.Context(), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.OK() {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, r, status, toSaveResponse(tbl.Info.Prefix, res))
}

// readSave decodes the body of an API save by its content type.
func (s *Server) readSave(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "application/json" {
		return parseForm(w, r)
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFormSize))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read body"), edit.ErrMalformedInput)
	}
	return decodeJSONForm(body)
}

// decodeJSONForm turns a flat JSON object into form values. Strings,
// numbers and booleans become their text, null an empty value, and arrays
// their JSON so the record id list may be posted unquoted.
func decodeJSONForm(body []byte) (url.Values, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrap(edit.ErrMalformedInput, "body is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, errors.Wrap(edit.ErrMalformedInput, "body must be a JSON object")
	}

	form := url.Values{}
	var derr error
	doc.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String:
			form.Set(key.String(), value.Str)
		case value.Type == gjson.Number:
			form.Set(key.String(), value.Raw)
		case value.Type == gjson.True, value.Type == gjson.False:
			form.Set(key.String(), value.String())
		case value.Type == gjson.Null:
			form.Set(key.String(), "")
		case value.IsArray():
			form.Set(key.String(), value.Raw)
		default:
			derr = errors.Wrapf(edit.ErrMalformedInput, "value of %q must not be an object", key.String())
			return false
		}
		return true
	})
	if derr != nil {
		return nil, derr
	}
	return form, nil
}

// writeJSON encodes v as JSON. Encoding errors are logged since the headers
// are already sent.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("json encode", "error", err)
	}
}
