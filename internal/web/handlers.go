package web

import (
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/web/templates"
)

// handleHealth reports whether the server can serve tables.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			logging.FromContext(r.Context(), s.logger).Error("health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleIndex lists the registered tables.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	groups := templates.GroupTables(s.service.ListTables())
	s.renderPage(w, r, http.StatusOK, "Tables", templates.Index(groups))
}

// handleTableView renders a table as an HTML form.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.service.Open(r.Context(), chi.URLParam(r, "tableKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var flash string
	if r.URL.Query().Has("saved") {
		flash = "Changes saved"
	}
	s.renderPage(w, r, http.StatusOK, tbl.Info.Label, templates.TableView(tbl.Info, tbl.Render(), flash))
}

// handleTableSave applies a posted form. A successful save redirects back
// to the table; a save with cell errors re-renders it with the errors and
// the entered values.
func (s *Server) handleTableSave(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "tableKey")

	form, err := parseForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tbl, err := s.service.Open(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := tbl.Save(r.Context(), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !res.OK() {
		s.renderPage(w, r, http.StatusUnprocessableEntity, tbl.Info.Label, templates.TableView(tbl.Info, tbl.Render(), ""))
		return
	}

	http.Redirect(w, r, "/table/"+url.PathEscape(key)+"?saved="+url.QueryEscape(res.SaveID), http.StatusSeeOther)
}

// parseForm reads the url-encoded body of a save, bounded by MaxFormSize.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormSize)
	if err := r.ParseForm(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse form"), edit.ErrMalformedInput)
	}
	return r.PostForm, nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Page(title, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("render page", "error", err)
	}
}

// tableInfo is the JSON shape of a listed table.
type tableInfo struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Group    string `json:"group,omitempty"`
	ReadOnly bool   `json:"read_only"`
}

func toTableInfos(infos []core.TableInfo) []tableInfo {
	out := make([]tableInfo, len(infos))
	for i, info := range infos {
		out[i] = tableInfo{Key: info.Key, Label: info.Label, Group: info.Group, ReadOnly: info.ReadOnly}
	}
	return out
}
