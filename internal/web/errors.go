package web

// errors.go provides unified error responses for the web layer.
//
// The error flow:
//  1. A handler encounters an error and calls respondError(w, r, err)
//  2. The error is mapped via core.MapError to a user message with a code
//  3. The technical error is logged with the request id for correlation
//  4. The user message is written as JSON for API requests, as an HTML
//     page otherwise

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/store"
	"github.com/JonMunkholm/dimtable/internal/web/templates"
)

// ErrorResponse is the JSON body of API errors. Code is machine-readable,
// Message and Action are shown to people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStaleLayout),
		errors.Is(err, store.ErrRecordNotFound),
		errors.Is(err, postgres.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, edit.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManySaves):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context(), s.logger)
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		respondErrorJSON(w, msg, status)
		return
	}
	respondErrorHTML(w, r, msg, status)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := templates.Page(msg.Message, templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
	_ = page.Render(r.Context(), w)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
