package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode), or respondErr to derive the status
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON, an HTMX fragment, or a full page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
	"github.com/JonMunkholm/csvdash/internal/logging"
	"github.com/JonMunkholm/csvdash/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondErr responds with the status that matches err.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs the technical error and renders the user message in the
// format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	uerr := core.NewUserError(err)
	userMsg := uerr.User

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", technicalCause(uerr).Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// technicalCause peels user-message wrappers so logs keep the original error.
func technicalCause(err error) error {
	var ue *core.UserError
	for errors.As(err, &ue) {
		err = ue.Technical
	}
	return err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var malformed *dataset.MalformedRowError
	var fill *dataset.FillError

	switch {
	case errors.Is(err, dataset.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dataset.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &malformed),
		errors.Is(err, dataset.ErrEmptyFile),
		errors.Is(err, dataset.ErrUnsupportedFormat),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &fill):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoDataset):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoPending), errors.Is(err, core.ErrDatasetChanged):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the error as a full page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error page", "error", err)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isBrowserForm reports a plain HTML form submission, which is answered
// with a redirect rather than a JSON body.
func isBrowserForm(r *http.Request) bool {
	if isHTMX(r) || strings.Contains(r.Header.Get("Accept"), "application/json") {
		return false
	}
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if isBrowserForm(r) {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// redirectAfterPost sends browsers back to a page after a form post. HTMX
// requests get an HX-Redirect header instead.
func redirectAfterPost(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
