package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
	"github.com/JonMunkholm/csvdash/internal/logging"
	"github.com/JonMunkholm/csvdash/internal/web/templates"
)

// maxEditBody bounds JSON and form bodies for edit requests.
const maxEditBody = 1 << 20

// RemoveColumnsRequest is the body of POST /api/clean/remove-columns.
type RemoveColumnsRequest struct {
	Columns []string `json:"columns"`
}

// FillRequest is the body of POST /api/clean/fill.
type FillRequest struct {
	Rules map[string]dataset.FillRule `json:"rules"`
}

// handleRemoveColumns previews the dataset without the selected columns.
func (s *Server) handleRemoveColumns(w http.ResponseWriter, r *http.Request) {
	var req RemoveColumnsRequest
	if isJSONBody(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondErr(w, r, err)
			return
		}
	} else {
		if err := parseForm(w, r); err != nil {
			s.respondErr(w, r, err)
			return
		}
		req.Columns = r.PostForm["columns"]
	}
	if len(req.Columns) == 0 {
		s.respondErr(w, r, fmt.Errorf("%w: no columns selected", core.ErrBadRequest))
		return
	}

	pending, err := s.service.PreviewRemoveColumns(WithRequestMetadata(r.Context(), r), sessionID(r), req.Columns)
	s.respondPreview(w, r, pending, err)
}

// handleRemoveDuplicates previews the dataset without duplicate rows.
func (s *Server) handleRemoveDuplicates(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.PreviewRemoveDuplicates(WithRequestMetadata(r.Context(), r), sessionID(r))
	s.respondPreview(w, r, pending, err)
}

// handleFill previews the dataset with missing values replaced.
func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	var rules map[string]dataset.FillRule
	if isJSONBody(r) {
		var req FillRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondErr(w, r, err)
			return
		}
		rules = req.Rules
	} else {
		if err := parseForm(w, r); err != nil {
			s.respondErr(w, r, err)
			return
		}
		var err error
		if rules, err = fillRulesFromForm(r); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}
	if len(rules) == 0 {
		s.respondErr(w, r, fmt.Errorf("%w: no fill rules selected", core.ErrBadRequest))
		return
	}
	for col, rule := range rules {
		if _, err := dataset.ParseFillMethod(string(rule.Method)); err != nil {
			s.respondErr(w, r, fmt.Errorf("%w: column %q: %v", core.ErrBadRequest, col, err))
			return
		}
	}

	pending, err := s.service.PreviewFill(WithRequestMetadata(r.Context(), r), sessionID(r), rules)
	s.respondPreview(w, r, pending, err)
}

// fillRulesFromForm reads method.<column> and value.<column> fields. Columns
// whose method is empty are left alone.
func fillRulesFromForm(r *http.Request) (map[string]dataset.FillRule, error) {
	keys := make([]string, 0, len(r.PostForm))
	for k := range r.PostForm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make(map[string]dataset.FillRule)
	for _, key := range keys {
		col, ok := strings.CutPrefix(key, "method.")
		if !ok || col == "" {
			continue
		}
		raw := strings.TrimSpace(r.PostForm.Get(key))
		if raw == "" {
			continue
		}
		method, err := dataset.ParseFillMethod(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", core.ErrBadRequest, col, err)
		}
		rules[col] = dataset.FillRule{Method: method, Value: r.PostForm.Get("value." + col)}
	}
	return rules, nil
}

// respondPreview answers a staged edit: a redirect for forms, the preview
// fragment for HTMX and JSON otherwise.
func (s *Server) respondPreview(w http.ResponseWriter, r *http.Request, pending *core.PendingEdit, err error) {
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.PendingPreview(pending.Base, pending).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render preview", "error", err)
		}
	case isBrowserForm(r):
		redirectAfterPost(w, r, "/cleaning")
	default:
		writeJSON(w, r, http.StatusOK, newPendingResponse(pending, templates.PreviewRows))
	}
}

// handlePending returns the staged edit.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.Pending(sessionID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPendingResponse(pending, templates.PreviewRows))
}

// handleApply promotes the staged edit to the dataset of record.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Commit(WithRequestMetadata(r.Context(), r), sessionID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if isBrowserForm(r) || isHTMX(r) {
		redirectAfterPost(w, r, "/cleaning")
		return
	}
	sess, _ := s.service.Session(sessionID(r))
	writeJSON(w, r, http.StatusOK, newDatasetResponse(sess.FileName, ds))
}

// handleCancel discards the staged edit. Cancelling with nothing staged
// is not an error.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	discarded := s.service.Cancel(WithRequestMetadata(r.Context(), r), sessionID(r))
	if isBrowserForm(r) || isHTMX(r) {
		redirectAfterPost(w, r, "/cleaning")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"cancelled": discarded})
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return nil
}

// parseForm reads a bounded form body. Bodiless posts are accepted.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBody)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: form body too large", core.ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return nil
}
