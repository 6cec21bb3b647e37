package web

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/logging"
	"github.com/JonMunkholm/csvdash/internal/web/templates"
)

// handleDashboard renders the upload form and the dataset overview.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := templates.DashboardParams{}
	if sess, ok := s.service.Session(sessionID(r)); ok && sess.Dataset != nil {
		params.FileName = sess.FileName
		params.Dataset = sess.Dataset
		params.Head = sess.Dataset.Head(headRows)
	}
	s.renderPage(w, r, templates.Dashboard(params))
}

// handleCleaning renders the column editor with any pending preview.
func (s *Server) handleCleaning(w http.ResponseWriter, r *http.Request) {
	params := templates.CleaningParams{}
	if sess, ok := s.service.Session(sessionID(r)); ok && sess.Dataset != nil {
		params.Dataset = sess.Dataset
		params.Pending = sess.Pending
	}
	s.renderPage(w, r, templates.Cleaning(params))
}

// handleDownload renders the export links.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Current(sessionID(r))
	if err != nil && !errors.Is(err, core.ErrNoDataset) {
		s.respondErr(w, r, err)
		return
	}
	s.renderPage(w, r, templates.Download(ds))
}

// renderPage writes a full HTML page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

// handleHealthz reports liveness plus session and ingest load.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "ok",
		Sessions: s.service.Sessions().Len(),
		Ingest:   s.service.Limiter().Status(),
	})
}
