package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvdash/internal/dataset"
	"github.com/JonMunkholm/csvdash/internal/logging"
)

// handleExport downloads the dataset of record as dataset.<format>.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := dataset.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still be
	// reported with a proper status.
	var buf bytes.Buffer
	if err := s.service.Export(WithRequestMetadata(r.Context(), r), sessionID(r), format, &buf); err != nil {
		s.respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "format", format, "error", err)
	}
}

// handleEndSession drops the session's dataset and expires the cookie.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.service.EndSession(WithRequestMetadata(r.Context(), r), sessionID(r))

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
