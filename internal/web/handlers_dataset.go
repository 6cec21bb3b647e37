package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// multipartMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// multipartOverhead allows for boundaries and part headers on top of the
// file size limit.
const multipartOverhead = 64 << 10

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleUpload ingests a CSV file as the session's dataset of record.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondErr(w, r, uploadFormError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondErr(w, r, uploadFormError(err))
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	ds, err := s.service.Ingest(ctx, sessionID(r), core.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if isBrowserForm(r) || isHTMX(r) {
		redirectAfterPost(w, r, "/")
		return
	}
	writeJSON(w, r, http.StatusCreated, newDatasetResponse(header.Filename, ds))
}

// uploadFormError converts multipart failures into domain errors.
func uploadFormError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: %v", dataset.ErrFileTooLarge, err)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return core.ErrNoFile
	default:
		return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
}

// handleDataset returns the dataset overview with its first rows.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.service.Session(sessionID(r))
	if !ok || sess.Dataset == nil {
		s.respondErr(w, r, core.ErrNoDataset)
		return
	}
	writeJSON(w, r, http.StatusOK, newDatasetResponse(sess.FileName, sess.Dataset))
}

// handleRows returns one page of rows.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Current(sessionID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	page := parseIntParam(r, "page", 1)
	size := min(parseIntParam(r, "size", defaultPageSize), maxPageSize)
	total := ds.Shape[0]

	writeJSON(w, r, http.StatusOK, RowsResponse{
		Page:       page,
		Size:       size,
		TotalRows:  total,
		TotalPages: (total + size - 1) / size,
		Columns:    ds.Columns,
		Data:       ds.Page(page, size),
	})
}

// handleSummary returns per-column statistics as JSON or YAML.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Current(sessionID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, r, http.StatusOK, ds.Summary())
	case "yaml", "yml":
		var buf bytes.Buffer
		if err := dataset.WriteSummaryYAML(&buf, ds); err != nil {
			s.respondErr(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	default:
		s.respondErr(w, r, fmt.Errorf("%w: summary format %q", dataset.ErrUnsupportedFormat, r.URL.Query().Get("format")))
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
