package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvdash/internal/config"
	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
)

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newClient(t *testing.T, mutate func(*config.Config)) *client {
	t.Helper()
	cfg := testConfig(t, mutate)
	svc := core.NewService(core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		SessionTTL:    cfg.Session.TTL,
	})
	srv := NewServer(svc, cfg, nil)
	t.Cleanup(srv.stopLimiters)
	return &client{t: t, srv: srv}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.Router().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == c.srv.cfg.Session.CookieName && ck.MaxAge >= 0 {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func uploadRequest(t *testing.T, name, content string, accept string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/dataset", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req
}

func (c *client) upload(name, content string) *httptest.ResponseRecorder {
	return c.do(uploadRequest(c.t, name, content, "application/json"))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, rec).Code
}

func TestHealthz(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 4, h.Ingest.MaxConcurrent)
	assert.Nil(t, c.cookie, "healthz must not issue a session cookie")
}

func TestSecurityHeaders(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestUpload_JSON(t *testing.T) {
	c := newClient(t, nil)
	rec := c.upload("sales.csv", "a,b,c\n1,2,x\n3,,y")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie)

	resp := decode[DatasetResponse](t, rec)
	assert.Equal(t, "sales.csv", resp.FileName)
	assert.Equal(t, [2]int{2, 3}, resp.Shape)
	assert.Equal(t, []string{"a", "b", "c"}, resp.Columns)
	assert.Equal(t, 1, resp.Missing)
	assert.Equal(t, 1, resp.ColumnStats["b"].Missing)
	assert.Len(t, resp.Data, 2)
}

func TestUpload_BrowserFormRedirects(t *testing.T) {
	c := newClient(t, nil)
	rec := c.do(uploadRequest(t, "sales.csv", "a,b\n1,2", ""))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	page := c.get("/")
	assert.Contains(t, page.Body.String(), "sales.csv")
	assert.Contains(t, page.Body.String(), "Column statistics")
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode int
		wantErr  string
	}{
		{"malformed row", "bad.csv", "a,b\n1,2\n3", http.StatusBadRequest, "FILE002"},
		{"empty file", "empty.csv", "  \n", http.StatusBadRequest, "FILE005"},
		{"not csv", "data.xlsx", "a,b\n1,2", http.StatusUnsupportedMediaType, "FILE006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, nil)
			rec := c.upload(tt.file, tt.content)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}
}

func TestUpload_MalformedMessageNamesRow(t *testing.T) {
	c := newClient(t, nil)
	rec := c.upload("bad.csv", "a,b\n1,2\n3")

	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Message, "Row 2")
}

func TestUpload_TooLarge(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) { cfg.Upload.MaxFileSize = 10 })
	rec := c.upload("big.csv", "a,b\n"+strings.Repeat("1,2\n", 20))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", errorCode(t, rec))
}

func TestUpload_NoFile(t *testing.T) {
	c := newClient(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/dataset", strings.NewReader("a,b"))
	req.Header.Set("Content-Type", "text/csv")
	rec := c.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", errorCode(t, rec))
}

func TestDataset_NoneLoaded(t *testing.T) {
	c := newClient(t, nil)

	for _, path := range []string{"/api/dataset", "/api/dataset/rows", "/api/dataset/summary", "/api/export"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "SES001", errorCode(t, rec), path)
	}
}

func TestRows_Pagination(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("n.csv", "n\n1\n2\n3\n4\n5").Code)

	rec := c.get("/api/dataset/rows?page=2&size=2")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, float64(5), resp["totalRows"])
	assert.Equal(t, float64(3), resp["totalPages"])
	data := resp["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, float64(3), data[0].(map[string]any)["n"])
}

func TestSummary_YAML(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("s.csv", "a,b\n1,x\n3,y").Code)

	rec := c.get("/api/dataset/summary?format=yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	body := rec.Body.String()
	assert.Contains(t, body, "rows: 2")
	assert.Contains(t, body, "name: a")
	assert.Contains(t, body, "dtype: numeric")

	bad := c.get("/api/dataset/summary?format=xml")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "VAL002", errorCode(t, bad))
}

func TestEditWorkflow_PreviewApply(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a,b\n1,x\n1,x\n2,y").Code)

	rec := c.postJSON("/api/clean/remove-duplicates", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pending := decode[PendingResponse](t, rec)
	assert.Equal(t, core.EditRemoveDuplicates, pending.Kind)
	assert.Equal(t, [2]int{2, 2}, pending.Shape)
	assert.Equal(t, [2]int{3, 2}, pending.BaseShape)

	// Preview leaves the dataset of record alone.
	current := decode[DatasetResponse](t, c.get("/api/dataset"))
	assert.Equal(t, [2]int{3, 2}, current.Shape)
	assert.Equal(t, 1, current.Duplicates)

	rec = c.postJSON("/api/clean/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decode[DatasetResponse](t, rec)
	assert.Equal(t, [2]int{2, 2}, applied.Shape)
	assert.Equal(t, 0, applied.Duplicates)

	rec = c.postJSON("/api/clean/apply", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES002", errorCode(t, rec))

	rec = c.get("/api/clean/pending")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditWorkflow_RemoveColumnsForm(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a,b,c\n1,2,3").Code)

	rec := c.postForm("/api/clean/remove-columns", url.Values{"columns": {"b", "c"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cleaning", rec.Header().Get("Location"))

	pending := decode[PendingResponse](t, c.get("/api/clean/pending"))
	assert.Equal(t, []string{"a"}, pending.Columns)

	page := c.get("/cleaning")
	assert.Contains(t, page.Body.String(), "Preview: remove b, c")
	assert.Contains(t, page.Body.String(), `action="/api/clean/apply"`)
}

func TestEditWorkflow_RemoveColumnsRequiresSelection(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a,b\n1,2").Code)

	rec := c.postJSON("/api/clean/remove-columns", RemoveColumnsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL003", errorCode(t, rec))
}

func TestFill_JSON(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("f.csv", "a,b\n1,x\n,y\n3,z").Code)

	rec := c.postJSON("/api/clean/fill", map[string]any{
		"rules": map[string]any{"a": map[string]string{"method": "mean"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	preview := resp["preview"].([]any)
	require.Len(t, preview, 3)
	assert.Equal(t, float64(2), preview[1].(map[string]any)["a"])
}

func TestFill_Form(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("f.csv", "a,b\n1,x\n,\n3,x").Code)

	rec := c.postForm("/api/clean/fill", url.Values{
		"method.a": {"constant"},
		"value.a":  {"0"},
		"method.b": {"mode"},
		"value.b":  {""},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = c.postJSON("/api/clean/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	applied := decode[DatasetResponse](t, rec)
	assert.Equal(t, 0, applied.Missing)
}

func TestFill_Invalid(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("f.csv", "a,b\n1,x\n2,").Code)

	rec := c.postJSON("/api/clean/fill", FillRequest{Rules: map[string]dataset.FillRule{
		"b": {Method: "mean"},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VAL001", errorCode(t, rec))

	rec = c.postJSON("/api/clean/fill", map[string]any{
		"rules": map[string]any{"b": map[string]string{"method": "average"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancel(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a\n1\n1").Code)
	require.Equal(t, http.StatusOK, c.postJSON("/api/clean/remove-duplicates", nil).Code)

	rec := c.postJSON("/api/clean/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"cancelled": true}, decode[map[string]bool](t, rec))

	rec = c.postJSON("/api/clean/cancel", nil)
	assert.Equal(t, map[string]bool{"cancelled": false}, decode[map[string]bool](t, rec))

	current := decode[DatasetResponse](t, c.get("/api/dataset"))
	assert.Equal(t, [2]int{2, 1}, current.Shape)
}

func TestExport(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("e.csv", "a,b\n1,x\n2.5,y").Code)

	rec := c.get("/api/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a,b\n1,x\n2.5,y", rec.Body.String())
	assert.Equal(t, `attachment; filename="dataset.csv"`, rec.Header().Get("Content-Disposition"))

	rec = c.get("/api/export?format=tsv")
	assert.Equal(t, "a\tb\n1\tx\n2.5\ty", rec.Body.String())

	rec = c.get("/api/export?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Equal(t, 2.5, rows[1]["a"])

	rec = c.get("/api/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="dataset.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = c.get("/api/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", errorCode(t, rec))
}

func TestPages_NoDataset(t *testing.T) {
	c := newClient(t, nil)
	for _, path := range []string{"/", "/cleaning", "/download"} {
		rec := c.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "No dataset loaded", path)
	}
}

func TestPages_Download(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("e.csv", "a,b\n1,x").Code)

	body := c.get("/download").Body.String()
	assert.Contains(t, body, "/api/export?format=xlsx")
	assert.Contains(t, body, "1 rows and 2 columns")
}

func TestPages_EscapeCellValues(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("x.csv", "name\n<script>alert(1)</script>").Code)

	body := c.get("/").Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestError_HTMXPartial(t *testing.T) {
	c := newClient(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/clean/apply", nil)
	req.Header.Set("HX-Request", "true")
	rec := c.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `class="alert error"`)
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestError_BrowserFormGetsPage(t *testing.T) {
	c := newClient(t, nil)
	rec := c.postForm("/api/clean/apply", url.Values{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "Upload a CSV file first")
}

func TestEndSession(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a\n1").Code)

	rec := c.do(httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, c.get("/api/dataset").Code)
	assert.Equal(t, 0, c.srv.service.Sessions().Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newClient(t, nil)
	require.Equal(t, http.StatusCreated, a.upload("d.csv", "a\n1").Code)

	b := &client{t: t, srv: a.srv}
	assert.Equal(t, http.StatusNotFound, b.get("/api/dataset").Code)
	assert.Equal(t, http.StatusOK, a.get("/api/dataset").Code)
}

func TestInvalidSessionCookieIsReplaced(t *testing.T) {
	c := newClient(t, nil)
	c.cookie = &http.Cookie{Name: "csvdash_session", Value: "not-a-uuid"}
	c.get("/")
	require.NotNil(t, c.cookie)
	assert.NotEqual(t, "not-a-uuid", c.cookie.Value)
}

func TestAPIKey(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) {
		cfg.Security.RequireAPIKey = true
		cfg.Security.APIKeys = []string{"k1"}
	})

	assert.Equal(t, http.StatusUnauthorized, c.get("/api/dataset").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, c.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	req.Header.Set("X-API-Key", "k1")
	assert.Equal(t, http.StatusNotFound, c.do(req).Code)

	// Pages stay public.
	assert.Equal(t, http.StatusOK, c.get("/").Code)
}

func TestRateLimit_Upload(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) { cfg.Rate.UploadLimit = 1 })

	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a\n1").Code)
	rec := c.upload("d.csv", "a\n1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", errorCode(t, rec))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other routes use the general bucket.
	assert.Equal(t, http.StatusOK, c.get("/api/dataset").Code)
}

func TestApply_StalePreviewConflicts(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a\n1\n1").Code)
	require.Equal(t, http.StatusOK, c.postJSON("/api/clean/remove-duplicates", nil).Code)

	replacement, err := dataset.Parse("a\n7")
	require.NoError(t, err)
	require.NoError(t, c.srv.service.Sessions().Update(c.cookie.Value, func(sess *core.Session) error {
		sess.Dataset = replacement
		return nil
	}))

	rec := c.postJSON("/api/clean/apply", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES003", errorCode(t, rec))

	current := decode[DatasetResponse](t, c.get("/api/dataset"))
	assert.Equal(t, [2]int{1, 1}, current.Shape)
}

func TestSessionCookieIsRefreshed(t *testing.T) {
	c := newClient(t, nil)
	require.Equal(t, http.StatusCreated, c.upload("d.csv", "a\n1").Code)
	id := c.cookie.Value

	rec := c.get("/api/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "csvdash_session" {
			refreshed = ck
		}
	}
	require.NotNil(t, refreshed)
	assert.Equal(t, id, refreshed.Value)
	assert.Equal(t, int(c.srv.cfg.Session.TTL.Seconds()), refreshed.MaxAge)
}

func TestTechnicalCause(t *testing.T) {
	base := dataset.ErrEmptyFile
	wrapped := core.NewUserError(core.NewUserError(base))

	assert.Equal(t, base, technicalCause(wrapped))
	assert.Equal(t, base, technicalCause(base))
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRespondPreview_LogsRenderFailure(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	c := newClient(t, nil)
	ds, err := dataset.Parse("a,b\n1,2")
	require.NoError(t, err)
	pending := &core.PendingEdit{Kind: core.EditRemoveColumns, Detail: "remove b", Base: ds, Result: dataset.RemoveColumns(ds, []string{"b"})}

	req := httptest.NewRequest(http.MethodPost, "/api/clean/remove-columns", nil)
	req.Header.Set("HX-Request", "true")
	c.srv.respondPreview(failingWriter{httptest.NewRecorder()}, req, pending, nil)

	assert.Contains(t, logs.String(), `"msg":"render preview"`)
	assert.Contains(t, logs.String(), "connection reset")
}
