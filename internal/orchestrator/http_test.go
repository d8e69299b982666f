package orchestrator

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/codec/codectest"
	"github.com/local/docsuite/internal/store"
)

type part struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h *harness, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.orch.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandleSplitReturnsZip(t *testing.T) {
	h := newHarness(t)
	req := multipartRequest(t, "/api/split", map[string]string{"split_type": "one-one"},
		part{"a.pdf", codectest.NumberedPDF("a", 2)},
		part{"b.pdf", codectest.NumberedPDF("b", 1)},
	)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="split_results.zip"`)
	assert.NotEmpty(t, rec.Header().Get("X-Job-ID"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a_page_1.pdf", "a_page_2.pdf", "b_page_1.pdf"}, names)
	assert.Equal(t, 0, h.workspaceCount(t))
}

func TestHandleInvalidQuality(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/compress-pdf", map[string]string{"quality": "invalid"},
		part{"a.pdf", codectest.NumberedPDF("a", 1)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "invalid")
	assert.Empty(t, h.codec.Reencoded)
}

func TestHandleMalformedRange(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/split",
		map[string]string{"split_type": "custom", "custom_ranges": "1-2,abc"},
		part{"a.pdf", codectest.NumberedPDF("a", 3)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid custom range format: abc. Expected format like '1-5'.", errorMessage(t, rec))
}

func TestHandleMergeSingleFile(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/merge", nil, part{"a.pdf", codectest.NumberedPDF("a", 1)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select at least two files to merge.", errorMessage(t, rec))
}

func TestHandleNoFiles(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/pdf-to-doc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files uploaded.", errorMessage(t, rec))
}

func TestHandleNotMultipart(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/merge", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePartialFailureHeader(t *testing.T) {
	h := newHarness(t)
	h.codec.FailConvert = map[string]bool{"bad.pdf": true}
	rec := serve(h, multipartRequest(t, "/api/pdf-to-doc", nil,
		part{"good.pdf", codectest.NumberedPDF("g", 1)},
		part{"bad.pdf", codectest.NumberedPDF("b", 1)},
	))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="good.docx"`)
	assert.Contains(t, rec.Header().Get("X-Failed-Files"), "bad.pdf: ")
}

func TestHandleSkippedHeader(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/split", map[string]string{"split_type": "one-one"},
		part{"blank.pdf", codectest.PDF()},
		part{"a.pdf", codectest.NumberedPDF("a", 1)},
	))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blank.pdf", rec.Header().Get("X-Skipped-Files"))
}

func TestHandleExtractNothing(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, multipartRequest(t, "/api/extract-images", nil, part{"a.pdf", codectest.NumberedPDF("a", 2)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStats(t *testing.T) {
	h := newHarness(t)
	serve(h, multipartRequest(t, "/api/merge", nil,
		part{"a.pdf", codectest.NumberedPDF("a", 1)},
		part{"b.pdf", codectest.NumberedPDF("b", 1)},
	))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var d store.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.EqualValues(t, 1, d.Total.Operations)

	h.orch.deps.Stats = nil
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
