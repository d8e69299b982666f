package httpx

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/domain"
)

func multipartRequest(t *testing.T, field string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/api/merge-pdf", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.InvalidParameterError("angle", "not a number"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid angle: not a number", body["error"])
}

func TestParseFormAndReadUploads(t *testing.T) {
	r := multipartRequest(t, "files[]", map[string]string{"a.pdf": "aaa"})
	rec := httptest.NewRecorder()
	require.NoError(t, ParseForm(rec, r, 1<<20, 1<<20))

	ups, err := ReadUploads(r, "files", "files[]", "file")
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, Upload{Name: "a.pdf", Data: []byte("aaa")}, ups[0])
}

func TestParseFormLimits(t *testing.T) {
	r := multipartRequest(t, "files", map[string]string{"big.pdf": strings.Repeat("x", 4096)})
	err := ParseForm(httptest.NewRecorder(), r, 512, 1<<20)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.InvalidParameter, ve.Kind)

	plain := httptest.NewRequest(http.MethodPost, "/api/merge-pdf", strings.NewReader("x=1"))
	plain.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Error(t, ParseForm(httptest.NewRecorder(), plain, 0, 1<<20))
}

func TestServeBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeBytes(rec, httptest.NewRequest(http.MethodPost, "/", nil), []byte("png"), "resized_a.png", "image/png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resized_a.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "png", rec.Body.String())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4123"
	assert.Equal(t, "10.0.0.5", ClientIP(r))
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestHeaderValue(t *testing.T) {
	assert.Equal(t, "a.pdf: bad  b.pdf", HeaderValue("a.pdf: bad\r\nb.pdf"))
}
