package filetype

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/domain"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func zipBytes(t *testing.T, entry string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entry)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestKind(t *testing.T) {
	d := New()
	tests := []struct {
		name string
		file string
		data []byte
		want domain.Kind
	}{
		{"pdf by magic", "upload", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), domain.KindPDF},
		{"pdf with wrong extension", "scan.png", []byte("%PDF-1.4\n"), domain.KindPDF},
		{"png by magic", "photo", pngBytes(t), domain.KindImage},
		{"plain zip named docx", "letter.docx", zipBytes(t, "content.xml"), domain.KindDOCX},
		{"plain zip", "archive.zip", zipBytes(t, "content.xml"), domain.KindUnknown},
		{"text falls back to extension", "notes.pdf", []byte("just text"), domain.KindPDF},
		{"unknown", "notes.txt", []byte("just text"), domain.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Kind(tt.file, tt.data))
		})
	}
}

func TestDetectReportsMIME(t *testing.T) {
	info := New().Detect("a.png", pngBytes(t))
	assert.Equal(t, "image/png", info.MIMEType)
	assert.Equal(t, ".png", info.Extension)
}
