// Package httpx holds the JSON response and upload helpers shared by the HTTP handlers.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write json failed")
	}
}

func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteError maps err to its status code and writes {"error": message}.
func WriteError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	WriteErrorMessage(w, status, err.Error())
}

// Upload is one file read from a multipart form.
type Upload struct {
	Name string
	Data []byte
}

// ReadUploads returns the files of the first non-empty form field among fields.
func ReadUploads(r *http.Request, fields ...string) ([]Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var headers []*multipart.FileHeader
	for _, f := range fields {
		if hs := r.MultipartForm.File[f]; len(hs) > 0 {
			headers = hs
			break
		}
	}
	out := make([]Upload, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", h.Filename, err)
		}
		out = append(out, Upload{Name: h.Filename, Data: data})
	}
	return out, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ParseForm parses a multipart body capped at maxBytes.
func ParseForm(w http.ResponseWriter, r *http.Request, maxBytes, memory int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.InvalidParameterError("upload", fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit))
		}
		return domain.InvalidParameterError("upload", "expected multipart/form-data")
	}
	return nil
}

// ServeFile streams the file at path as an attachment named name.
func ServeFile(w http.ResponseWriter, r *http.Request, path, name, mediaType string) {
	f, err := os.Open(path)
	if err != nil {
		WriteError(w, &domain.PackagingError{Err: err})
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Now(), f)
}

// ServeBytes writes data as an attachment named name.
func ServeBytes(w http.ResponseWriter, r *http.Request, data []byte, name, mediaType string) {
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Now(), bytes.NewReader(data))
}

// ClientIP returns the caller address, preferring X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HeaderValue flattens s for use in a response header.
func HeaderValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}
