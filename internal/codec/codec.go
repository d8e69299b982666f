// Package codec is the boundary between the transformation pipeline and the
// document and image libraries. Handles are immutable; every operation
// returns a new handle and leaves its inputs untouched.
package codec

import (
	"context"

	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

// Handle is an opened, encoded document.
type Handle struct {
	Name string
	Kind domain.Kind
	data []byte
}

// NewHandle wraps data without copying. Callers hand over ownership of data.
func NewHandle(name string, kind domain.Kind, data []byte) *Handle {
	return &Handle{Name: name, Kind: kind, data: data}
}

// Bytes returns the encoded document. The slice must not be modified.
func (h *Handle) Bytes() []byte { return h.data }

func (h *Handle) Size() int { return len(h.data) }

// EmbeddedImage is a raster image found inside a PDF, in its native encoding.
type EmbeddedImage struct {
	Page  int
	Index int
	Ext   string
	Data  []byte
}

// Codec is the capability set the strategies consume.
type Codec interface {
	Open(name string, kind domain.Kind, data []byte) (*Handle, error)
	PageCount(h *Handle) (int, error)
	ExtractPages(h *Handle, r domain.PageRange) (*Handle, error)
	Merge(hs []*Handle) (*Handle, error)
	Convert(ctx context.Context, h *Handle, target domain.Kind) (*Handle, error)
	Reencode(h *Handle, p compression.Params) (*Handle, error)
	ExtractImages(h *Handle) ([]EmbeddedImage, error)
	ImagesToPDF(images []*Handle) (*Handle, error)
	RenderPages(ctx context.Context, h *Handle) ([][]byte, error)
}

// Converter performs cross-kind office conversions on encoded bytes.
type Converter interface {
	ConvertBytes(ctx context.Context, name string, data []byte, target string) ([]byte, error)
}

// Rasterizer renders every page of a PDF to an encoded image.
type Rasterizer interface {
	RenderAll(data []byte) ([][]byte, error)
}
