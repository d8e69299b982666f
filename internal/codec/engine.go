package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

var errUnavailable = errors.New("backend not configured")

// Engine implements Codec with pdfcpu for PDF structure, an office
// converter for DOCX and a rasterizer for page rendering.
type Engine struct {
	office Converter
	raster Rasterizer
}

// NewEngine builds an Engine. office and raster may be nil, in which case
// the operations needing them fail with a CodecError.
func NewEngine(office Converter, raster Rasterizer) *Engine {
	return &Engine{office: office, raster: raster}
}

func codecErr(op, file string, err error) error {
	return &domain.CodecError{Op: op, File: file, Err: err}
}

func (e *Engine) Open(name string, kind domain.Kind, data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, codecErr("open", name, errors.New("file is empty"))
	}
	switch kind {
	case domain.KindPDF:
		if err := pdfValidate(data); err != nil {
			return nil, codecErr("open", name, err)
		}
	case domain.KindImage:
		if _, err := imageFormat(data); err != nil {
			return nil, codecErr("open", name, err)
		}
	case domain.KindDOCX:
	default:
		return nil, codecErr("open", name, fmt.Errorf("unsupported kind %q", kind))
	}
	return NewHandle(name, kind, data), nil
}

func (e *Engine) PageCount(h *Handle) (int, error) {
	if h.Kind != domain.KindPDF {
		return 0, codecErr("page count", h.Name, fmt.Errorf("not a pdf"))
	}
	n, err := pdfPageCount(h.Bytes())
	if err != nil {
		return 0, codecErr("page count", h.Name, err)
	}
	return n, nil
}

func (e *Engine) ExtractPages(h *Handle, r domain.PageRange) (*Handle, error) {
	out, err := pdfTrim(h.Bytes(), r.Start, r.End)
	if err != nil {
		return nil, codecErr("extract pages "+r.String(), h.Name, err)
	}
	return NewHandle(h.Name, domain.KindPDF, out), nil
}

func (e *Engine) Merge(hs []*Handle) (*Handle, error) {
	docs := make([][]byte, 0, len(hs))
	for _, h := range hs {
		docs = append(docs, h.Bytes())
	}
	out, err := pdfMerge(docs)
	if err != nil {
		return nil, codecErr("merge", "", err)
	}
	return NewHandle("merged.pdf", domain.KindPDF, out), nil
}

func (e *Engine) Convert(ctx context.Context, h *Handle, target domain.Kind) (*Handle, error) {
	var ext string
	switch {
	case h.Kind == domain.KindPDF && target == domain.KindDOCX:
		ext = "docx"
	case h.Kind == domain.KindDOCX && target == domain.KindPDF:
		ext = "pdf"
	default:
		return nil, codecErr("convert", h.Name, fmt.Errorf("unsupported conversion %s to %s", h.Kind, target))
	}
	if e.office == nil {
		return nil, codecErr("convert", h.Name, errUnavailable)
	}
	out, err := e.office.ConvertBytes(ctx, h.Name, h.Bytes(), ext)
	if err != nil {
		return nil, codecErr("convert", h.Name, err)
	}
	return NewHandle(h.Name, target, out), nil
}

func (e *Engine) Reencode(h *Handle, p compression.Params) (*Handle, error) {
	out, err := pdfRepack(h.Bytes(), p)
	if err != nil {
		return nil, codecErr("compress", h.Name, err)
	}
	return NewHandle(h.Name, domain.KindPDF, out), nil
}

func (e *Engine) ExtractImages(h *Handle) ([]EmbeddedImage, error) {
	imgs, err := pdfExtractImages(h.Bytes())
	if err != nil {
		return nil, codecErr("extract images", h.Name, err)
	}
	return imgs, nil
}

func (e *Engine) ImagesToPDF(images []*Handle) (*Handle, error) {
	data := make([][]byte, 0, len(images))
	for _, h := range images {
		b, err := importableImage(h.Bytes())
		if err != nil {
			return nil, codecErr("images to pdf", h.Name, err)
		}
		data = append(data, b)
	}
	out, err := pdfFromImages(data)
	if err != nil {
		return nil, codecErr("images to pdf", "", err)
	}
	return NewHandle("combined_images.pdf", domain.KindPDF, out), nil
}

func (e *Engine) RenderPages(ctx context.Context, h *Handle) ([][]byte, error) {
	if e.raster == nil {
		return nil, codecErr("render", h.Name, errUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := e.raster.RenderAll(h.Bytes())
	if err != nil {
		return nil, codecErr("render", h.Name, err)
	}
	return pages, nil
}
