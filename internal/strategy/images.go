package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/domain"
)

// ExtractImages pulls every embedded raster image out of each PDF.
type ExtractImages struct {
	codec codec.Codec
}

func (e *ExtractImages) Operation() domain.Operation { return domain.OpExtractImages }
func (e *ExtractImages) MinFiles() int               { return 1 }
func (e *ExtractImages) FailFast() bool              { return false }

// EmptyErr is returned when no PDF in the batch held an image.
func (e *ExtractImages) EmptyErr() error { return domain.ErrNoContentExtracted }

func (e *ExtractImages) Transform(_ context.Context, f domain.UploadedFile) ([]domain.Artifact, error) {
	h, err := requireKind(e.codec, f, domain.KindPDF)
	if err != nil {
		return nil, err
	}
	imgs, err := e.codec.ExtractImages(h)
	if err != nil {
		return nil, err
	}
	base := f.Base()
	out := make([]domain.Artifact, 0, len(imgs))
	for _, img := range imgs {
		ext := strings.TrimPrefix(strings.ToLower(img.Ext), ".")
		if ext == "" {
			ext = "bin"
		}
		name := fmt.Sprintf("%s_page%d_img%d.%s", base, img.Page, img.Index, ext)
		out = append(out, artifact(name, f.Name, img.Data))
	}
	return out, nil
}

// ImagesToPDF assembles all uploaded images, one per page, into one PDF.
type ImagesToPDF struct {
	codec codec.Codec
}

func (i *ImagesToPDF) Operation() domain.Operation { return domain.OpImagesToPDF }
func (i *ImagesToPDF) MinFiles() int               { return 1 }

func (i *ImagesToPDF) TransformBatch(_ context.Context, files []domain.UploadedFile) ([]domain.Artifact, error) {
	if len(files) == 0 {
		return nil, domain.InsufficientInputsError(0, 1)
	}
	handles := make([]*codec.Handle, 0, len(files))
	for _, f := range files {
		h, err := requireKind(i.codec, f, domain.KindImage)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	doc, err := i.codec.ImagesToPDF(handles)
	if err != nil {
		return nil, err
	}
	return []domain.Artifact{artifact("combined_images.pdf", "", doc.Bytes())}, nil
}

// PDFToImages renders every page of each PDF to JPEG.
type PDFToImages struct {
	codec codec.Codec
}

func (p *PDFToImages) Operation() domain.Operation { return domain.OpPDFToImages }
func (p *PDFToImages) MinFiles() int               { return 1 }
func (p *PDFToImages) FailFast() bool              { return false }

func (p *PDFToImages) Transform(ctx context.Context, f domain.UploadedFile) ([]domain.Artifact, error) {
	h, err := requireKind(p.codec, f, domain.KindPDF)
	if err != nil {
		return nil, err
	}
	pages, err := p.codec.RenderPages(ctx, h)
	if err != nil {
		return nil, err
	}
	base := f.Base()
	out := make([]domain.Artifact, 0, len(pages))
	for n, page := range pages {
		out = append(out, artifact(fmt.Sprintf("%s_page_%d.jpg", base, n+1), f.Name, page))
	}
	return out, nil
}
