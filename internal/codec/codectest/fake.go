// Package codectest provides an in-memory Codec for pipeline tests.
//
// A fake PDF is a header line followed by one line per page. A page line is
// its label, optionally followed by "|img=<ext>,<ext>" naming embedded images.
package codectest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

const (
	pdfHeader  = "%FAKEPDF"
	docxHeader = "%FAKEDOCX"
)

// Corrupt is content that every Open call rejects.
var Corrupt = []byte("%CORRUPT")

// PDF builds a fake PDF from page lines.
func PDF(pages ...string) []byte {
	return []byte(pdfHeader + "\n" + strings.Join(pages, "\n"))
}

// NumberedPDF builds a fake PDF with pages labelled "<prefix>#1".."<prefix>#n".
func NumberedPDF(prefix string, n int) []byte {
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, fmt.Sprintf("%s#%d", prefix, i))
	}
	return PDF(pages...)
}

// DOCX builds a fake word document; each line becomes a page on conversion.
func DOCX(lines ...string) []byte {
	return []byte(docxHeader + "\n" + strings.Join(lines, "\n"))
}

// Pages returns the page lines of a fake PDF.
func Pages(data []byte) ([]string, error) {
	s := string(data)
	if !strings.HasPrefix(s, pdfHeader) {
		return nil, errors.New("not a fake pdf")
	}
	lines := strings.Split(s, "\n")[1:]
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// Codec is a fake codec.Codec. Fail* fields inject failures by file name.
type Codec struct {
	FailConvert map[string]bool
	FailRender  map[string]bool
	Reencoded   []compression.Params
}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec { return &Codec{} }

func fail(op, file, msg string) error {
	return &domain.CodecError{Op: op, File: file, Err: errors.New(msg)}
}

func (c *Codec) Open(name string, kind domain.Kind, data []byte) (*codec.Handle, error) {
	s := string(data)
	switch {
	case strings.HasPrefix(s, string(Corrupt)):
		return nil, fail("open", name, "corrupt document")
	case kind == domain.KindPDF && !strings.HasPrefix(s, pdfHeader):
		return nil, fail("open", name, "not a pdf")
	case kind == domain.KindDOCX && !strings.HasPrefix(s, docxHeader):
		return nil, fail("open", name, "not a docx")
	case len(data) == 0:
		return nil, fail("open", name, "file is empty")
	}
	return codec.NewHandle(name, kind, data), nil
}

func (c *Codec) PageCount(h *codec.Handle) (int, error) {
	pages, err := Pages(h.Bytes())
	if err != nil {
		return 0, fail("page count", h.Name, err.Error())
	}
	return len(pages), nil
}

func (c *Codec) ExtractPages(h *codec.Handle, r domain.PageRange) (*codec.Handle, error) {
	pages, err := Pages(h.Bytes())
	if err != nil || r.Start < 1 || r.End > len(pages) {
		return nil, fail("extract pages", h.Name, "bad range "+r.String())
	}
	return codec.NewHandle(h.Name, domain.KindPDF, PDF(pages[r.Start-1:r.End]...)), nil
}

func (c *Codec) Merge(hs []*codec.Handle) (*codec.Handle, error) {
	var all []string
	for _, h := range hs {
		pages, err := Pages(h.Bytes())
		if err != nil {
			return nil, fail("merge", h.Name, err.Error())
		}
		all = append(all, pages...)
	}
	return codec.NewHandle("merged.pdf", domain.KindPDF, PDF(all...)), nil
}

func (c *Codec) Convert(_ context.Context, h *codec.Handle, target domain.Kind) (*codec.Handle, error) {
	if c.FailConvert[h.Name] {
		return nil, fail("convert", h.Name, "converter crashed")
	}
	switch {
	case h.Kind == domain.KindPDF && target == domain.KindDOCX:
		pages, err := Pages(h.Bytes())
		if err != nil {
			return nil, fail("convert", h.Name, err.Error())
		}
		return codec.NewHandle(h.Name, target, DOCX(pages...)), nil
	case h.Kind == domain.KindDOCX && target == domain.KindPDF:
		lines := strings.Split(string(h.Bytes()), "\n")[1:]
		return codec.NewHandle(h.Name, target, PDF(lines...)), nil
	}
	return nil, fail("convert", h.Name, fmt.Sprintf("unsupported conversion %s to %s", h.Kind, target))
}

// Reencode records p and tags the header with the tier. Lower tiers drop
// image markers, so output size never grows as the tier drops.
func (c *Codec) Reencode(h *codec.Handle, p compression.Params) (*codec.Handle, error) {
	pages, err := Pages(h.Bytes())
	if err != nil {
		return nil, fail("compress", h.Name, err.Error())
	}
	c.Reencoded = append(c.Reencoded, p)
	out := make([]string, 0, len(pages))
	for _, pg := range pages {
		if p.ReencodesImages() {
			pg, _, _ = strings.Cut(pg, "|img=")
		}
		out = append(out, pg)
	}
	return codec.NewHandle(h.Name, domain.KindPDF, PDF(out...)), nil
}

func (c *Codec) ExtractImages(h *codec.Handle) ([]codec.EmbeddedImage, error) {
	pages, err := Pages(h.Bytes())
	if err != nil {
		return nil, fail("extract images", h.Name, err.Error())
	}
	var out []codec.EmbeddedImage
	for i, pg := range pages {
		_, exts, ok := strings.Cut(pg, "|img=")
		if !ok {
			continue
		}
		for k, ext := range strings.Split(exts, ",") {
			out = append(out, codec.EmbeddedImage{
				Page:  i + 1,
				Index: k + 1,
				Ext:   ext,
				Data:  []byte(fmt.Sprintf("image %d/%d of %s", i+1, k+1, h.Name)),
			})
		}
	}
	return out, nil
}

func (c *Codec) ImagesToPDF(images []*codec.Handle) (*codec.Handle, error) {
	pages := make([]string, 0, len(images))
	for _, h := range images {
		pages = append(pages, h.Name)
	}
	return codec.NewHandle("combined_images.pdf", domain.KindPDF, PDF(pages...)), nil
}

func (c *Codec) RenderPages(_ context.Context, h *codec.Handle) ([][]byte, error) {
	if c.FailRender[h.Name] {
		return nil, fail("render", h.Name, "renderer crashed")
	}
	pages, err := Pages(h.Bytes())
	if err != nil {
		return nil, fail("render", h.Name, err.Error())
	}
	out := make([][]byte, 0, len(pages))
	for _, pg := range pages {
		out = append(out, []byte("jpeg:"+pg))
	}
	return out, nil
}
