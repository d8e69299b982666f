package imagerender

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// probePDF is a one-page blank document; MuPDF rebuilds its missing xref.
var probePDF = []byte("%PDF-1.4\n" +
	"1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
	"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n" +
	"3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 72 72]>>endobj\n" +
	"trailer<</Root 1 0 R>>\n%%EOF\n")

// Renderer rasterises PDF pages to JPEG with MuPDF.
type Renderer struct {
	DPI     int
	Quality int
	Color   ColorMode
}

func New(dpi, quality int, color string) *Renderer {
	if dpi <= 0 {
		dpi = 150
	}
	if quality < 1 || quality > 100 {
		quality = 85
	}
	mode := ColorRGB
	if ColorMode(color) == ColorGray {
		mode = ColorGray
	}
	return &Renderer{DPI: dpi, Quality: quality, Color: mode}
}

// RenderAll renders every page of the PDF in data, in page order.
func (r *Renderer) RenderAll(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		// go-fitz pages are 0-based
		img, err := doc.ImageDPI(i, float64(r.DPI))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		b, err := encodeJPEG(img, r.Color, r.Quality)
		if err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		log.Debug().
			Int("page", i+1).
			Int("width", img.Bounds().Dx()).
			Int("height", img.Bounds().Dy()).
			Int("jpeg_size", len(b)).
			Int("dpi", r.DPI).
			Msg("rendered page")
		pages = append(pages, b)
	}
	return pages, nil
}

// Probe renders a blank page to confirm the MuPDF library works.
func (r *Renderer) Probe() error {
	pages, err := r.RenderAll(probePDF)
	if err != nil {
		return err
	}
	if len(pages) != 1 {
		return fmt.Errorf("probe rendered %d pages", len(pages))
	}
	return nil
}

func encodeJPEG(img image.Image, mode ColorMode, quality int) ([]byte, error) {
	final := img
	if mode == ColorGray {
		gray := image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
		final = gray
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, final, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
