package codec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// formats pdfcpu imports without conversion.
var importable = map[string]bool{"jpeg": true, "png": true, "tiff": true, "webp": true}

func imageFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}

// importableImage returns data in a form the PDF importer accepts,
// transcoding other raster formats to PNG.
func importableImage(data []byte) ([]byte, error) {
	format, err := imageFormat(data)
	if err != nil {
		return nil, err
	}
	if importable[format] {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
