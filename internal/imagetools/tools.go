// Package imagetools implements the single-image operations: geometry,
// enhancement, re-encoding and inspection of one uploaded image.
package imagetools

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/local/docsuite/internal/domain"
)

// Op names a single-image operation; the value is its route under /api/.
type Op string

const (
	OpResize     Op = "resize-image"
	OpCrop       Op = "crop-image"
	OpCenterCrop Op = "center-crop-image"
	OpAspectCrop Op = "aspect-crop-image"
	OpRotate     Op = "rotate-image"
	OpFlip       Op = "flip-image"
	OpBrightness Op = "adjust-brightness"
	OpContrast   Op = "adjust-contrast"
	OpSaturation Op = "adjust-saturation"
	OpBlur       Op = "apply-blur"
	OpSharpen    Op = "apply-sharpen"
	OpGrayscale  Op = "convert-to-grayscale"
	OpSave       Op = "save-image"
	OpCompress   Op = "compress-image"
	OpInfo       Op = "get-image-info"
)

// Ops lists the operations that produce an image.
var Ops = []Op{
	OpResize, OpCrop, OpCenterCrop, OpAspectCrop, OpRotate, OpFlip,
	OpBrightness, OpContrast, OpSaturation, OpBlur, OpSharpen, OpGrayscale,
	OpSave, OpCompress,
}

var prefixes = map[Op]string{
	OpResize:     "resized",
	OpCrop:       "cropped",
	OpCenterCrop: "center_cropped",
	OpAspectCrop: "aspect_cropped",
	OpRotate:     "rotated",
	OpFlip:       "flipped",
	OpBrightness: "brightness",
	OpContrast:   "contrast",
	OpSaturation: "saturation",
	OpBlur:       "blurred",
	OpSharpen:    "sharpened",
	OpGrayscale:  "grayscale",
	OpSave:       "saved",
	OpCompress:   "compressed",
}

const defaultQuality = 80

// Info describes an uploaded image.
type Info struct {
	Format string `json:"format"`
	Mode   string `json:"mode"`
	Size   [2]int `json:"size"`
}

// Processor applies single-image operations.
type Processor struct {
	// MaxPixels rejects images whose width*height exceeds it; 0 disables.
	MaxPixels int64
}

func NewProcessor(maxPixels int64) *Processor { return &Processor{MaxPixels: maxPixels} }

// Apply runs op on the image in data and returns the encoded result.
func (p *Processor) Apply(op Op, name string, data []byte, args url.Values) (domain.Artifact, error) {
	prefix, ok := prefixes[op]
	if !ok {
		return domain.Artifact{}, domain.InvalidParameterError("operation", fmt.Sprintf("unknown image operation %q", op))
	}
	img, srcFormat, err := p.decode(name, data)
	if err != nil {
		return domain.Artifact{}, err
	}

	out, err := transform(op, img, args)
	if err != nil {
		return domain.Artifact{}, err
	}

	outName := prefix + "_" + name
	var format imaging.Format
	var opts []imaging.EncodeOption
	switch op {
	case OpSave, OpCompress:
		raw := args.Get("format")
		if raw == "" && op == OpCompress {
			raw = "JPEG"
		}
		if format, err = parseFormat(raw); err != nil {
			return domain.Artifact{}, err
		}
		quality, err := qualityArg(args)
		if err != nil {
			return domain.Artifact{}, err
		}
		opts = append(opts, imaging.JPEGQuality(quality))
		if op == OpCompress {
			opts = append(opts, imaging.PNGCompressionLevel(png.BestCompression))
		}
		outName += "." + strings.ToLower(raw)
	default:
		format, outName = outputFormat(outName, srcFormat)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, opts...); err != nil {
		return domain.Artifact{}, &domain.CodecError{Op: "encode " + format.String(), File: name, Err: err}
	}
	return domain.Artifact{
		Name:      outName,
		MediaType: domain.MediaTypeFor(outName),
		Data:      buf.Bytes(),
		Size:      int64(buf.Len()),
		Source:    name,
	}, nil
}

// Inspect reports the format, color mode and size of the image in data.
func (p *Processor) Inspect(name string, data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, &domain.CodecError{Op: "inspect", File: name, Err: err}
	}
	info := Info{Format: strings.ToUpper(format), Size: [2]int{cfg.Width, cfg.Height}}
	info.Mode = colorMode(cfg.ColorModel)
	if info.Mode == "RGBA" {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return Info{}, &domain.CodecError{Op: "inspect", File: name, Err: err}
		}
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			info.Mode = "RGB"
		}
	}
	return info, nil
}

func (p *Processor) decode(name string, data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &domain.CodecError{Op: "decode image", File: name, Err: err}
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.MaxPixels {
		return nil, "", domain.InvalidParameterError("file", fmt.Sprintf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, p.MaxPixels))
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", &domain.CodecError{Op: "decode image", File: name, Err: err}
	}
	return img, format, nil
}

func transform(op Op, img image.Image, args url.Values) (image.Image, error) {
	b := img.Bounds()
	switch op {
	case OpResize:
		w, h, err := sizeArgs(args, "width", "height")
		if err != nil {
			return nil, err
		}
		return Resize(img, w, h), nil

	case OpCrop:
		var box [4]int
		for i, key := range []string{"left", "top", "right", "bottom"} {
			v, err := intArg(args, key)
			if err != nil {
				return nil, err
			}
			box[i] = v
		}
		left, top, right, bottom := box[0], box[1], box[2], box[3]
		if left < 0 || top < 0 || right > b.Dx() || bottom > b.Dy() || left >= right || top >= bottom {
			return nil, domain.InvalidParameterError("crop", fmt.Sprintf("box (%d,%d,%d,%d) is not inside the %dx%d image", left, top, right, bottom, b.Dx(), b.Dy()))
		}
		return Crop(img, left, top, right, bottom), nil

	case OpCenterCrop:
		w, h, err := sizeArgs(args, "width", "height")
		if err != nil {
			return nil, err
		}
		if w > b.Dx() || h > b.Dy() {
			return nil, domain.InvalidParameterError("crop", fmt.Sprintf("%dx%d is larger than the %dx%d image", w, h, b.Dx(), b.Dy()))
		}
		return CenterCrop(img, w, h), nil

	case OpAspectCrop:
		aw, ah, err := sizeArgs(args, "aspect_width", "aspect_height")
		if err != nil {
			return nil, err
		}
		return AspectCrop(img, aw, ah), nil

	case OpRotate:
		angle, err := floatArg(args, "angle")
		if err != nil {
			return nil, err
		}
		return Rotate(img, angle), nil

	case OpFlip:
		return Flip(img, args.Get("direction")), nil

	case OpBrightness, OpContrast, OpSaturation, OpSharpen:
		f, err := floatArg(args, "factor")
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, domain.InvalidParameterError("factor", "must not be negative")
		}
		switch op {
		case OpBrightness:
			return Brightness(img, f), nil
		case OpContrast:
			return Contrast(img, f), nil
		case OpSaturation:
			return Saturation(img, f), nil
		}
		return Sharpness(img, f), nil

	case OpBlur:
		r, err := floatArg(args, "radius")
		if err != nil {
			return nil, err
		}
		if r < 0 {
			return nil, domain.InvalidParameterError("radius", "must not be negative")
		}
		return Blur(img, r), nil

	case OpGrayscale:
		return Grayscale(img), nil
	}
	return img, nil
}

// outputFormat keeps the upload's extension when it is encodable and falls
// back to PNG, renaming the output to match.
func outputFormat(name, srcFormat string) (imaging.Format, string) {
	if f, err := imaging.FormatFromFilename(name); err == nil {
		return f, name
	}
	if f, err := imaging.FormatFromExtension(srcFormat); err == nil {
		return f, strings.TrimSuffix(name, filepath.Ext(name)) + "." + srcFormat
	}
	return imaging.PNG, strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
}

func parseFormat(raw string) (imaging.Format, error) {
	f, err := imaging.FormatFromExtension(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.InvalidParameterError("format", fmt.Sprintf("unsupported image format %q", raw))
	}
	return f, nil
}

func qualityArg(args url.Values) (int, error) {
	if args.Get("quality") == "" {
		return defaultQuality, nil
	}
	q, err := intArg(args, "quality")
	if err != nil {
		return 0, err
	}
	if q < 1 || q > 100 {
		return 0, domain.InvalidParameterError("quality", "must be between 1 and 100")
	}
	return q, nil
}

func sizeArgs(args url.Values, wKey, hKey string) (int, int, error) {
	w, err := intArg(args, wKey)
	if err != nil {
		return 0, 0, err
	}
	h, err := intArg(args, hKey)
	if err != nil {
		return 0, 0, err
	}
	if w <= 0 {
		return 0, 0, domain.InvalidParameterError(wKey, "must be positive")
	}
	if h <= 0 {
		return 0, 0, domain.InvalidParameterError(hKey, "must be positive")
	}
	return w, h, nil
}

func intArg(args url.Values, key string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(args.Get(key)))
	if err != nil {
		return 0, domain.InvalidParameterError(key, "must be an integer")
	}
	return v, nil
}

func floatArg(args url.Values, key string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(args.Get(key)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.InvalidParameterError(key, "must be a number")
	}
	return v, nil
}

func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	}
	return "RGB"
}
