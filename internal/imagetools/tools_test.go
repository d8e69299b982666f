package imagetools

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/domain"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// quadrants builds a w x h image: red left half, blue right half.
func quadrants(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, red)
			} else {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func at(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func decoded(t *testing.T, art domain.Artifact) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(art.Data))
	require.NoError(t, err)
	return img
}

func vals(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func requireValidation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err), "want validation error, got %v", err)
	assert.Equal(t, 400, domain.HTTPStatus(err))
}

func TestApplyGeometry(t *testing.T) {
	p := NewProcessor(0)
	src := encodePNG(t, quadrants(40, 20))

	tests := []struct {
		op       Op
		args     url.Values
		wantName string
		w, h     int
	}{
		{OpResize, vals("width", "10", "height", "5"), "resized_a.png", 10, 5},
		{OpCrop, vals("left", "0", "top", "0", "right", "20", "bottom", "10"), "cropped_a.png", 20, 10},
		{OpCenterCrop, vals("width", "10", "height", "10"), "center_cropped_a.png", 10, 10},
		{OpAspectCrop, vals("aspect_width", "1", "aspect_height", "1"), "aspect_cropped_a.png", 20, 20},
		{OpAspectCrop, vals("aspect_width", "4", "aspect_height", "1"), "aspect_cropped_a.png", 40, 10},
		{OpRotate, vals("angle", "45"), "rotated_a.png", 40, 20},
		{OpFlip, vals("direction", "vertical"), "flipped_a.png", 40, 20},
		{OpGrayscale, nil, "grayscale_a.png", 40, 20},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			art, err := p.Apply(tt.op, "a.png", src, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, art.Name)
			assert.Equal(t, "image/png", art.MediaType)
			b := decoded(t, art).Bounds()
			assert.Equal(t, tt.w, b.Dx())
			assert.Equal(t, tt.h, b.Dy())
		})
	}
}

func TestApplyRejectsBadParameters(t *testing.T) {
	p := NewProcessor(0)
	src := encodePNG(t, quadrants(40, 20))

	tests := []struct {
		name string
		op   Op
		args url.Values
	}{
		{"zero width", OpResize, vals("width", "0", "height", "5")},
		{"missing height", OpResize, vals("width", "5")},
		{"crop outside", OpCrop, vals("left", "0", "top", "0", "right", "41", "bottom", "10")},
		{"crop inverted", OpCrop, vals("left", "10", "top", "0", "right", "5", "bottom", "10")},
		{"crop negative", OpCrop, vals("left", "-1", "top", "0", "right", "5", "bottom", "10")},
		{"center crop too big", OpCenterCrop, vals("width", "50", "height", "10")},
		{"aspect zero", OpAspectCrop, vals("aspect_width", "0", "aspect_height", "1")},
		{"angle not a number", OpRotate, vals("angle", "left")},
		{"negative factor", OpBrightness, vals("factor", "-1")},
		{"negative radius", OpBlur, vals("radius", "-2")},
		{"unknown save format", OpSave, vals("format", "xyz")},
		{"missing save format", OpSave, nil},
		{"quality too high", OpSave, vals("format", "JPEG", "quality", "101")},
		{"quality zero", OpCompress, vals("quality", "0")},
		{"unknown op", Op("explode-image"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Apply(tt.op, "a.png", src, tt.args)
			requireValidation(t, err)
		})
	}
}

func TestApplyUndecodable(t *testing.T) {
	_, err := NewProcessor(0).Apply(OpResize, "a.png", []byte("not an image"), vals("width", "1", "height", "1"))
	var ce *domain.CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 500, domain.HTTPStatus(err))
}

func TestApplyMaxPixels(t *testing.T) {
	_, err := NewProcessor(100).Apply(OpGrayscale, "a.png", encodePNG(t, quadrants(20, 20)), nil)
	requireValidation(t, err)
}

func TestSaveAndCompress(t *testing.T) {
	p := NewProcessor(0)
	src := encodePNG(t, quadrants(32, 32))

	art, err := p.Apply(OpSave, "a.png", src, vals("format", "JPEG", "quality", "90"))
	require.NoError(t, err)
	assert.Equal(t, "saved_a.png.jpeg", art.Name)
	assert.Equal(t, "image/jpeg", art.MediaType)
	_, format, err := image.DecodeConfig(bytes.NewReader(art.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	art, err = p.Apply(OpCompress, "a.png", src, nil)
	require.NoError(t, err)
	assert.Equal(t, "compressed_a.png.jpeg", art.Name)

	low, err := p.Apply(OpCompress, "a.png", src, vals("quality", "5"))
	require.NoError(t, err)
	high, err := p.Apply(OpCompress, "a.png", src, vals("quality", "100"))
	require.NoError(t, err)
	assert.Less(t, low.Size, high.Size)

	art, err = p.Apply(OpCompress, "a.png", src, vals("format", "png"))
	require.NoError(t, err)
	assert.Equal(t, "compressed_a.png.png", art.Name)
	assert.Equal(t, "image/png", art.MediaType)
}

func TestOutputFormatFallback(t *testing.T) {
	f, name := outputFormat("resized_a.webp", "webp")
	assert.Equal(t, imaging.PNG, f)
	assert.Equal(t, "resized_a.png", name)

	f, name = outputFormat("resized_scan", "jpeg")
	assert.Equal(t, imaging.JPEG, f)
	assert.Equal(t, "resized_scan.jpeg", name)

	f, name = outputFormat("resized_a.JPG", "jpeg")
	assert.Equal(t, imaging.JPEG, f)
	assert.Equal(t, "resized_a.JPG", name)
}

func TestInspect(t *testing.T) {
	p := NewProcessor(0)

	info, err := p.Inspect("a.png", encodePNG(t, quadrants(7, 3)))
	require.NoError(t, err)
	assert.Equal(t, Info{Format: "PNG", Mode: "RGB", Size: [2]int{7, 3}}, info)

	translucent := quadrants(2, 2)
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 1, A: 10})
	info, err = p.Inspect("b.png", encodePNG(t, translucent))
	require.NoError(t, err)
	assert.Equal(t, "RGBA", info.Mode)

	info, err = p.Inspect("c.png", encodePNG(t, image.NewGray(image.Rect(0, 0, 4, 5))))
	require.NoError(t, err)
	assert.Equal(t, "L", info.Mode)
	assert.Equal(t, [2]int{4, 5}, info.Size)

	_, err = p.Inspect("d.png", []byte("junk"))
	assert.Error(t, err)
}

func TestRotate180(t *testing.T) {
	out := Rotate(quadrants(4, 2), 180)
	assert.Equal(t, blue, at(out, 0, 0))
	assert.Equal(t, red, at(out, 3, 1))
}

func TestFlip(t *testing.T) {
	src := quadrants(4, 2)
	assert.Equal(t, blue, at(Flip(src, "horizontal"), 0, 0))
	assert.Equal(t, red, at(Flip(src, "vertical"), 0, 0))
	assert.Equal(t, red, at(Flip(src, "diagonal"), 0, 0))
}

func TestEnhanceIdentityAtOne(t *testing.T) {
	src := quadrants(6, 6)
	src.SetNRGBA(2, 2, color.NRGBA{R: 100, G: 50, B: 200, A: 255})
	for name, fn := range map[string]func(image.Image, float64) *image.NRGBA{
		"brightness": Brightness,
		"contrast":   Contrast,
		"saturation": Saturation,
		"sharpness":  Sharpness,
	} {
		out := fn(src, 1.0)
		assert.Equal(t, src.Pix, out.Pix, name)
	}
	assert.Equal(t, src.Pix, Blur(src, 0).Pix)
}

func TestBrightness(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 50, B: 200, A: 255})
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 255, A: 255}, at(Brightness(src, 2), 0, 0))
	assert.Equal(t, black, at(Brightness(src, 0), 0, 0))
}

func TestContrastZeroIsMeanGray(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, black)
	src.SetNRGBA(1, 0, white)
	out := Contrast(src, 0)
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	assert.Equal(t, gray, at(out, 0, 0))
	assert.Equal(t, gray, at(out, 1, 0))
}

func TestSaturationZeroIsGray(t *testing.T) {
	out := Saturation(quadrants(2, 1), 0)
	c := at(out, 0, 0)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
	assert.Equal(t, uint8(76), c.R)
}

func TestSharpnessAndBlurChangeEdges(t *testing.T) {
	src := quadrants(8, 8)
	assert.NotEqual(t, src.Pix, Sharpness(src, 0).Pix)
	assert.NotEqual(t, src.Pix, Blur(src, 2).Pix)
}

func TestRotateQuarterKeepsCanvas(t *testing.T) {
	out := Rotate(quadrants(40, 20), 90)
	assert.Equal(t, image.Rect(0, 0, 40, 20), out.Bounds())
	assert.Equal(t, black, at(out, 0, 0))
}
