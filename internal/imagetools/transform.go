package imagetools

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Resize scales img to exactly width x height.
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.CatmullRom)
}

// Crop cuts the box [left,right) x [top,bottom) out of img.
func Crop(img image.Image, left, top, right, bottom int) *image.NRGBA {
	b := img.Bounds()
	return imaging.Crop(img, image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+right, b.Min.Y+bottom))
}

// CenterCrop cuts a width x height box around the image centre.
func CenterCrop(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	left := (b.Dx() - width) / 2
	top := (b.Dy() - height) / 2
	return Crop(img, left, top, left+width, top+height)
}

// AspectCrop cuts the largest centred box with the aspect ratio aw:ah.
func AspectCrop(img image.Image, aw, ah int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	target := float64(aw) / float64(ah)
	if float64(w)/float64(h) > target {
		nw := int(target * float64(h))
		left := (w - nw) / 2
		return Crop(img, left, 0, left+nw, h)
	}
	nh := int(float64(w) / target)
	top := (h - nh) / 2
	return Crop(img, 0, top, w, top+nh)
}

// Rotate turns img counter-clockwise by angle degrees, keeping its size.
// Uncovered corners are filled black.
func Rotate(img image.Image, angle float64) *image.NRGBA {
	b := img.Bounds()
	rotated := imaging.Rotate(img, angle, color.Black)
	return imaging.PasteCenter(imaging.New(b.Dx(), b.Dy(), color.Black), rotated)
}

// Flip mirrors img. Unknown directions return an unchanged copy.
func Flip(img image.Image, direction string) *image.NRGBA {
	switch direction {
	case "horizontal":
		return imaging.FlipH(img)
	case "vertical":
		return imaging.FlipV(img)
	}
	return imaging.Clone(img)
}

// Brightness scales every channel by factor. 1.0 is the identity, 0 is black.
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return mixPixel(color.NRGBA{A: c.A}, c, factor)
	})
}

// Contrast interpolates between the mean luminance and img.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	var sum, n float64
	for i := 0; i+3 < len(src.Pix); i += 4 {
		sum += float64(luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
		n++
	}
	mean := uint8(0)
	if n > 0 {
		mean = uint8(math.Floor(sum/n + 0.5))
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return mixPixel(color.NRGBA{R: mean, G: mean, B: mean, A: c.A}, c, factor)
	})
}

// Saturation interpolates between the grayscale version of each pixel and img.
func Saturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		y := luma(c.R, c.G, c.B)
		return mixPixel(color.NRGBA{R: y, G: y, B: y, A: c.A}, c, factor)
	})
}

var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Sharpness interpolates between a smoothed copy and img; factors above 1
// sharpen, below 1 soften.
func Sharpness(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	smooth := imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
	out := image.NewNRGBA(src.Rect)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = mix(smooth.Pix[i+c], src.Pix[i+c], factor)
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

// Blur applies a gaussian blur with the given radius.
func Blur(img image.Image, radius float64) *image.NRGBA {
	if radius <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Blur(img, radius)
}

func Grayscale(img image.Image) *image.NRGBA { return imaging.Grayscale(img) }

func luma(r, g, b uint8) uint8 {
	return uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)
}

// mix returns deg + factor*(src-deg) clamped to a byte.
func mix(deg, src uint8, factor float64) uint8 {
	v := float64(deg) + factor*(float64(src)-float64(deg))
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func mixPixel(deg, src color.NRGBA, factor float64) color.NRGBA {
	return color.NRGBA{
		R: mix(deg.R, src.R, factor),
		G: mix(deg.G, src.G, factor),
		B: mix(deg.B, src.B, factor),
		A: src.A,
	}
}
