package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/compression"
)

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func pdfValidate(data []byte) error {
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return err
	}
	return api.ValidateContext(ctx)
}

func pdfPageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), pdfConfig())
}

func pdfTrim(data []byte, start, end int) ([]byte, error) {
	var out bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", start, end)}
	if start == end {
		sel = []string{strconv.Itoa(start)}
	}
	if err := api.Trim(bytes.NewReader(data), &out, sel, pdfConfig()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pdfMerge(docs [][]byte) ([]byte, error) {
	rsc := make([]io.ReadSeeker, 0, len(docs))
	for _, d := range docs {
		rsc = append(rsc, bytes.NewReader(d))
	}
	var out bytes.Buffer
	if err := api.MergeRaw(rsc, &out, false, pdfConfig()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pdfFromImages(images [][]byte) ([]byte, error) {
	readers := make([]io.Reader, 0, len(images))
	for _, img := range images {
		readers = append(readers, bytes.NewReader(img))
	}
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, pdfcpu.DefaultImportConfig(), pdfConfig()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pdfExtractImages(data []byte) ([]EmbeddedImage, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, pdfConfig())
	if err != nil {
		return nil, err
	}
	var out []EmbeddedImage
	for i, page := range pages {
		objNrs := make([]int, 0, len(page))
		for objNr := range page {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)
		for k, objNr := range objNrs {
			img := page[objNr]
			b, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image %d: %w", objNr, err)
			}
			pageNr := img.PageNr
			if pageNr == 0 {
				pageNr = i + 1
			}
			out = append(out, EmbeddedImage{Page: pageNr, Index: k + 1, Ext: img.FileType, Data: b})
		}
	}
	return out, nil
}

// pdfRepack rewrites embedded images and repacks the document according to p.
func pdfRepack(data []byte, p compression.Params) ([]byte, error) {
	conf := pdfConfig()
	conf.WriteObjectStream = p.ObjectStreams()
	conf.WriteXRefStream = p.ObjectStreams()

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}

	rewritten, deflated := 0, 0
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if isImage(sd) {
			if p.ReencodesImages() && reencodeImage(ctx, &sd, p) {
				rewritten++
				entry.Object = sd
			}
			continue
		}
		if p.Deflate && deflateStream(&sd) {
			deflated++
			entry.Object = sd
		}
	}

	if p.DedupeResources() {
		if err := api.OptimizeContext(ctx); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, err
	}
	log.Debug().
		Str("tier", string(p.Tier)).
		Int("images_reencoded", rewritten).
		Int("streams_deflated", deflated).
		Int("in_bytes", len(data)).
		Int("out_bytes", out.Len()).
		Msg("pdf repacked")
	return out.Bytes(), nil
}

func isImage(sd types.StreamDict) bool {
	st := sd.NameEntry("Subtype")
	return st != nil && *st == "Image"
}

// imageComponents returns the channel count of an image colour space, or 0
// when it cannot be re-encoded safely.
func imageComponents(ctx *model.Context, sd types.StreamDict) int {
	o, found := sd.Find("ColorSpace")
	if !found {
		return 0
	}
	switch cs := o.(type) {
	case types.Name:
		switch string(cs) {
		case "DeviceGray":
			return 1
		case "DeviceRGB":
			return 3
		case "DeviceCMYK":
			return 4
		}
	case types.Array:
		if len(cs) != 2 {
			return 0
		}
		if n, ok := cs[0].(types.Name); !ok || string(n) != "ICCBased" {
			return 0
		}
		icc, _, err := ctx.DereferenceStreamDict(cs[1])
		if err != nil || icc == nil {
			return 0
		}
		if n := icc.IntEntry("N"); n != nil {
			return *n
		}
	}
	return 0
}

// reencodeImage rewrites an 8-bit image stream as JPEG at p.ImageQuality.
// Any failure leaves the image untouched.
func reencodeImage(ctx *model.Context, sd *types.StreamDict, p compression.Params) bool {
	comps := imageComponents(ctx, *sd)
	if !p.ShouldReencode(comps) {
		return false
	}
	if bpc := sd.IntEntry("BitsPerComponent"); bpc == nil || *bpc != 8 {
		return false
	}
	if _, found := sd.Find("Decode"); found {
		return false
	}
	w, h := sd.IntEntry("Width"), sd.IntEntry("Height")
	if w == nil || h == nil || *w <= 0 || *h <= 0 {
		return false
	}

	img, err := decodeImageStream(sd, *w, *h, comps)
	if err != nil || img == nil {
		return false
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.ImageQuality)); err != nil {
		return false
	}
	if buf.Len() >= len(sd.Raw) {
		return false
	}

	sd.Raw = buf.Bytes()
	sd.Content = nil
	sd.FilterPipeline = []types.PDFFilter{{Name: "DCTDecode"}}
	sd.Update("Filter", types.Name("DCTDecode"))
	sd.Delete("DecodeParms")
	setLength(sd)
	return true
}

func decodeImageStream(sd *types.StreamDict, w, h, comps int) (image.Image, error) {
	if len(sd.Raw) == 0 {
		return nil, fmt.Errorf("empty stream")
	}
	if len(sd.FilterPipeline) == 1 && sd.FilterPipeline[0].Name == "DCTDecode" {
		img, err := jpeg.Decode(bytes.NewReader(sd.Raw))
		if err != nil {
			return nil, err
		}
		if _, cmyk := img.(*image.CMYK); cmyk {
			return nil, fmt.Errorf("cmyk jpeg")
		}
		return img, nil
	}
	for _, f := range sd.FilterPipeline {
		if f.Name != "FlateDecode" && f.Name != "LZWDecode" {
			return nil, fmt.Errorf("unsupported filter %s", f.Name)
		}
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	samples := sd.Content
	if len(samples) != w*h*comps {
		return nil, fmt.Errorf("sample size mismatch")
	}
	rect := image.Rect(0, 0, w, h)
	if comps == 1 {
		g := image.NewGray(rect)
		copy(g.Pix, samples)
		return g, nil
	}
	rgba := image.NewRGBA(rect)
	for i, j := 0, 0; i < len(samples); i, j = i+3, j+4 {
		rgba.Pix[j] = samples[i]
		rgba.Pix[j+1] = samples[i+1]
		rgba.Pix[j+2] = samples[i+2]
		rgba.Pix[j+3] = 0xff
	}
	return rgba, nil
}

// deflateStream compresses a stream that carries no filter.
func deflateStream(sd *types.StreamDict) bool {
	if len(sd.FilterPipeline) > 0 || len(sd.Raw) == 0 {
		return false
	}
	if t := sd.NameEntry("Type"); t != nil && (*t == "XRef" || *t == "ObjStm" || *t == "Metadata") {
		return false
	}
	raw := sd.Raw
	sd.Content = raw
	sd.FilterPipeline = []types.PDFFilter{{Name: "FlateDecode"}}
	if err := sd.Encode(); err != nil || len(sd.Raw) >= len(raw) {
		sd.Raw = raw
		sd.Content = nil
		sd.FilterPipeline = nil
		return false
	}
	sd.Update("Filter", types.Name("FlateDecode"))
	setLength(sd)
	return true
}

func setLength(sd *types.StreamDict) {
	n := int64(len(sd.Raw))
	sd.StreamLength = &n
	sd.Update("Length", types.Integer(n))
}
