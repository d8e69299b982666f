package codec

import (
	"bytes"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

func TestImageComponents(t *testing.T) {
	doc := pdfFixture(t, NewEngine(nil, nil), 1)
	ctx, err := api.ReadContext(bytes.NewReader(doc.Bytes()), pdfConfig())
	require.NoError(t, err)

	iccRGB, err := ctx.IndRefForNewObject(types.StreamDict{Dict: types.Dict{"N": types.Integer(3)}})
	require.NoError(t, err)
	iccNoN, err := ctx.IndRefForNewObject(types.StreamDict{Dict: types.Dict{}})
	require.NoError(t, err)

	image := func(cs types.Object) types.StreamDict {
		d := types.Dict{"Subtype": types.Name("Image")}
		if cs != nil {
			d["ColorSpace"] = cs
		}
		return types.StreamDict{Dict: d}
	}

	tests := []struct {
		name string
		cs   types.Object
		want int
	}{
		{"gray", types.Name("DeviceGray"), 1},
		{"rgb", types.Name("DeviceRGB"), 3},
		{"cmyk", types.Name("DeviceCMYK"), 4},
		{"indexed name", types.Name("Indexed"), 0},
		{"missing", nil, 0},
		{"icc rgb", types.Array{types.Name("ICCBased"), *iccRGB}, 3},
		{"icc without N", types.Array{types.Name("ICCBased"), *iccNoN}, 0},
		{"icc dangling", types.Array{types.Name("ICCBased"), *types.NewIndirectRef(99999, 0)}, 0},
		{"not icc", types.Array{types.Name("CalRGB"), types.Dict{}}, 0},
		{"short array", types.Array{types.Name("ICCBased")}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sd := image(tc.cs)
			assert.True(t, isImage(sd))
			assert.Equal(t, tc.want, imageComponents(ctx, sd))
		})
	}
}

func TestReencodeICCBasedImage(t *testing.T) {
	e := NewEngine(nil, nil)
	h, err := e.ImagesToPDF([]*Handle{NewHandle("photo.png", domain.KindImage, pngFixture(t, 400, 300, 7))})
	require.NoError(t, err)
	ctx, err := api.ReadContext(bytes.NewReader(h.Bytes()), pdfConfig())
	require.NoError(t, err)

	icc, err := ctx.IndRefForNewObject(types.StreamDict{Dict: types.Dict{"N": types.Integer(3)}})
	require.NoError(t, err)

	low, err := compression.For(domain.QualityLow)
	require.NoError(t, err)

	found := false
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || !isImage(sd) {
			continue
		}
		if cs := sd.NameEntry("ColorSpace"); cs == nil || *cs != "DeviceRGB" {
			continue
		}
		found = true
		sd.Update("ColorSpace", types.Array{types.Name("ICCBased"), *icc})
		require.Equal(t, 3, imageComponents(ctx, sd))
		require.True(t, reencodeImage(ctx, &sd, low))
		assert.Equal(t, "DCTDecode", *sd.NameEntry("Filter"))
		assert.Equal(t, int64(len(sd.Raw)), *sd.StreamLength)
	}
	assert.True(t, found, "fixture holds an RGB image stream")
}
