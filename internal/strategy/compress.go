package strategy

import (
	"context"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

// Compress re-encodes and repacks each PDF under the tier's parameters.
type Compress struct {
	codec  codec.Codec
	params compression.Params
}

func (c *Compress) Operation() domain.Operation { return domain.OpCompress }
func (c *Compress) MinFiles() int               { return 1 }
func (c *Compress) FailFast() bool              { return false }

// Params returns the resolved codec settings.
func (c *Compress) Params() compression.Params { return c.params }

func (c *Compress) Transform(_ context.Context, f domain.UploadedFile) ([]domain.Artifact, error) {
	h, err := requireKind(c.codec, f, domain.KindPDF)
	if err != nil {
		return nil, err
	}
	out, err := c.codec.Reencode(h, c.params)
	if err != nil {
		return nil, err
	}
	return []domain.Artifact{artifact("compressed_"+f.Name, f.Name, out.Bytes())}, nil
}
