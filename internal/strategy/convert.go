package strategy

import (
	"context"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/domain"
)

// Convert turns each upload of kind from into kind to.
type Convert struct {
	codec codec.Codec
	op    domain.Operation
	from  domain.Kind
	to    domain.Kind
}

func (c *Convert) Operation() domain.Operation { return c.op }
func (c *Convert) MinFiles() int               { return 1 }
func (c *Convert) FailFast() bool              { return false }

func (c *Convert) Transform(ctx context.Context, f domain.UploadedFile) ([]domain.Artifact, error) {
	h, err := requireKind(c.codec, f, c.from)
	if err != nil {
		return nil, err
	}
	out, err := c.codec.Convert(ctx, h, c.to)
	if err != nil {
		return nil, err
	}
	return []domain.Artifact{artifact(f.Base()+"."+string(c.to), f.Name, out.Bytes())}, nil
}
