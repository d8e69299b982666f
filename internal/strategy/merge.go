package strategy

import (
	"context"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/domain"
)

// Merge concatenates every PDF in upload order into merged.pdf.
type Merge struct {
	codec codec.Codec
}

func (m *Merge) Operation() domain.Operation { return domain.OpMerge }
func (m *Merge) MinFiles() int               { return 2 }

func (m *Merge) TransformBatch(_ context.Context, files []domain.UploadedFile) ([]domain.Artifact, error) {
	if len(files) < 2 {
		return nil, domain.InsufficientInputsError(len(files), 2)
	}
	handles := make([]*codec.Handle, 0, len(files))
	for _, f := range files {
		h, err := requireKind(m.codec, f, domain.KindPDF)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	merged, err := m.codec.Merge(handles)
	if err != nil {
		return nil, err
	}
	return []domain.Artifact{artifact("merged.pdf", "", merged.Bytes())}, nil
}
