// Package strategy holds one transformation per batch operation.
package strategy

import (
	"context"
	"strings"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/compression"
	"github.com/local/docsuite/internal/domain"
)

// Strategy is the common part of every transformation.
type Strategy interface {
	Operation() domain.Operation
	// MinFiles is the smallest batch the strategy accepts.
	MinFiles() int
}

// FileStrategy transforms uploads one at a time, in upload order.
type FileStrategy interface {
	Strategy
	// FailFast reports whether a failed file aborts the whole batch.
	FailFast() bool
	Transform(ctx context.Context, f domain.UploadedFile) ([]domain.Artifact, error)
}

// BatchStrategy consumes every upload at once and fails as a unit.
type BatchStrategy interface {
	Strategy
	TransformBatch(ctx context.Context, files []domain.UploadedFile) ([]domain.Artifact, error)
}

// EmptyReporter overrides the error returned when a batch yields nothing
// and nothing failed.
type EmptyReporter interface {
	EmptyErr() error
}

// New validates request parameters and builds the strategy for op. It never
// touches file contents, so parameter errors surface before any read.
func New(op domain.Operation, p domain.Params, c codec.Codec) (Strategy, error) {
	switch op {
	case domain.OpSplit:
		mode := domain.SplitMode(strings.TrimSpace(string(p.SplitMode)))
		switch mode {
		case domain.SplitOneOne, domain.SplitTwoTwo, domain.SplitCustom:
		default:
			return nil, domain.InvalidParameterError("split_type", "expected one-one, two-two or custom")
		}
		return &Split{codec: c, mode: mode, ranges: p.CustomRanges}, nil
	case domain.OpMerge:
		return &Merge{codec: c}, nil
	case domain.OpPDFToDOCX:
		return &Convert{codec: c, op: op, from: domain.KindPDF, to: domain.KindDOCX}, nil
	case domain.OpDOCXToPDF:
		return &Convert{codec: c, op: op, from: domain.KindDOCX, to: domain.KindPDF}, nil
	case domain.OpCompress:
		tier, err := compression.ParseTier(p.Quality)
		if err != nil {
			return nil, err
		}
		params, err := compression.For(tier)
		if err != nil {
			return nil, err
		}
		return &Compress{codec: c, params: params}, nil
	case domain.OpExtractImages:
		return &ExtractImages{codec: c}, nil
	case domain.OpImagesToPDF:
		return &ImagesToPDF{codec: c}, nil
	case domain.OpPDFToImages:
		return &PDFToImages{codec: c}, nil
	}
	return nil, domain.InvalidParameterError("operation", string(op))
}

// requireKind opens f as want, rejecting other kinds before any decode.
func requireKind(c codec.Codec, f domain.UploadedFile, want domain.Kind) (*codec.Handle, error) {
	if f.Kind != want {
		return nil, domain.UnsupportedFileKindError(f.Name, want)
	}
	return c.Open(f.Name, f.Kind, f.Data)
}

func artifact(name, source string, data []byte) domain.Artifact {
	return domain.Artifact{
		Name:      name,
		MediaType: domain.MediaTypeFor(name),
		Data:      data,
		Size:      int64(len(data)),
		Source:    source,
	}
}
