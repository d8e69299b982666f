package strategy

import (
	"context"
	"fmt"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/domain"
	logpkg "github.com/local/docsuite/internal/logger"
	"github.com/local/docsuite/internal/pagerange"
)

// Split cuts each PDF into page subsets. Any failure aborts the batch.
type Split struct {
	codec  codec.Codec
	mode   domain.SplitMode
	ranges string
}

func (s *Split) Operation() domain.Operation { return domain.OpSplit }
func (s *Split) MinFiles() int               { return 1 }
func (s *Split) FailFast() bool              { return true }

// Transform returns domain.ErrEmptyDocument for a PDF without pages.
func (s *Split) Transform(ctx context.Context, f domain.UploadedFile) ([]domain.Artifact, error) {
	h, err := requireKind(s.codec, f, domain.KindPDF)
	if err != nil {
		return nil, err
	}
	total, err := s.codec.PageCount(h)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, domain.ErrEmptyDocument
	}

	var ranges []domain.PageRange
	switch s.mode {
	case domain.SplitOneOne:
		ranges = pagerange.Partition(total, 1)
	case domain.SplitTwoTwo:
		ranges = pagerange.Partition(total, 2)
	default:
		if ranges, err = pagerange.Parse(s.ranges, total); err != nil {
			return nil, err
		}
	}

	base := f.Base()
	out := make([]domain.Artifact, 0, len(ranges))
	for _, r := range ranges {
		sub, err := s.codec.ExtractPages(h, r)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact(s.name(base, r), f.Name, sub.Bytes()))
	}
	logpkg.FromContext(ctx).Debug().Str("file", f.Name).Int("pages", total).Int("parts", len(out)).Str("mode", string(s.mode)).Msg("split")
	return out, nil
}

func (s *Split) name(base string, r domain.PageRange) string {
	switch s.mode {
	case domain.SplitOneOne:
		return fmt.Sprintf("%s_page_%d.pdf", base, r.Start)
	case domain.SplitTwoTwo:
		return fmt.Sprintf("%s_pages_%d-%d.pdf", base, r.Start, r.End)
	}
	return fmt.Sprintf("%s_custom_%d-%d.pdf", base, r.Start, r.End)
}
