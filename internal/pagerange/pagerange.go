// Package pagerange parses page-range expressions such as "1-5,8-10".
package pagerange

import (
	"strconv"
	"strings"

	"github.com/local/docsuite/internal/domain"
)

// Parse validates a comma-separated list of "start-end" fragments against
// totalPages. Ranges keep their input order; overlaps and duplicates are
// returned as given. The first bad fragment aborts parsing.
func Parse(expr string, totalPages int) ([]domain.PageRange, error) {
	fragments := strings.Split(expr, ",")
	ranges := make([]domain.PageRange, 0, len(fragments))
	for _, fragment := range fragments {
		r, err := parseFragment(fragment)
		if err != nil {
			return nil, err
		}
		if r.Start < 1 || r.End > totalPages || r.Start > r.End {
			return nil, domain.OutOfBoundsRangeError(strings.TrimSpace(fragment), totalPages)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseFragment(fragment string) (domain.PageRange, error) {
	trimmed := strings.TrimSpace(fragment)
	parts := strings.Split(trimmed, "-")
	if len(parts) != 2 {
		return domain.PageRange{}, domain.MalformedRangeError(trimmed)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return domain.PageRange{}, domain.MalformedRangeError(trimmed)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.PageRange{}, domain.MalformedRangeError(trimmed)
	}
	return domain.PageRange{Start: start, End: end}, nil
}

// Partition chunks a document of totalPages into consecutive ranges of size
// pages; the last range holds the remainder.
func Partition(totalPages, size int) []domain.PageRange {
	if totalPages <= 0 || size <= 0 {
		return nil
	}
	out := make([]domain.PageRange, 0, (totalPages+size-1)/size)
	for start := 1; start <= totalPages; start += size {
		out = append(out, domain.PageRange{Start: start, End: min(start+size-1, totalPages)})
	}
	return out
}
