package orchestrator

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
)

// Package is the final response payload of a batch.
type Package struct {
	Name      string
	MediaType string
	Path      string
	Size      int64
	Entries   int
}

var archiveNames = map[domain.Operation]string{
	domain.OpSplit:         "split_results.zip",
	domain.OpPDFToDOCX:     "converted_docs.zip",
	domain.OpDOCXToPDF:     "converted_pdfs.zip",
	domain.OpExtractImages: "extracted_images.zip",
	domain.OpCompress:      "compressed_pdfs.zip",
	domain.OpPDFToImages:   "page_images.zip",
}

// ArchiveName returns the zip name used when op yields several artifacts.
func ArchiveName(op domain.Operation) string {
	if n, ok := archiveNames[op]; ok {
		return n
	}
	return string(op) + "_results.zip"
}

// Pack returns the single artifact directly or zips several into the
// workspace. Artifacts must already be persisted.
func Pack(ws *Workspace, op domain.Operation, arts []domain.Artifact) (*Package, error) {
	switch len(arts) {
	case 0:
		return nil, domain.ErrNoOutputProduced
	case 1:
		a := arts[0]
		return &Package{Name: a.Name, MediaType: a.MediaType, Path: a.Path, Size: a.Size, Entries: 1}, nil
	}

	name := ArchiveName(op)
	path := ws.Path(name)
	size, err := writeZip(path, arts)
	if err != nil {
		return nil, &domain.PackagingError{Err: err}
	}
	if size == 0 {
		return nil, &domain.PackagingError{Err: errors.New("archive is empty")}
	}
	log.Info().Str("job_id", ws.JobID).Str("archive", name).Int("entries", len(arts)).Int64("bytes", size).Msg("packaged artifacts")
	return &Package{Name: name, MediaType: "application/zip", Path: path, Size: size, Entries: len(arts)}, nil
}

// writeZip stores artifacts uncompressed, flat, in the given order.
func writeZip(path string, arts []domain.Artifact) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, a := range arts {
		if err := addEntry(zw, a); err != nil {
			_ = zw.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func addEntry(zw *zip.Writer, a domain.Artifact) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: a.Name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("add %s: %w", a.Name, err)
	}
	src, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.Name, err)
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write %s: %w", a.Name, err)
	}
	return nil
}
