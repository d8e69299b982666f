package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the inferred document kind of an upload.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindImage   Kind = "image"
)

var kindByExt = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".doc":  KindDOCX,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".webp": KindImage,
}

// KindFromName infers a kind from the filename extension.
func KindFromName(name string) Kind {
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindUnknown
}

// Operation names a batch transformation. Values double as the HTTP path suffix.
type Operation string

const (
	OpSplit         Operation = "split"
	OpMerge         Operation = "merge"
	OpPDFToDOCX     Operation = "pdf-to-doc"
	OpDOCXToPDF     Operation = "doc-to-pdf"
	OpExtractImages Operation = "extract-images"
	OpImagesToPDF   Operation = "images-to-pdf"
	OpCompress      Operation = "compress-pdf"
	OpPDFToImages   Operation = "pdf-to-images"
)

// Operations lists every batch operation in registration order.
var Operations = []Operation{
	OpSplit, OpMerge, OpPDFToDOCX, OpDOCXToPDF, OpExtractImages, OpImagesToPDF, OpCompress, OpPDFToImages,
}

type SplitMode string

const (
	SplitOneOne SplitMode = "one-one"
	SplitTwoTwo SplitMode = "two-two"
	SplitCustom SplitMode = "custom"
)

type QualityTier string

const (
	QualityLow    QualityTier = "low"
	QualityMedium QualityTier = "medium"
	QualityHigh   QualityTier = "high"
)

// PageRange is a 1-indexed inclusive page interval.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Pages returns the number of pages covered by the range.
func (r PageRange) Pages() int { return r.End - r.Start + 1 }

// Params carries operation-specific request parameters.
type Params struct {
	SplitMode    SplitMode
	CustomRanges string
	Quality      string
}

// UploadedFile is one file of a batch. Data is owned by the request.
type UploadedFile struct {
	Name string
	Data []byte
	Kind Kind
	Path string
}

// Base returns the filename without its extension.
func (f UploadedFile) Base() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Request is a transformation request for one batch.
type Request struct {
	Operation Operation
	Params    Params
	Files     []UploadedFile
	Client    string
}

// Artifact is a produced output file pending packaging.
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
	Path      string
	Size      int64
	Source    string
}

// FailureRecord names a file and why it failed.
type FailureRecord struct {
	File string
	Err  error
}

func (f FailureRecord) Message() string {
	if f.File == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

// FileResult is the outcome for a single input file.
type FileResult struct {
	File      string
	Artifacts []Artifact
	Failure   *FailureRecord
	Skipped   bool
	Note      string
}

// Result aggregates per-file outcomes in upload order.
type Result struct {
	Operation Operation
	Files     []FileResult
}

// Artifacts returns every produced artifact in upload order, then generation order.
func (r Result) Artifacts() []Artifact {
	var out []Artifact
	for _, f := range r.Files {
		out = append(out, f.Artifacts...)
	}
	return out
}

func (r Result) Failures() []FailureRecord {
	var out []FailureRecord
	for _, f := range r.Files {
		if f.Failure != nil {
			out = append(out, *f.Failure)
		}
	}
	return out
}

// MediaTypeFor returns the media type for an output filename.
func MediaTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	case ".jpx", ".jp2":
		return "image/jp2"
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}
