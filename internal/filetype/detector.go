package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
)

// Info is the detected type of an upload.
type Info struct {
	MIMEType  string
	Extension string
	Kind      domain.Kind
}

// Detector infers upload kinds from magic bytes, falling back to the filename.
type Detector struct{}

func New() *Detector { return &Detector{} }

// Kind returns the document kind of an upload.
func (d *Detector) Kind(name string, data []byte) domain.Kind {
	return d.Detect(name, data).Kind
}

// Detect sniffs data and classifies it.
func (d *Detector) Detect(name string, data []byte) Info {
	mtype := mimetype.Detect(data)
	info := Info{MIMEType: mtype.String(), Extension: mtype.Extension()}
	ext := strings.ToLower(filepath.Ext(name))

	// Office formats are containers; the filename disambiguates them.
	switch {
	case mtype.Is("application/zip") && ext == ".docx":
		info.MIMEType, info.Extension = mimeDOCX, ".docx"
	case (mtype.Is("application/x-ole-storage") || mtype.Is("application/x-cfb")) && ext == ".doc":
		info.MIMEType, info.Extension = mimeDOC, ".doc"
	}

	info.Kind = classify(info.MIMEType)
	if info.Kind == domain.KindUnknown {
		info.Kind = domain.KindFromName(name)
	}
	log.Debug().Str("file", name).Str("mime", info.MIMEType).Str("kind", string(info.Kind)).Msg("detected file type")
	return info
}

func classify(mimeType string) domain.Kind {
	base, _, _ := strings.Cut(mimeType, ";")
	switch {
	case base == "application/pdf":
		return domain.KindPDF
	case base == mimeDOCX, base == mimeDOC:
		return domain.KindDOCX
	case strings.HasPrefix(base, "image/"):
		return domain.KindImage
	}
	return domain.KindUnknown
}
