package statuscheck

import (
	"context"
	"errors"
	"net/http"
	"os/exec"
	"time"

	"github.com/local/docsuite/internal/httpx"
)

// Pinger models a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for external dependencies used by the dashboard.
type Checker struct {
	redis    Pinger
	s3       Pinger
	office   string
	mupdf    func() error
	lookPath func(string) (string, error)
	perCheck time.Duration
}

// Options configures the Checker. Nil pingers report "not configured".
type Options struct {
	Redis          Pinger
	S3             Pinger
	LibreOfficeBin string
	MuPDFProbe     func() error
	CheckTimeout   time.Duration
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses for the dashboard.
type Summary struct {
	Redis       Status `json:"redis"`
	S3          Status `json:"s3"`
	LibreOffice Status `json:"libreoffice"`
	MuPDF       Status `json:"mupdf"`
}

func New(opts Options) *Checker {
	if opts.LibreOfficeBin == "" {
		opts.LibreOfficeBin = "soffice"
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 3 * time.Second
	}
	return &Checker{
		redis:    opts.Redis,
		s3:       opts.S3,
		office:   opts.LibreOfficeBin,
		mupdf:    opts.MuPDFProbe,
		lookPath: exec.LookPath,
		perCheck: opts.CheckTimeout,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:       c.ping(ctx, c.redis),
		S3:          c.ping(ctx, c.s3),
		LibreOffice: c.checkLibreOffice(),
		MuPDF:       c.checkMuPDF(),
	}
}

// ServeHTTP writes the summary as JSON.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, c.Summary(r.Context()))
}

func (c *Checker) ping(ctx context.Context, p Pinger) Status {
	if p == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.perCheck)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkLibreOffice() Status {
	if _, err := c.lookPath(c.office); err != nil {
		return Status{OK: false, Message: "Binary not found"}
	}
	return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkMuPDF() Status {
	if c.mupdf == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	if err := c.mupdf(); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
