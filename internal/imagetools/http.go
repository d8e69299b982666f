package imagetools

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
	"github.com/local/docsuite/internal/httpx"
	"github.com/local/docsuite/internal/metrics"
	"github.com/local/docsuite/internal/store"
)

// Recorder stores finished operations for the dashboard.
type Recorder interface {
	Record(ctx context.Context, rec store.OperationRecord) error
}

type Handler struct {
	proc     *Processor
	stats    Recorder
	maxBytes int64
	memory   int64
}

// NewHandler serves the single-image routes. stats may be nil.
func NewHandler(proc *Processor, stats Recorder, maxBytes, memory int64) *Handler {
	if memory <= 0 {
		memory = 32 << 20
	}
	return &Handler{proc: proc, stats: stats, maxBytes: maxBytes, memory: memory}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	for _, op := range Ops {
		mux.HandleFunc("POST /api/"+string(op), h.handleApply(op))
	}
	mux.HandleFunc("POST /api/"+string(OpInfo), h.handleInfo)
}

func (h *Handler) handleApply(op Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		up, args, err := h.readUpload(w, r)
		if err != nil {
			h.finish(r, op, 0, 0, start, err)
			httpx.WriteError(w, err)
			return
		}
		art, err := h.proc.Apply(op, up.Name, up.Data, args)
		h.finish(r, op, 1, int64(len(up.Data)), start, err)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.ServeBytes(w, r, art.Data, art.Name, art.MediaType)
	}
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	up, _, err := h.readUpload(w, r)
	if err != nil {
		h.finish(r, OpInfo, 0, 0, start, err)
		httpx.WriteError(w, err)
		return
	}
	info, err := h.proc.Inspect(up.Name, up.Data)
	h.finish(r, OpInfo, 1, int64(len(up.Data)), start, err)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (httpx.Upload, url.Values, error) {
	if err := httpx.ParseForm(w, r, h.maxBytes, h.memory); err != nil {
		return httpx.Upload{}, nil, err
	}
	defer r.MultipartForm.RemoveAll()
	uploads, err := httpx.ReadUploads(r, "file", "files", "files[]")
	if err != nil {
		return httpx.Upload{}, nil, domain.InvalidParameterError("file", err.Error())
	}
	if len(uploads) == 0 {
		return httpx.Upload{}, nil, domain.InsufficientInputsError(0, 1)
	}
	return uploads[0], url.Values(r.MultipartForm.Value), nil
}

func (h *Handler) finish(r *http.Request, op Op, files int, size int64, start time.Time, err error) {
	dur := time.Since(start)
	status := store.StatusSuccess
	if err != nil {
		status = store.StatusFailed
		log.Warn().Err(err).Str("operation", string(op)).Msg("image operation failed")
	} else {
		log.Info().Str("operation", string(op)).Int64("bytes", size).Dur("duration", dur).Msg("image operation finished")
	}
	metrics.ObserveBatch(string(op), status, dur)
	if h.stats == nil {
		return
	}
	rec := store.OperationRecord{
		Operation:  string(op),
		Status:     status,
		FileCount:  files,
		Bytes:      size,
		DurationMs: dur.Milliseconds(),
		CreatedAt:  time.Now(),
		Client:     httpx.ClientIP(r),
	}
	if serr := h.stats.Record(context.WithoutCancel(r.Context()), rec); serr != nil {
		log.Warn().Err(serr).Msg("stats record failed")
	}
}
