package orchestrator

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
	"github.com/local/docsuite/internal/httpx"
	"github.com/local/docsuite/internal/store"
)

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
	for _, op := range domain.Operations {
		mux.HandleFunc("POST /api/"+string(op), o.handleOperation(op))
	}
	mux.HandleFunc("GET /api/dashboard/stats", o.handleStats)
}

func (o *Orchestrator) handleOperation(op domain.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := httpx.ParseForm(w, r, o.opts.MaxUploadBytes, o.opts.MultipartMemory); err != nil {
			httpx.WriteError(w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		uploads, err := httpx.ReadUploads(r, "files", "files[]", "file")
		if err != nil {
			httpx.WriteError(w, domain.InvalidParameterError("files", err.Error()))
			return
		}
		req := domain.Request{
			Operation: op,
			Params: domain.Params{
				SplitMode:    domain.SplitMode(r.FormValue("split_type")),
				CustomRanges: r.FormValue("custom_ranges"),
				Quality:      r.FormValue("quality"),
			},
			Client: httpx.ClientIP(r),
		}
		for _, u := range uploads {
			req.Files = append(req.Files, domain.UploadedFile{Name: u.Name, Data: u.Data})
		}

		out, err := o.Run(r.Context(), req)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		defer out.Close()

		w.Header().Set("X-Job-ID", out.JobID)
		if failures := out.Result.Failures(); len(failures) > 0 {
			msgs := make([]string, 0, len(failures))
			for _, f := range failures {
				msgs = append(msgs, f.Message())
			}
			w.Header().Set("X-Failed-Files", httpx.HeaderValue(strings.Join(msgs, "; ")))
		}
		var skipped []string
		for _, f := range out.Result.Files {
			if f.Skipped {
				skipped = append(skipped, f.File)
			}
		}
		if len(skipped) > 0 {
			w.Header().Set("X-Skipped-Files", httpx.HeaderValue(strings.Join(skipped, "; ")))
		}
		httpx.ServeFile(w, r, out.Package.Path, out.Package.Name, out.Package.MediaType)
	}
}

func (o *Orchestrator) handleStats(w http.ResponseWriter, r *http.Request) {
	if o.deps.Stats == nil {
		httpx.WriteJSON(w, http.StatusOK, store.ZeroDashboard())
		return
	}
	d, err := o.deps.Stats.Dashboard(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("dashboard stats unavailable")
		d = store.ZeroDashboard()
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}
