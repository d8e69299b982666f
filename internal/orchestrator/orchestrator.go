package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/docsuite/internal/codec"
	"github.com/local/docsuite/internal/domain"
	logpkg "github.com/local/docsuite/internal/logger"
	"github.com/local/docsuite/internal/metrics"
	"github.com/local/docsuite/internal/store"
	"github.com/local/docsuite/internal/strategy"
)

// KindDetector infers the document kind of an upload.
type KindDetector interface {
	Kind(name string, data []byte) domain.Kind
}

// StatsStore records finished operations and serves the dashboard aggregate.
type StatsStore interface {
	Record(ctx context.Context, rec store.OperationRecord) error
	Dashboard(ctx context.Context) (store.Dashboard, error)
}

// Archiver copies a final package to long-term storage and returns its key.
type Archiver interface {
	Archive(ctx context.Context, jobID, name, path string) (string, error)
}

type Dependencies struct {
	Codec      codec.Codec
	Workspaces *Workspaces
	Detector   KindDetector
	Stats      StatsStore
	Archive    Archiver
}

// Options bound the HTTP surface.
type Options struct {
	MaxUploadBytes  int64
	MultipartMemory int64
}

type Orchestrator struct {
	deps Dependencies
	opts Options
}

func New(deps Dependencies, opts Options) *Orchestrator {
	if opts.MultipartMemory <= 0 {
		opts.MultipartMemory = 32 << 20
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// Outcome is a successful batch. Close releases its workspace and must be
// called once the package has been sent.
type Outcome struct {
	JobID      string
	Result     domain.Result
	Package    *Package
	ArchiveKey string
	Duration   time.Duration

	workspace *Workspace
}

func (o *Outcome) Close() {
	if o != nil && o.workspace != nil {
		o.workspace.Cleanup()
	}
}

// Run processes one batch: intake, validate, transform per file, aggregate,
// package. On error the workspace is already released.
func (o *Orchestrator) Run(ctx context.Context, req domain.Request) (out *Outcome, err error) {
	start := time.Now()
	jobID := uuid.NewString()
	ctx, logger := logpkg.ForJob(ctx, jobID, string(req.Operation))
	logger.Info().Int("files", len(req.Files)).Msg("batch started")

	var inputBytes int64
	for _, f := range req.Files {
		inputBytes += int64(len(f.Data))
	}
	defer func() {
		o.finish(ctx, logger, req, inputBytes, out, err, time.Since(start))
	}()

	s, err := strategy.New(req.Operation, req.Params, o.deps.Codec)
	if err != nil {
		return nil, err
	}
	if len(req.Files) < s.MinFiles() {
		return nil, domain.InsufficientInputsError(len(req.Files), s.MinFiles())
	}

	ws, err := o.deps.Workspaces.Create(jobID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Cleanup()
		}
	}()

	files, err := o.intake(ws, req.Files)
	if err != nil {
		return nil, err
	}

	result, err := o.transform(ctx, logger, s, files)
	if err != nil {
		return nil, err
	}

	arts, err := persist(ws, result)
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, emptyErr(s, result)
	}

	pkg, err := Pack(ws, req.Operation, arts)
	if err != nil {
		return nil, err
	}

	out = &Outcome{JobID: jobID, Result: result, Package: pkg, workspace: ws, Duration: time.Since(start)}
	if o.deps.Archive != nil {
		key, aerr := o.deps.Archive.Archive(ctx, jobID, pkg.Name, pkg.Path)
		if aerr != nil {
			logger.Warn().Err(aerr).Msg("archive upload failed")
		} else {
			out.ArchiveKey = key
		}
	}
	return out, nil
}

// intake persists uploads to the workspace and infers their kind.
func (o *Orchestrator) intake(ws *Workspace, uploads []domain.UploadedFile) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(uploads))
	for i, u := range uploads {
		u.Name = SanitizeFilename(u.Name)
		path, err := ws.SaveInput(i, u.Name, u.Data)
		if err != nil {
			return nil, err
		}
		u.Path = path
		if u.Kind == "" || u.Kind == domain.KindUnknown {
			u.Kind = o.kind(u.Name, u.Data)
		}
		files = append(files, u)
	}
	return files, nil
}

func (o *Orchestrator) kind(name string, data []byte) domain.Kind {
	if o.deps.Detector != nil {
		return o.deps.Detector.Kind(name, data)
	}
	return domain.KindFromName(name)
}

func (o *Orchestrator) transform(ctx context.Context, logger zerolog.Logger, s strategy.Strategy, files []domain.UploadedFile) (domain.Result, error) {
	op := string(s.Operation())
	result := domain.Result{Operation: s.Operation()}

	switch st := s.(type) {
	case strategy.BatchStrategy:
		arts, err := st.TransformBatch(ctx, files)
		if err != nil {
			for range files {
				metrics.IncFile(op, "failed")
			}
			return result, err
		}
		for range files {
			metrics.IncFile(op, "success")
		}
		result.Files = append(result.Files, domain.FileResult{File: "batch", Artifacts: arts})

	case strategy.FileStrategy:
		for _, f := range files {
			arts, err := st.Transform(ctx, f)
			switch {
			case errors.Is(err, domain.ErrEmptyDocument):
				logger.Info().Str("file", f.Name).Msg("skipped: document has no pages")
				metrics.IncFile(op, "skipped")
				result.Files = append(result.Files, domain.FileResult{File: f.Name, Skipped: true, Note: err.Error()})
			case err != nil && st.FailFast():
				logger.Warn().Err(err).Str("file", f.Name).Msg("file failed; aborting batch")
				metrics.IncFile(op, "failed")
				return result, err
			case err != nil:
				logger.Warn().Err(err).Str("file", f.Name).Msg("file failed")
				metrics.IncFile(op, "failed")
				result.Files = append(result.Files, domain.FileResult{File: f.Name, Failure: &domain.FailureRecord{File: f.Name, Err: err}})
			default:
				metrics.IncFile(op, "success")
				result.Files = append(result.Files, domain.FileResult{File: f.Name, Artifacts: arts})
			}
		}

	default:
		return result, fmt.Errorf("strategy %s has no transform", op)
	}
	return result, nil
}

// persist writes every artifact to the workspace, replacing in-memory data
// with paths and disambiguating duplicate names.
func persist(ws *Workspace, result domain.Result) ([]domain.Artifact, error) {
	var out []domain.Artifact
	for i := range result.Files {
		fr := &result.Files[i]
		for j := range fr.Artifacts {
			a := &fr.Artifacts[j]
			name, path, err := ws.SaveOutput(a.Name, a.Data)
			if err != nil {
				return nil, err
			}
			a.Name, a.Path, a.Size, a.Data = name, path, int64(len(a.Data)), nil
			out = append(out, *a)
		}
	}
	return out, nil
}

// emptyErr explains a batch that produced no artifacts. A strategy's own
// empty error is batch level and keeps the per-file failures attached.
func emptyErr(s strategy.Strategy, result domain.Result) error {
	failures := result.Failures()
	if er, ok := s.(strategy.EmptyReporter); ok {
		if len(failures) == 0 {
			return er.EmptyErr()
		}
		return errors.Join(er.EmptyErr(), &domain.BatchError{Failures: failures})
	}
	if len(failures) > 0 {
		return &domain.BatchError{Failures: failures}
	}
	return domain.ErrNoOutputProduced
}

func (o *Orchestrator) finish(ctx context.Context, logger zerolog.Logger, req domain.Request, inputBytes int64, out *Outcome, err error, dur time.Duration) {
	status := store.StatusSuccess
	if err != nil {
		status = store.StatusFailed
		logger.Warn().Err(err).Dur("duration", dur).Msg("batch failed")
	} else {
		logger.Info().
			Str("package", out.Package.Name).
			Int("artifacts", out.Package.Entries).
			Int("failed", len(out.Result.Failures())).
			Int64("bytes", out.Package.Size).
			Dur("duration", dur).
			Msg("batch finished")
		metrics.AddOutputBytes(string(req.Operation), out.Package.Size)
	}
	metrics.ObserveBatch(string(req.Operation), status, dur)

	if o.deps.Stats == nil {
		return
	}
	rec := store.OperationRecord{
		Operation:  string(req.Operation),
		Status:     status,
		FileCount:  len(req.Files),
		Bytes:      inputBytes,
		DurationMs: dur.Milliseconds(),
		CreatedAt:  time.Now(),
		Client:     req.Client,
	}
	if serr := o.deps.Stats.Record(context.WithoutCancel(ctx), rec); serr != nil {
		logger.Warn().Err(serr).Msg("stats record failed")
	}
}
