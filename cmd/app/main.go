package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/codec"
	cfgpkg "github.com/local/docsuite/internal/config"
	"github.com/local/docsuite/internal/converter"
	"github.com/local/docsuite/internal/filetype"
	"github.com/local/docsuite/internal/imagerender"
	"github.com/local/docsuite/internal/imagetools"
	logpkg "github.com/local/docsuite/internal/logger"
	"github.com/local/docsuite/internal/metrics"
	"github.com/local/docsuite/internal/orchestrator"
	"github.com/local/docsuite/internal/statuscheck"
	"github.com/local/docsuite/internal/storage"
	"github.com/local/docsuite/internal/store"
)

func main() {
	if err := cfgpkg.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
	}
	cfg := cfgpkg.FromEnv()

	if err := logpkg.Init(logpkg.OptionsFrom(cfg.Logging, cfg.Axiom)); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
	}
	defer logpkg.Close()

	metrics.Init()

	// Optional Redis dashboard stats. Interfaces stay nil when disabled.
	var (
		stats      orchestrator.StatsStore
		recorder   imagetools.Recorder
		redisCheck statuscheck.Pinger
	)
	if cfg.Stats.RedisURL != "" {
		rs, err := store.NewRedisStats(cfg.Stats.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dashboard stats disabled")
		} else {
			rs.RecentLimit = cfg.Stats.RecentLimit
			rs.BreakdownDays = cfg.Stats.BreakdownDays
			defer rs.Close()
			stats, recorder, redisCheck = rs, rs, rs
		}
	}

	// Optional S3 archive of final packages
	var (
		archive orchestrator.Archiver
		s3Check statuscheck.Pinger
	)
	if cfg.Archive.Bucket != "" {
		a, err := storage.NewS3Archive(context.Background(), cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Archive.Bucket).Msg("s3 archive disabled")
		} else {
			archive, s3Check = a, a
			log.Info().Str("bucket", a.Bucket()).Str("prefix", cfg.Archive.Prefix).Msg("s3 archive enabled")
		}
	}

	office := converter.NewLibreOffice(cfg.Converter.Binary, cfg.Converter.MaxWorkers, cfg.Converter.Timeout)
	renderer := imagerender.New(cfg.Render.DPI, cfg.Render.Quality, cfg.Render.Color)

	workspaces, err := orchestrator.NewWorkspaces(cfg.Workspace.Root)
	if err != nil {
		log.Fatal().Err(err).Str("root", cfg.Workspace.Root).Msg("failed to prepare workspace root")
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Codec:      codec.NewEngine(office, renderer),
		Workspaces: workspaces,
		Detector:   filetype.New(),
		Stats:      stats,
		Archive:    archive,
	}, orchestrator.Options{
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		MultipartMemory: cfg.Server.MultipartMemory,
	})

	images := imagetools.NewHandler(
		imagetools.NewProcessor(cfg.Images.MaxPixels),
		recorder,
		cfg.Server.MaxUploadBytes,
		cfg.Server.MultipartMemory,
	)

	status := statuscheck.New(statuscheck.Options{
		Redis:          redisCheck,
		S3:             s3Check,
		LibreOfficeBin: office.Binary(),
		MuPDFProbe:     renderer.Probe,
	})

	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)
	images.RegisterRoutes(mux)
	mux.Handle("GET /api/status", status)
	mux.Handle("GET /metrics", metrics.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, workspaces, cfg.Workspace.StaleAfter, cfg.Workspace.SweepInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("workspace", workspaces.Root()).
			Bool("stats", stats != nil).
			Bool("archive", archive != nil).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// sweepLoop removes abandoned request workspaces at startup and then on every tick.
func sweepLoop(ctx context.Context, ws *orchestrator.Workspaces, maxAge, every time.Duration) {
	sweep := func() { metrics.AddSwept(ws.Sweep(maxAge)) }
	sweep()
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep()
		}
	}
}
