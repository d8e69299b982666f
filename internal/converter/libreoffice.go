package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrPasswordProtected is returned when LibreOffice refuses an encrypted document.
var ErrPasswordProtected = errors.New("document is password protected")

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LibreOffice converts documents with a headless soffice subprocess per job.
type LibreOffice struct {
	binary    string
	timeout   time.Duration
	semaphore chan struct{}
	run       Runner
}

// NewLibreOffice bounds concurrent conversions to maxWorkers.
func NewLibreOffice(binary string, maxWorkers int, timeout time.Duration) *LibreOffice {
	if binary == "" {
		binary = "soffice"
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &LibreOffice{
		binary:    binary,
		timeout:   timeout,
		semaphore: make(chan struct{}, maxWorkers),
		run:       execRunner,
	}
}

// WithRunner replaces the command runner.
func (l *LibreOffice) WithRunner(r Runner) *LibreOffice {
	l.run = r
	return l
}

func (l *LibreOffice) Binary() string { return l.binary }

// Version reports the installed LibreOffice version.
func (l *LibreOffice) Version(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(l.binary); err != nil {
		return "", fmt.Errorf("LibreOffice not found in PATH: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := l.run(ctx, l.binary, "--version")
	if err != nil {
		return "", fmt.Errorf("libreoffice --version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ConvertBytes converts data (named name) to the target extension ("pdf"
// or "docx") and returns the converted bytes.
func (l *LibreOffice) ConvertBytes(ctx context.Context, name string, data []byte, target string) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	target = strings.ToLower(strings.TrimPrefix(target, "."))

	select {
	case l.semaphore <- struct{}{}:
		defer func() { <-l.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	dir, err := os.MkdirTemp("", "lo_job_")
	if err != nil {
		return nil, fmt.Errorf("create conversion dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "in", inputName(name))
	outDir := filepath.Join(dir, "out")
	profileDir := filepath.Join(dir, "profile_"+uuid.NewString())
	for _, d := range []string{filepath.Dir(input), outDir, profileDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create conversion dir: %w", err)
		}
	}
	if err := os.WriteFile(input, data, 0o644); err != nil {
		return nil, fmt.Errorf("write conversion input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	args := convertArgs(profileDir, outDir, input, target)
	log.Debug().Str("cmd", l.binary+" "+strings.Join(args, " ")).Msg("LibreOffice command")

	out, err := l.run(runCtx, l.binary, args...)
	if isProtected(out) {
		return nil, ErrPasswordProtected
	}
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("conversion timeout after %v", l.timeout)
		}
		return nil, fmt.Errorf("conversion failed: %w: %s", err, trimOutput(out))
	}

	result, err := os.ReadFile(expectedOutput(input, outDir, target))
	if err != nil {
		return nil, fmt.Errorf("output file not created: %s", trimOutput(out))
	}
	log.Info().Str("file", name).Str("target", target).Int("bytes", len(result)).Dur("duration", time.Since(start)).Msg("conversion successful")
	return result, nil
}

func convertArgs(profileDir, outDir, input, target string) []string {
	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(profileDir),
		"--headless",
		"--nologo",
		"--nolockcheck",
		"--norestore",
	}
	switch target {
	case "docx":
		args = append(args, "--infilter=writer_pdf_import", "--convert-to", "docx:MS Word 2007 XML")
	default:
		args = append(args, "--convert-to", target)
	}
	return append(args, "--outdir", outDir, input)
}

// inputName keeps the extension LibreOffice uses to pick an import filter.
func inputName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return "input" + ext
}

func expectedOutput(input, outDir, target string) string {
	base := filepath.Base(input)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"."+target)
}

func isProtected(output []byte) bool {
	s := strings.ToLower(string(output))
	return strings.Contains(s, "password") || strings.Contains(s, "encrypted")
}

func trimOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
