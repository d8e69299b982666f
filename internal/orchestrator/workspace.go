package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Workspaces hands out per-request scratch directories under one root.
type Workspaces struct {
	root string
}

func NewWorkspaces(root string) (*Workspaces, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "docsuite")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspaces{root: root}, nil
}

func (w *Workspaces) Root() string { return w.root }

// Create makes <root>/<jobID>/{in,out}.
func (w *Workspaces) Create(jobID string) (*Workspace, error) {
	dir := filepath.Join(w.root, jobID)
	for _, sub := range []string{"in", "out"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return &Workspace{JobID: jobID, Dir: dir, used: map[string]bool{}}, nil
}

// Sweep removes workspaces whose last modification is older than maxAge.
// Requests remove their own workspace; this catches crash leftovers.
func (w *Workspaces) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("swept stale workspaces")
	}
	return removed
}

// Workspace is the isolated scratch space of one request.
type Workspace struct {
	JobID string
	Dir   string

	mu          sync.Mutex
	used        map[string]bool
	cleanupOnce sync.Once
}

// SaveInput persists an upload under in/ and returns its path.
func (ws *Workspace) SaveInput(index int, name string, data []byte) (string, error) {
	p := filepath.Join(ws.Dir, "in", fmt.Sprintf("%03d_%s", index, SanitizeFilename(name)))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload %s: %w", name, err)
	}
	return p, nil
}

// SaveOutput persists an artifact under out/. Names already used in this
// workspace get a numeric suffix; the final name is returned with the path.
func (ws *Workspace) SaveOutput(name string, data []byte) (string, string, error) {
	final := ws.reserve(SanitizeFilename(name))
	p := filepath.Join(ws.Dir, "out", final)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", "", fmt.Errorf("save output %s: %w", final, err)
	}
	return final, p, nil
}

// Path returns a path under the workspace root for a generated file.
func (ws *Workspace) Path(name string) string {
	return filepath.Join(ws.Dir, SanitizeFilename(name))
}

func (ws *Workspace) reserve(name string) string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; ws.used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	ws.used[strings.ToLower(candidate)] = true
	return candidate
}

// Cleanup removes the workspace. Safe to call more than once.
func (ws *Workspace) Cleanup() {
	ws.cleanupOnce.Do(func() {
		if err := os.RemoveAll(ws.Dir); err != nil {
			log.Warn().Err(err).Str("job_id", ws.JobID).Msg("workspace cleanup failed")
		}
	})
}

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"|?*`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
