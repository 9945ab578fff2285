package catchment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/catchment-service/internal/platform/logger"
)

// Workspaces hands out uniquely named scratch directories under one root and
// tracks the ones still alive so they can be removed at process exit.
type Workspaces struct {
	log    *logger.Logger
	root   string
	prefix string

	mu   sync.Mutex
	live map[string]*Workspace
}

func NewWorkspaces(log *logger.Logger, root, prefix string) (*Workspaces, error) {
	if log == nil {
		log = logger.Nop()
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = os.TempDir()
	}
	if prefix == "" {
		prefix = "catchment-"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspaces{
		log:    log.With("service", "Workspaces", "root", root),
		root:   root,
		prefix: prefix,
		live:   map[string]*Workspace{},
	}, nil
}

func (ws *Workspaces) Root() string { return ws.root }

// Acquire creates a fresh, empty directory. The name comes from
// os.MkdirTemp and never from request input, so concurrent requests cannot
// collide. Callers must defer Close.
func (ws *Workspaces) Acquire(ctx context.Context) (*Workspace, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(ws.root, ws.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w := &Workspace{dir: dir, owner: ws}
	ws.mu.Lock()
	ws.live[dir] = w
	ws.mu.Unlock()
	return w, nil
}

// Live returns the number of workspaces acquired and not yet closed.
func (ws *Workspaces) Live() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.live)
}

// CloseAll removes every workspace still alive. The app runs it on shutdown
// for requests cut short by the server going away.
func (ws *Workspaces) CloseAll() error {
	ws.mu.Lock()
	pending := make([]*Workspace, 0, len(ws.live))
	for _, w := range ws.live {
		pending = append(pending, w)
	}
	ws.mu.Unlock()

	var errs []error
	for _, w := range pending {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(pending) > 0 {
		ws.log.Warn("removed workspaces still alive at shutdown", "count", len(pending))
	}
	return errors.Join(errs...)
}

// SweepStale removes prefixed directories under the root whose modification
// time is older than olderThan and that this process does not own. It
// returns how many were removed.
func (ws *Workspaces) SweepStale(olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(ws.root)
	if err != nil {
		return 0, fmt.Errorf("read workspace root: %w", err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ws.prefix) {
			continue
		}
		dir := filepath.Join(ws.root, e.Name())
		ws.mu.Lock()
		_, owned := ws.live[dir]
		ws.mu.Unlock()
		if owned {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		ws.log.Info("swept stale workspaces", "count", removed, "older_than", olderThan.String())
	}
	return removed, errors.Join(errs...)
}

func (ws *Workspaces) release(dir string) {
	ws.mu.Lock()
	delete(ws.live, dir)
	ws.mu.Unlock()
}

// Workspace is one request's scratch directory.
type Workspace struct {
	dir   string
	owner *Workspaces

	once sync.Once
	err  error
}

func (w *Workspace) Dir() string { return w.dir }

// Close removes the directory and everything in it. Only the first call does
// any work; later calls return the first result.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.dir)
		if w.owner != nil {
			w.owner.release(w.dir)
			if w.err != nil {
				w.owner.log.Error("remove workspace failed", "dir", w.dir, "error", w.err)
			}
		}
	})
	return w.err
}
