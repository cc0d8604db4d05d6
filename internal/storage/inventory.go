// Package storage tracks the resource files present on disk, saves admin
// uploads under the resource root and records them in an optional ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/m3rciful/studybot/core/logger"
	"github.com/m3rciful/studybot/internal/catalog"
)

const logComponent = "storage"

// Inventory is an index of the regular files under a resource root.
// Paths are stored relative to the root with forward slashes.
type Inventory struct {
	root string

	mu    sync.RWMutex
	files map[string]struct{}
}

// NewInventory returns an empty inventory for root. Call Scan to fill it.
func NewInventory(root string) (*Inventory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &Inventory{root: abs, files: make(map[string]struct{})}, nil
}

// Root returns the absolute resource root.
func (inv *Inventory) Root() string {
	return inv.root
}

// Scan rebuilds the index from disk. A missing root yields an empty index.
func (inv *Inventory) Scan() error {
	files := make(map[string]struct{})
	err := filepath.WalkDir(inv.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == inv.root {
				return fs.SkipAll
			}
			return err
		}
		if d.Type().IsRegular() {
			if rel, ok := inv.rel(path); ok {
				files[rel] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: scan %s: %w", inv.root, err)
	}
	inv.mu.Lock()
	inv.files = files
	inv.mu.Unlock()
	return nil
}

// Len returns the number of indexed files.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.files)
}

// Has reports whether path, absolute or relative to the root, is indexed.
func (inv *Inventory) Has(path string) bool {
	rel, ok := inv.rel(path)
	if !ok {
		return false
	}
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	_, found := inv.files[rel]
	return found
}

// Missing returns the resources whose file is not indexed, sorted by key.
func (inv *Inventory) Missing(resources []catalog.ResourceEntry) []catalog.ResourceEntry {
	var out []catalog.ResourceEntry
	for _, r := range resources {
		if !inv.Has(r.Path) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Track indexes path when it lies under the root.
func (inv *Inventory) Track(path string) {
	if rel, ok := inv.rel(path); ok {
		inv.mu.Lock()
		inv.files[rel] = struct{}{}
		inv.mu.Unlock()
	}
}

// remove drops path and, when it was a directory, everything below it.
func (inv *Inventory) remove(path string) {
	rel, ok := inv.rel(path)
	if !ok {
		return
	}
	prefix := rel + "/"
	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.files, rel)
	for k := range inv.files {
		if strings.HasPrefix(k, prefix) {
			delete(inv.files, k)
		}
	}
}

// rel maps path onto the index key space. Paths outside the root are rejected.
func (inv *Inventory) rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", false
		}
		path = abs
	}
	rel, err := filepath.Rel(inv.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Watch keeps the index current until ctx is done. New directories are
// watched as they appear.
func (inv *Inventory) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage: watcher: %w", err)
	}
	defer w.Close()

	if err := os.MkdirAll(inv.root, 0o755); err != nil {
		return fmt.Errorf("storage: create root: %w", err)
	}
	if err := inv.watchTree(w, inv.root); err != nil {
		return err
	}
	logger.Info(ctx, logComponent, "inventory.watch",
		slog.String("status", "ok"),
		slog.String("path", inv.root),
		slog.Int("count", inv.Len()),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			inv.apply(ctx, w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, logComponent, "inventory.watch",
				slog.String("status", "error"),
				slog.String("err", err.Error()),
			)
		}
	}
}

func (inv *Inventory) apply(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		inv.remove(ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := inv.watchTree(w, ev.Name); err != nil {
				logger.Warn(ctx, logComponent, "inventory.watch",
					slog.String("status", "error"),
					slog.String("path", ev.Name),
					slog.String("err", err.Error()),
				)
			}
			return
		}
		if info.Mode().IsRegular() {
			inv.Track(ev.Name)
		}
	default:
		return
	}
	logger.Debug(ctx, logComponent, "inventory.change",
		slog.String("status", "ok"),
		slog.String("action", ev.Op.String()),
		slog.String("path", ev.Name),
	)
}

// watchTree adds every directory under dir to w and indexes the files found.
func (inv *Inventory) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("storage: watch %s: %w", path, err)
			}
			return nil
		}
		if d.Type().IsRegular() {
			inv.Track(path)
		}
		return nil
	})
}
