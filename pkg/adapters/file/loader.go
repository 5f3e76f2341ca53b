package file

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

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Loader implements ports.WorkflowLoader and ports.Watchable over a directory.
// Workflow names are slash-separated paths relative to the root ("ops/deploy.yaml").
type Loader struct {
	root   string
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger configures a logger for the Loader.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader serves the workflow files under root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{root: root, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the directory the loader reads from.
func (l *Loader) Root() string {
	return l.root
}

// IsWorkflowFile reports whether name has a workflow extension.
func IsWorkflowFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (l *Loader) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("workflow %q escapes %s", name, l.root)
	}
	return filepath.Join(l.root, clean), nil
}

// Load reads and parses the named workflow.
func (l *Loader) Load(ctx context.Context, name string) (*domain.Workflow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", name, err)
	}
	return domain.DecodeWorkflow(name, data)
}

// List walks the root and returns every workflow file, sorted.
// Hidden directories are skipped.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.root && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsWorkflowFile(path) {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.root, err)
	}
	sort.Strings(names)
	return names, nil
}

// Watch implements ports.Watchable. It reports the name of every workflow file
// written, created, renamed or removed under the root.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.root && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", l.root, err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if name, ok := l.changed(w, evt); ok {
					select {
					case ch <- name:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("watch error", "root", l.root, "err", err)
			}
		}
	}()
	return ch, nil
}

// changed maps an fsnotify event to a workflow name. New directories are added
// to the watch list.
func (l *Loader) changed(w *fsnotify.Watcher, evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(l.root, evt.Name)
	if err != nil || inHiddenDir(rel) {
		return "", false
	}
	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.Add(evt.Name); err != nil {
				l.logger.Warn("watch directory", "dir", evt.Name, "err", err)
			}
			return "", false
		}
	}
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
		return "", false
	}
	if !IsWorkflowFile(evt.Name) {
		return "", false
	}
	l.logger.Debug("workflow changed", "name", rel, "op", evt.Op.String())
	return filepath.ToSlash(rel), true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// inHiddenDir reports whether a root-relative path is, or lies under, a hidden directory.
func inHiddenDir(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts[:len(parts)-1] {
		if hidden(p) {
			return true
		}
	}
	return hidden(parts[len(parts)-1]) && !IsWorkflowFile(rel)
}
