// Package watcher reports GC logs whose files changed on disk so they can be
// analysed again.
package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultQuiet is how long a log must stay unchanged before it is reported.
const DefaultQuiet = 500 * time.Millisecond

// Watcher monitors the directories holding each log pattern's files using
// OS-level notifications. A change to any file matching a pattern reports
// the pattern once the quiet period has passed without further changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	changes  chan string
	patterns map[string]string // absolute pattern -> pattern as given
	dirs     []string
	quiet    time.Duration
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l *zap.Logger) Option { return func(w *Watcher) { w.logger = l } }

// WithQuiet overrides DefaultQuiet.
func WithQuiet(d time.Duration) Option { return func(w *Watcher) { w.quiet = d } }

// New creates a Watcher for the given log patterns. Patterns are resolved at
// startup and the directories of their files are watched, so rotated and
// newly created files are seen too.
func New(patterns []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		changes:  make(chan string, 64),
		patterns: make(map[string]string, len(patterns)),
		quiet:    DefaultQuiet,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}

	dirs := make(map[string]bool)
	for _, pattern := range patterns {
		abs, err := filepath.Abs(pattern)
		if err != nil {
			w.logger.Warn("cannot resolve pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		w.patterns[filepath.ToSlash(abs)] = pattern

		base, _ := doublestar.SplitPattern(filepath.ToSlash(abs))
		dirs[filepath.FromSlash(base)] = true
		matches, err := expandGlob(abs)
		if err != nil {
			w.logger.Warn("failed to expand pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range matches {
			dirs[filepath.Dir(m)] = true
		}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.dirs = append(w.dirs, dir)
	}
	sort.Strings(w.dirs)
	return w, nil
}

// Changes delivers the pattern of each log that changed. It is closed when
// Start returns.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string { return w.dirs }

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.changes)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.quiet)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Forward relevant events (write, create, remove, rename).
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if p, ok := w.match(ev.Name); ok {
				pending[p] = true
				timer.Reset(w.quiet)
			}
		case <-timer.C:
			for _, p := range sorted(pending) {
				select {
				case w.changes <- p:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// match returns the pattern, as given to New, that path belongs to.
func (w *Watcher) match(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	abs = filepath.ToSlash(abs)
	for full, given := range w.patterns {
		if ok, _ := doublestar.Match(full, abs); ok {
			return given, true
		}
	}
	return "", false
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// expandGlob resolves a glob pattern to matching file paths.
// Supports recursive patterns like /var/log/**/*.log via doublestar.
func expandGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
