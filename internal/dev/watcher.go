package dev

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeDocument ChangeType = iota
	ChangeConfig
	ChangeAsset
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeDocument:
		return "document"
	case ChangeConfig:
		return "config"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch. Directories are
	// watched recursively.
	Paths []string

	// Ignore patterns to skip (globs).
	Ignore []string

	// Debounce is the quiet period after the last change before the
	// callback runs.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher monitors files for changes.
type Watcher struct {
	config   WatcherConfig
	onChange func(Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}

	// files restricts a watched directory to the named files when a file,
	// not its directory, was requested.
	files map[string]map[string]bool
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Watcher{
		config: config,
		files:  make(map[string]map[string]bool),
	}
}

// OnChange sets the callback for file changes.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches for changes until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, p := range w.config.Paths {
		if err := w.add(fsw, p); err != nil {
			return err
		}
	}

	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	var pending []Change

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stopCh:
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			change, ok := w.event(fsw, event)
			if !ok {
				continue
			}
			pending = append(pending, change)
			timer.Reset(w.config.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.config.Logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.report(pending)
			pending = nil
		}
	}
}

// add watches p. Directories are added with every subdirectory that is
// not ignored; files are watched through their directory.
func (w *Watcher) add(fsw *fsnotify.Watcher, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		dir := filepath.Dir(p)
		if w.files[dir] == nil {
			w.files[dir] = make(map[string]bool)
		}
		w.files[dir][filepath.Base(p)] = true
		return fsw.Add(dir)
	}

	return filepath.WalkDir(p, func(sub string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if sub != p && w.shouldIgnore(sub) {
			return filepath.SkipDir
		}
		return fsw.Add(sub)
	})
}

// event filters a raw notification, starting to watch directories created
// under a watched directory.
func (w *Watcher) event(fsw *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	if event.Op == fsnotify.Chmod || w.shouldIgnore(event.Name) {
		return Change{}, false
	}

	dir := filepath.Dir(event.Name)
	if only, ok := w.files[dir]; ok && !only[filepath.Base(event.Name)] {
		return Change{}, false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(fsw, event.Name); err != nil && !errors.Is(err, os.ErrNotExist) {
				w.config.Logger.Warn("watch directory failed", "path", event.Name, "error", err)
			}
			return Change{}, false
		}
	}

	return Change{Path: event.Name, Type: classifyChange(event.Name)}, true
}

// report runs the callback once for the first change of each type.
func (w *Watcher) report(changes []Change) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()

	if callback == nil {
		return
	}

	reportedTypes := make(map[ChangeType]bool)
	for _, change := range changes {
		if !reportedTypes[change.Type] {
			reportedTypes[change.Type] = true
			callback(change)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/") || strings.Contains(pattern, "\\")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(normalized, filepath.ToSlash(pattern)) {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(path, segment string) bool {
	if segment == "" {
		return false
	}
	for _, part := range splitPathSegments(path) {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(path, pattern string) bool {
	pathParts := splitPathSegments(path)
	patternParts := splitPathSegments(pattern)
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}

	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	return false
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

// classifyChange determines the type of change based on the file name.
func classifyChange(path string) ChangeType {
	if filepath.Base(path) == "spool.json" {
		return ChangeConfig
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".md", ".markdown":
		return ChangeDocument
	default:
		return ChangeAsset
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
