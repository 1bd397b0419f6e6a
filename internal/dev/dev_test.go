package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/spool/internal/config"
)

func startWatcher(t *testing.T, cfg WatcherConfig) (*Watcher, chan Change) {
	t.Helper()
	watcher := NewWatcher(cfg)

	changes := make(chan Change, 10)
	watcher.OnChange(func(c Change) {
		changes <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the watches to be registered.
	deadline := time.Now().Add(time.Second)
	for !watcher.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	return watcher, changes
}

func waitChange(t *testing.T, changes chan Change) Change {
	t.Helper()
	select {
	case change := <-changes:
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change")
		return Change{}
	}
}

func TestWatcher_Basic(t *testing.T) {
	tmpDir := t.TempDir()

	doc := filepath.Join(tmpDir, "index.yaml")
	if err := os.WriteFile(doc, []byte("body: []"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	if err := os.WriteFile(doc, []byte("body: [hello]"), 0o644); err != nil {
		t.Fatal(err)
	}

	change := waitChange(t, changes)
	if change.Type != ChangeDocument {
		t.Errorf("Expected document change, got %v", change.Type)
	}
	if change.Path != doc {
		t.Errorf("Expected path %q, got %q", doc, change.Path)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	doc := filepath.Join(tmpDir, "index.md")

	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 100 * time.Millisecond,
	})

	for i := range 5 {
		if err := os.WriteFile(doc, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitChange(t, changes)
	select {
	case c := <-changes:
		t.Errorf("burst of writes reported more than once: %v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()

	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{tmpDir},
		Debounce: 50 * time.Millisecond,
	})

	sub := filepath.Join(tmpDir, "partials")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(sub, "nav.yaml")
	if err := os.WriteFile(file, []byte("- nav"), 0o644); err != nil {
		t.Fatal(err)
	}

	if change := waitChange(t, changes); change.Path != file {
		t.Errorf("Expected path %q, got %q", file, change.Path)
	}
}

func TestWatcher_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	doc := filepath.Join(tmpDir, "index.yaml")
	other := filepath.Join(tmpDir, "other.yaml")
	for _, p := range []string{doc, other} {
		if err := os.WriteFile(p, []byte("body: []"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, changes := startWatcher(t, WatcherConfig{
		Paths:    []string{doc},
		Debounce: 50 * time.Millisecond,
	})

	if err := os.WriteFile(other, []byte("body: [x]"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-changes:
		t.Errorf("change to an unwatched sibling was reported: %v", c)
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(doc, []byte("body: [x]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if change := waitChange(t, changes); change.Path != doc {
		t.Errorf("Expected path %q, got %q", doc, change.Path)
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths: []string{filepath.Join(t.TempDir(), "missing")},
	})
	if err := watcher.Start(context.Background()); err == nil {
		t.Error("Start() should fail for a missing path")
	}
	if watcher.IsRunning() {
		t.Error("Watcher should not be running after a failed start")
	}
}

func TestWatcher_Ignore(t *testing.T) {
	tmpDir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{tmpDir},
		Ignore: []string{"*.swp", "drafts"},
	})

	if !watcher.shouldIgnore(filepath.Join(tmpDir, ".index.yaml.swp")) {
		t.Error("Should ignore *.swp files")
	}
	if !watcher.shouldIgnore(filepath.Join(tmpDir, "drafts", "post.md")) {
		t.Error("Should ignore drafts directory")
	}
	if watcher.shouldIgnore(filepath.Join(tmpDir, "index.yaml")) {
		t.Error("Should not ignore index.yaml")
	}
}

func TestWatcher_IgnoreSegments(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths:  []string{"."},
		Ignore: []string{"tmp", "site/build"},
	})

	if !watcher.shouldIgnore(filepath.Join("foo", "tmp", "bar.md")) {
		t.Error("Should ignore tmp directory segment")
	}
	if watcher.shouldIgnore(filepath.Join("foo", "attempt.md")) {
		t.Error("Should not ignore substring match")
	}
	if !watcher.shouldIgnore(filepath.Join("root", "site", "build", "index.html")) {
		t.Error("Should ignore a multi-segment pattern")
	}
}

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		path string
		want ChangeType
	}{
		{"index.yaml", ChangeDocument},
		{"index.YML", ChangeDocument},
		{"README.md", ChangeDocument},
		{"site/spool.json", ChangeConfig},
		{"other.json", ChangeAsset},
		{"app.css", ChangeAsset},
	}

	for _, tt := range tests {
		if got := classifyChange(tt.path); got != tt.want {
			t.Errorf("classifyChange(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_IsRunning(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{
		Paths: []string{"."},
	})

	if watcher.IsRunning() {
		t.Error("Watcher should not be running initially")
	}
}

func TestCollectWatchPaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.New()
	cfg.Watch.Paths = []string{"partials", "partials/", "/abs/layouts"}
	if err := cfg.SaveTo(filepath.Join(tmpDir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	doc := filepath.Join(tmpDir, "index.yaml")
	got := CollectWatchPaths(cfg, doc)
	want := []string{
		doc,
		filepath.Join(tmpDir, config.ConfigFileName),
		filepath.Join(tmpDir, "partials"),
		"/abs/layouts",
	}

	if len(got) != len(want) {
		t.Fatalf("CollectWatchPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CollectWatchPaths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
