package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.txt")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewFSNotifyWatcher(100*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files in the same directory are ignored.
	os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644)

	select {
	case got := <-changes:
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	select {
	case got := <-changes:
		t.Errorf("expected one debounced change, got another: %s", got)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFSNotifyWatcher(50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := w.Watch(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			t.Error("expected channel to close without events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatchMissingPath(t *testing.T) {
	w, err := NewFSNotifyWatcher(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if _, err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}
