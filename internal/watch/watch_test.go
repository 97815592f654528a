package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherNotifiesOnceArchiveIsStable(t *testing.T) {
	dir := t.TempDir()

	notified := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Start(ctx, dir, func(path string) {
		notified <- path
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	archivePath := filepath.Join(dir, "avatar.3b")
	if err := os.WriteFile(archivePath, []byte("zip-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-notified:
		if got != archivePath {
			t.Fatalf("notified path = %q, want %q", got, archivePath)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch notification")
	}
}

func TestWatcherIgnoresNonBundleFiles(t *testing.T) {
	dir := t.TempDir()

	notified := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Start(ctx, dir, func(path string) { notified <- path })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-notified:
		t.Fatalf("unexpected notification for non-bundle file: %s", got)
	case <-time.After(1 * time.Second):
	}
}
