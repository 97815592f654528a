package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestLocalWriteReadRoundTrip(t *testing.T) {
	s, err := NewLocal(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	ctx := context.Background()
	content := []byte("avatar bundle bytes")
	if err := s.Write(ctx, "file-1/v1/file", bytes.NewReader(content), int64(len(content)), "application/x-avatar"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rc, err := s.Read(ctx, "file-1/v1/file")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, content) {
		t.Fatalf("Read returned %q, want %q", got, content)
	}

	exists, err := s.Exists(ctx, "file-1/v1/file")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}

	if err := s.Delete(ctx, "file-1/v1/file"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, _ = s.Exists(ctx, "file-1/v1/file")
	if exists {
		t.Fatal("expected object to be gone after Delete")
	}
}

func TestLocalRejectsPathEscape(t *testing.T) {
	s, err := NewLocal(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	path := s.fullPath("../../etc/passwd")
	if path == "" {
		t.Fatal("fullPath returned empty path")
	}
	if len(path) < len(s.basePath) || path[:len(s.basePath)] != s.basePath {
		t.Fatalf("fullPath escaped base path: %s", path)
	}
}

func TestLocalGetUploadURLUnsupported(t *testing.T) {
	s, err := NewLocal(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := s.GetUploadURL(context.Background(), "k", "application/octet-stream", 0); err == nil {
		t.Fatal("expected error from GetUploadURL on local storage")
	}
}
