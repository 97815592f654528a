package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local implements Storage on the local filesystem, for devservice's
// default no-external-dependencies mode.
type Local struct {
	basePath string
}

// LocalConfig configures a Local store.
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// NewLocal creates basePath if missing and returns a Local store rooted
// there.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base path: %w", err)
	}
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	return &Local{basePath: absPath}, nil
}

// fullPath joins key onto basePath, rejecting any key that would escape it.
func (s *Local) fullPath(key string) string {
	cleanKey := filepath.Clean(key)
	if cleanKey == ".." || strings.HasPrefix(cleanKey, ".."+string(os.PathSeparator)) {
		cleanKey = ""
	}
	return filepath.Join(s.basePath, cleanKey)
}

// statKey stats key's path, normalizing "not found" to (path, nil, false,
// nil) instead of forcing every caller to repeat an os.IsNotExist check.
func (s *Local) statKey(key string) (string, os.FileInfo, bool, error) {
	path := s.fullPath(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil, false, nil
		}
		return path, nil, false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return path, info, true, nil
}

// Write stores r atomically at key: write to a sibling temp file, then
// rename, per the same crash-safety shape the transcoder uses elsewhere
// in this module.
func (s *Local) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path := s.fullPath(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("storage: rename temp file: %w", err)
	}
	success = true
	return nil
}

func (s *Local) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	path, _, ok, err := s.statKey(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("storage: object not found: %s", key)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open object: %w", err)
	}
	return f, nil
}

func (s *Local) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

// DeletePrefix removes every object whose key starts with prefix. When
// prefix resolves to a directory the whole subtree is removed in one
// shot; otherwise it walks the parent and removes every entry whose name
// starts with prefix's last path element.
func (s *Local) DeletePrefix(ctx context.Context, prefix string) error {
	path, info, ok, err := s.statKey(prefix)
	if err != nil {
		return err
	}
	if ok && info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("storage: delete prefix %s: %w", prefix, err)
		}
		return nil
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read directory for prefix %s: %w", prefix, err)
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("storage: delete prefix %s: %w", prefix, err)
		}
	}
	return nil
}

func (s *Local) Exists(ctx context.Context, key string) (bool, error) {
	_, _, ok, err := s.statKey(key)
	return ok, err
}

func (s *Local) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	path, info, ok, err := s.statKey(prefix)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if !info.IsDir() {
		relPath, _ := filepath.Rel(s.basePath, path)
		return []ObjectInfo{{Key: relPath, Size: info.Size(), LastModified: info.ModTime()}}, nil
	}

	var objects []ObjectInfo
	err = filepath.Walk(path, func(filePath string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(s.basePath, filePath)
		objects = append(objects, ObjectInfo{Key: relPath, Size: fi.Size(), LastModified: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list objects: %w", err)
	}
	return objects, nil
}

func (s *Local) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	_, _, ok, err := s.statKey(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("storage: object not found: %s", key)
	}
	return "/" + key, nil
}

func (s *Local) GetUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return "", fmt.Errorf("storage: presigned upload not supported for local storage")
}
