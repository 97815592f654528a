// Package storage backs cmd/devservice's local fixture implementation of
// the Service's file API: a small Storage interface with a filesystem
// implementation for fast local loops and an S3 implementation for
// exercising the same fixture against MinIO or real S3.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage is the fixture's storage backend. devservice uses it to hold
// uploaded file bytes; the PUT URLs its startFileUpload hands back point
// at devservice's own upload route, so devservice does not call
// GetUploadURL.
type Storage interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix, used
	// to tear down an entire file version's subresources (file, signature,
	// and any multipart parts) in one call.
	DeletePrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// GetURL returns a URL from which the object can be read back (a
	// relative path for local storage, a presigned GET URL for S3).
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// GetUploadURL returns a presigned PUT URL for key. Local storage
	// does not support this and always errors.
	GetUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}
