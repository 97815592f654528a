// Package digest computes streaming MD5 digests and librsync signatures
// over files without ever loading a whole file into memory.
package digest

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const chunkSize = 1 << 20 // 1 MiB

// Result carries both wire encodings of a file's MD5 digest alongside its
// size, since the upload driver needs Base64 for Content-MD5 headers and
// the Service API needs hex in request bodies.
type Result struct {
	Hex    string
	Base64 string
	Size   int64
}

// MD5File streams path through MD5 in chunkSize-sized reads.
func MD5File(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("digest: open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, chunkSize)
	// Hide *os.File's WriterTo so CopyBuffer reads through buf.
	size, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf)
	if err != nil {
		return Result{}, fmt.Errorf("digest: read %s: %w", path, err)
	}

	sum := h.Sum(nil)
	return Result{
		Hex:    hex.EncodeToString(sum),
		Base64: base64.StdEncoding.EncodeToString(sum),
		Size:   size,
	}, nil
}
