package digest

import (
	"fmt"
	"math"
	"os"

	librsync "github.com/balena-os/librsync-go"
)

// defaultStrongLen is librsync's truncated MD4 strong-hash length, per the
// Service's expected signature format.
const defaultStrongLen = 8

// blockSize picks librsync's default block size: the square root of the
// file size, rounded up to the nearest power of two, with a floor so tiny
// files still get a usable block.
func blockSize(fileSize int64) uint32 {
	if fileSize <= 0 {
		return 512
	}
	root := math.Sqrt(float64(fileSize))
	size := uint32(1)
	for float64(size) < root {
		size <<= 1
	}
	if size < 512 {
		size = 512
	}
	return size
}

// GenerateSignature writes an rsync-compatible signature for src to dst,
// using librsync's MD4 strong-hash signature format truncated to 8 bytes.
func GenerateSignature(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("signature: open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("signature: stat %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("signature: create %s: %w", dst, err)
	}
	defer out.Close()

	blockLen := blockSize(info.Size())
	if err := librsync.Signature(in, out, blockLen, defaultStrongLen, librsync.MD4_SIG_MAGIC); err != nil {
		return fmt.Errorf("signature: generate for %s: %w", src, err)
	}
	return nil
}

// SignaturePath returns the conventional signature path for a source file:
// {source}.sig.
func SignaturePath(source string) string {
	return source + ".sig"
}
